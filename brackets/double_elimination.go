package brackets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cornhole-club/league-system/models"
)

var (
	ErrNotEnoughTeams         = errors.New("at least 2 eligible teams are required to generate a bracket")
	ErrTooManyTeams           = errors.New("rosters larger than 32 teams are not supported")
	ErrUnsupportedBracketSize = errors.New("unsupported bracket size")
)

// seedPairings maps a bracket size to the fixed round-1 pairing table of the
// winners bracket, by 1-based seed numbers. Seats whose seed exceeds the
// actual team count stay empty and become byes.
var seedPairings = map[int][][2]int{
	4:  {{1, 4}, {2, 3}},
	8:  {{1, 8}, {4, 5}, {2, 7}, {3, 6}},
	16: {{1, 16}, {8, 9}, {4, 13}, {5, 12}, {2, 15}, {7, 10}, {3, 14}, {6, 11}},
	32: {
		{1, 32}, {16, 17}, {8, 25}, {9, 24}, {4, 29}, {13, 20}, {5, 28}, {12, 21},
		{2, 31}, {15, 18}, {7, 26}, {10, 23}, {3, 30}, {14, 19}, {6, 27}, {11, 22},
	},
}

// BracketSizeFor returns the smallest supported bracket size that holds
// teamCount teams.
func BracketSizeFor(teamCount int) (int, error) {
	if teamCount < 2 {
		return 0, ErrNotEnoughTeams
	}
	for _, size := range []int{4, 8, 16, 32} {
		if teamCount <= size {
			return size, nil
		}
	}
	return 0, ErrTooManyTeams
}

// BracketMatch is an in-memory match node produced by a Generator. UIDs are
// local to one generation ("W1M2" = winners round 1, position 2); the
// persistence layer maps them to database ids and rewrites the forward
// pointers in a second pass.
type BracketMatch struct {
	UID             string
	BracketType     models.BracketSide
	Round           int
	PositionInRound int
	MatchNumber     int

	TeamAID *int
	TeamBID *int

	NextWinnerUID *string
	NextLoserUID  *string

	IsFinals bool

	// Bye matches are completed at generation time.
	Status      models.MatchStatus
	WinnerID    *int
	CompletedAt *time.Time
}

type DoubleEliminationGenerator struct {
	now func() time.Time
}

func NewDoubleEliminationGenerator() *DoubleEliminationGenerator {
	return &DoubleEliminationGenerator{now: time.Now}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// Generate builds the full winners + consolation topology for the given
// roster, fills round 1 from the pairing table and resolves byes. It is a
// pure function over its input: nothing is persisted here.
func (g *DoubleEliminationGenerator) Generate(_ context.Context, params GenerateParams) ([]*BracketMatch, error) {
	teams := params.Teams
	size, err := BracketSizeFor(len(teams))
	if err != nil {
		return nil, err
	}
	pairings, ok := seedPairings[size]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBracketSize, size)
	}

	winnersRounds := log2(size)
	matches := make([]*BracketMatch, 0, 3*size/2)
	byUID := make(map[string]*BracketMatch)
	matchNumber := 0

	add := func(m *BracketMatch) *BracketMatch {
		matchNumber++
		m.MatchNumber = matchNumber
		matches = append(matches, m)
		byUID[m.UID] = m
		return m
	}

	// Winners bracket: a single-elimination ladder of log2(size) rounds.
	for r := 1; r <= winnersRounds; r++ {
		count := size >> uint(r)
		for p := 1; p <= count; p++ {
			add(&BracketMatch{
				UID:             winnersUID(r, p),
				BracketType:     models.BracketWinners,
				Round:           r,
				PositionInRound: p,
				IsFinals:        r == winnersRounds,
				Status:          models.MatchStatusPending,
			})
		}
	}

	// Consolation ladder, down to a single consolation final.
	consRounds := consolationRoundSizes(size)
	for r := 1; r <= len(consRounds); r++ {
		for p := 1; p <= consRounds[r-1]; p++ {
			add(&BracketMatch{
				UID:             consolationUID(r, p),
				BracketType:     models.BracketConsolation,
				Round:           r,
				PositionInRound: p,
				IsFinals:        r == len(consRounds),
				Status:          models.MatchStatusPending,
			})
		}
	}

	// Forward pointers, winners side. Round-1 losers drop into consolation
	// round 1; semifinal losers drop into the round before the consolation
	// final. Middle rounds of the 16/32 ladders have no drop target that
	// keeps every slot single-feeder, so they carry no loser pointer.
	for r := 1; r <= winnersRounds; r++ {
		count := size >> uint(r)
		for p := 1; p <= count; p++ {
			m := byUID[winnersUID(r, p)]
			if r < winnersRounds {
				m.NextWinnerUID = strPtr(winnersUID(r+1, (p+1)/2))
			}
			switch {
			case r == 1:
				target := (p + 1) / 2
				if size == 4 {
					target = 1
				}
				m.NextLoserUID = strPtr(consolationUID(1, target))
			case r == winnersRounds-1:
				m.NextLoserUID = strPtr(consolationUID(len(consRounds)-1, p))
			}
		}
	}

	// Forward pointers, consolation side. Rounds halve toward the final,
	// except the hand-off into the drop round, which keeps positions aligned
	// so the inverted-parity drop never contends for the same slot.
	for r := 1; r < len(consRounds); r++ {
		for p := 1; p <= consRounds[r-1]; p++ {
			m := byUID[consolationUID(r, p)]
			if consRounds[r] == consRounds[r-1] {
				m.NextWinnerUID = strPtr(consolationUID(r+1, p))
			} else {
				m.NextWinnerUID = strPtr(consolationUID(r+1, (p+1)/2))
			}
		}
	}

	// Round-1 seeding. Effective seeds follow roster order: explicitly
	// seeded teams sort first, so position in the input is the seed.
	for i, pair := range pairings {
		m := byUID[winnersUID(1, i+1)]
		if pair[0] <= len(teams) {
			m.TeamAID = intPtr(teams[pair[0]-1].ID)
		}
		if pair[1] <= len(teams) {
			m.TeamBID = intPtr(teams[pair[1]-1].ID)
		}
	}

	g.resolveByes(byUID, size)

	return matches, nil
}

// resolveByes completes every round-1 winners match that has exactly one
// team and advances that team one hop. Round-1 slots have no feeders, so a
// lone team means a genuinely absent opponent. Propagation is single-hop:
// a chain of byes feeding the same downstream match is not collapsed
// further, and a bye leaves no loser for the consolation side.
func (g *DoubleEliminationGenerator) resolveByes(byUID map[string]*BracketMatch, size int) {
	now := g.now()
	for p := 1; p <= size/2; p++ {
		m := byUID[winnersUID(1, p)]
		var lone *int
		switch {
		case m.TeamAID != nil && m.TeamBID == nil:
			lone = m.TeamAID
		case m.TeamAID == nil && m.TeamBID != nil:
			lone = m.TeamBID
		default:
			continue
		}

		m.Status = models.MatchStatusComplete
		m.WinnerID = lone
		m.CompletedAt = &now

		if m.NextWinnerUID == nil {
			continue
		}
		next := byUID[*m.NextWinnerUID]
		if WinnerSlot(m.PositionInRound) == SlotA {
			next.TeamAID = lone
		} else {
			next.TeamBID = lone
		}
	}
}

// consolationRoundSizes returns the per-round match counts of the
// consolation side. Round 1 holds all winners-round-1 losers; the
// second-to-last round pairs the surviving ladder teams against the two
// winners-semifinal losers; everything between halves like a normal ladder.
func consolationRoundSizes(size int) []int {
	if size == 4 {
		// The single consolation match is the consolation final.
		return []int{1}
	}
	rounds := []int{size / 4}
	for r := 2; r <= log2(size)-2; r++ {
		rounds = append(rounds, size>>uint(r+1))
	}
	return append(rounds, 2, 1)
}

func winnersUID(round, position int) string {
	return fmt.Sprintf("W%dM%d", round, position)
}

func consolationUID(round, position int) string {
	return fmt.Sprintf("C%dM%d", round, position)
}

func log2(n int) int {
	k := 0
	for 1<<uint(k) < n {
		k++
	}
	return k
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }
