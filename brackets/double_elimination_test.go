package brackets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cornhole-club/league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTeams(n int) []*models.Team {
	teams := make([]*models.Team, n)
	for i := 0; i < n; i++ {
		teams[i] = &models.Team{
			ID:           101 + i,
			TournamentID: 1,
			Name:         fmt.Sprintf("Team %d", i+1),
		}
	}
	return teams
}

func generate(t *testing.T, teamCount int) []*BracketMatch {
	t.Helper()
	g := NewDoubleEliminationGenerator()
	matches, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{ID: 1},
		Teams:      makeTeams(teamCount),
	})
	require.NoError(t, err)
	return matches
}

func index(matches []*BracketMatch) map[string]*BracketMatch {
	byUID := make(map[string]*BracketMatch, len(matches))
	for _, m := range matches {
		byUID[m.UID] = m
	}
	return byUID
}

func TestBracketSizeFor(t *testing.T) {
	tests := []struct {
		teams   int
		want    int
		wantErr error
	}{
		{teams: 1, wantErr: ErrNotEnoughTeams},
		{teams: 2, want: 4},
		{teams: 4, want: 4},
		{teams: 5, want: 8},
		{teams: 8, want: 8},
		{teams: 9, want: 16},
		{teams: 16, want: 16},
		{teams: 17, want: 32},
		{teams: 32, want: 32},
		{teams: 33, wantErr: ErrTooManyTeams},
	}
	for _, tt := range tests {
		size, err := BracketSizeFor(tt.teams)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "teams=%d", tt.teams)
			continue
		}
		require.NoError(t, err, "teams=%d", tt.teams)
		assert.Equal(t, tt.want, size, "teams=%d", tt.teams)
	}
}

func TestGenerateMatchTotals(t *testing.T) {
	tests := []struct {
		teams             int
		total             int
		winners           int
		consolation       int
		consolationRounds []int
	}{
		{teams: 4, total: 4, winners: 3, consolation: 1, consolationRounds: []int{1}},
		{teams: 8, total: 12, winners: 7, consolation: 5, consolationRounds: []int{2, 2, 1}},
		{teams: 16, total: 24, winners: 15, consolation: 9, consolationRounds: []int{4, 2, 2, 1}},
		{teams: 32, total: 48, winners: 31, consolation: 17, consolationRounds: []int{8, 4, 2, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_teams", tt.teams), func(t *testing.T) {
			matches := generate(t, tt.teams)
			assert.Len(t, matches, tt.total)

			winners, consolation := 0, 0
			consByRound := map[int]int{}
			for _, m := range matches {
				switch m.BracketType {
				case models.BracketWinners:
					winners++
				case models.BracketConsolation:
					consolation++
					consByRound[m.Round]++
				}
			}
			assert.Equal(t, tt.winners, winners)
			assert.Equal(t, tt.consolation, consolation)
			for r, want := range tt.consolationRounds {
				assert.Equal(t, want, consByRound[r+1], "consolation round %d", r+1)
			}
		})
	}
}

func TestGenerateAssignsSequentialMatchNumbers(t *testing.T) {
	matches := generate(t, 8)
	for i, m := range matches {
		assert.Equal(t, i+1, m.MatchNumber)
	}
}

func TestGenerateExactlyTwoFinals(t *testing.T) {
	for _, teams := range []int{4, 8, 16, 32} {
		matches := generate(t, teams)
		byUID := index(matches)

		var finals []*BracketMatch
		for _, m := range matches {
			if m.IsFinals {
				finals = append(finals, m)
				// Finals never feed a later match.
				assert.Nil(t, m.NextWinnerUID, "%s (%d teams)", m.UID, teams)
				assert.Nil(t, m.NextLoserUID, "%s (%d teams)", m.UID, teams)
			}
		}
		require.Len(t, finals, 2, "%d teams", teams)

		// One championship final on the winners side, one consolation final.
		sides := map[models.BracketSide]bool{}
		for _, f := range finals {
			sides[f.BracketType] = true
		}
		assert.True(t, sides[models.BracketWinners], "%d teams", teams)
		assert.True(t, sides[models.BracketConsolation], "%d teams", teams)

		// Sanity: pointers that do exist resolve inside the match set.
		for _, m := range matches {
			if m.NextWinnerUID != nil {
				assert.Contains(t, byUID, *m.NextWinnerUID)
			}
			if m.NextLoserUID != nil {
				assert.Contains(t, byUID, *m.NextLoserUID)
			}
		}
	}
}

// Every slot of every non-entry match must have exactly one feeder, counting
// winner pointers with normal parity and loser pointers with inverted
// parity. A duplicate feeder would mean two results racing for one slot.
func TestGenerateEverySlotHasExactlyOneFeeder(t *testing.T) {
	for _, teams := range []int{4, 8, 16, 32} {
		t.Run(fmt.Sprintf("%d_teams", teams), func(t *testing.T) {
			matches := generate(t, teams)
			byUID := index(matches)

			type target struct {
				uid  string
				slot Slot
			}
			feeders := map[target]string{}
			record := func(uid string, slot Slot, from string) {
				tg := target{uid: uid, slot: slot}
				prev, dup := feeders[tg]
				require.False(t, dup, "slot %v of %s fed by both %s and %s", slot, uid, prev, from)
				feeders[tg] = from
			}

			for _, m := range matches {
				if m.NextWinnerUID != nil {
					record(*m.NextWinnerUID, WinnerSlot(m.PositionInRound), m.UID)
				}
				if m.NextLoserUID != nil {
					record(*m.NextLoserUID, LoserSlot(m.PositionInRound), m.UID)
				}
			}

			// Count the slots that need a feeder: both slots of every match
			// that is not a winners round 1 entry match.
			expected := 0
			for _, m := range byUID {
				if m.BracketType == models.BracketWinners && m.Round == 1 {
					continue
				}
				expected += 2
			}
			assert.Len(t, feeders, expected)
		})
	}
}

func TestGenerateLoserPointers(t *testing.T) {
	t.Run("8_teams", func(t *testing.T) {
		byUID := index(generate(t, 8))

		// Round 1 losers pair up into consolation round 1.
		assert.Equal(t, "C1M1", *byUID["W1M1"].NextLoserUID)
		assert.Equal(t, "C1M1", *byUID["W1M2"].NextLoserUID)
		assert.Equal(t, "C1M2", *byUID["W1M3"].NextLoserUID)
		assert.Equal(t, "C1M2", *byUID["W1M4"].NextLoserUID)

		// Semifinal losers drop into the round before the consolation final,
		// keeping their position.
		assert.Equal(t, "C2M1", *byUID["W2M1"].NextLoserUID)
		assert.Equal(t, "C2M2", *byUID["W2M2"].NextLoserUID)

		// The championship final's loser takes second place, no drop.
		assert.Nil(t, byUID["W3M1"].NextLoserUID)
	})

	t.Run("16_teams_middle_round_has_no_drop", func(t *testing.T) {
		byUID := index(generate(t, 16))
		for p := 1; p <= 4; p++ {
			assert.Nil(t, byUID[winnersUID(2, p)].NextLoserUID, "W2M%d", p)
		}
		// Semifinals still drop.
		assert.Equal(t, "C3M1", *byUID["W3M1"].NextLoserUID)
		assert.Equal(t, "C3M2", *byUID["W3M2"].NextLoserUID)
	})

	t.Run("4_teams_single_consolation_match", func(t *testing.T) {
		byUID := index(generate(t, 4))
		assert.Equal(t, "C1M1", *byUID["W1M1"].NextLoserUID)
		assert.Equal(t, "C1M1", *byUID["W1M2"].NextLoserUID)
		assert.True(t, byUID["C1M1"].IsFinals)
	})
}

func TestGenerateSeedingFollowsPairingTable(t *testing.T) {
	teams := makeTeams(8)
	byUID := index(generate(t, 8))

	expect := func(uid string, seedA, seedB int) {
		m := byUID[uid]
		require.NotNil(t, m.TeamAID, uid)
		require.NotNil(t, m.TeamBID, uid)
		assert.Equal(t, teams[seedA-1].ID, *m.TeamAID, uid)
		assert.Equal(t, teams[seedB-1].ID, *m.TeamBID, uid)
	}

	expect("W1M1", 1, 8)
	expect("W1M2", 4, 5)
	expect("W1M3", 2, 7)
	expect("W1M4", 3, 6)
}

func TestGenerateResolvesByes(t *testing.T) {
	t.Run("3_teams", func(t *testing.T) {
		teams := makeTeams(3)
		byUID := index(generate(t, 3))

		// Seed 4 is absent, so the top match is a bye for seed 1.
		bye := byUID["W1M1"]
		require.NotNil(t, bye.TeamAID)
		assert.Nil(t, bye.TeamBID)
		assert.Equal(t, models.MatchStatusComplete, bye.Status)
		require.NotNil(t, bye.WinnerID)
		assert.Equal(t, teams[0].ID, *bye.WinnerID)
		assert.NotNil(t, bye.CompletedAt)

		// The lone team is advanced one hop into the championship final.
		final := byUID["W2M1"]
		require.NotNil(t, final.TeamAID)
		assert.Equal(t, teams[0].ID, *final.TeamAID)
		assert.Nil(t, final.TeamBID)
		assert.Equal(t, models.MatchStatusPending, final.Status)

		// Seeds 2 and 3 play a real match.
		played := byUID["W1M2"]
		assert.Equal(t, models.MatchStatusPending, played.Status)
		require.NotNil(t, played.TeamAID)
		require.NotNil(t, played.TeamBID)
	})

	t.Run("5_teams", func(t *testing.T) {
		teams := makeTeams(5)
		byUID := index(generate(t, 5))

		// Seeds 6, 7 and 8 are absent: three byes, one real match.
		byes := 0
		for p := 1; p <= 4; p++ {
			if byUID[winnersUID(1, p)].Status == models.MatchStatusComplete {
				byes++
			}
		}
		assert.Equal(t, 3, byes)

		// {4,5} is the only played round 1 match.
		assert.Equal(t, models.MatchStatusPending, byUID["W1M2"].Status)

		// Bye winners of positions 3 and 4 land on opposite slots of W2M2.
		semifinal := byUID["W2M2"]
		require.NotNil(t, semifinal.TeamAID)
		require.NotNil(t, semifinal.TeamBID)
		assert.Equal(t, teams[1].ID, *semifinal.TeamAID)
		assert.Equal(t, teams[2].ID, *semifinal.TeamBID)
	})
}

func TestGenerateByeTimestampsComeFromClock(t *testing.T) {
	fixed := time.Date(2026, time.June, 6, 12, 0, 0, 0, time.UTC)
	g := &DoubleEliminationGenerator{now: func() time.Time { return fixed }}

	matches, err := g.Generate(context.Background(), GenerateParams{
		Tournament: &models.Tournament{ID: 1},
		Teams:      makeTeams(3),
	})
	require.NoError(t, err)

	byUID := index(matches)
	require.NotNil(t, byUID["W1M1"].CompletedAt)
	assert.Equal(t, fixed, *byUID["W1M1"].CompletedAt)
}

func TestGenerateRosterBounds(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	_, err := g.Generate(context.Background(), GenerateParams{Teams: makeTeams(1)})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	_, err = g.Generate(context.Background(), GenerateParams{Teams: makeTeams(33)})
	assert.ErrorIs(t, err, ErrTooManyTeams)
}
