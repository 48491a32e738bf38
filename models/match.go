package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusComplete   MatchStatus = "complete"
)

type BracketSide string

const (
	BracketWinners     BracketSide = "winners"
	BracketConsolation BracketSide = "consolation"
)

// Match is one node of a generated bracket. The whole match set for a
// tournament is created atomically at generation time and then mutated in
// place as results come in. Slots of rounds >= 2 start out nil and are only
// ever filled by advancement from the feeder matches.
type Match struct {
	ID              int         `json:"id" db:"id"`
	TournamentID    int         `json:"tournament_id" db:"tournament_id"`
	BracketType     BracketSide `json:"bracket_type" db:"bracket_type"`
	RoundNumber     int         `json:"round_number" db:"round_number"`
	MatchNumber     int         `json:"match_number" db:"match_number"`
	PositionInRound int         `json:"position_in_round" db:"position_in_round"`

	TeamAID *int `json:"team_a_id,omitempty" db:"team_a_id"`
	TeamBID *int `json:"team_b_id,omitempty" db:"team_b_id"`

	ScoreA   *int `json:"score_a,omitempty" db:"score_a"`
	ScoreB   *int `json:"score_b,omitempty" db:"score_b"`
	WinnerID *int `json:"winner_id,omitempty" db:"winner_id"`
	LoserID  *int `json:"loser_id,omitempty" db:"loser_id"`

	// Forward pointers into the same match set. Nil next_winner marks the two
	// finals. Nil next_loser additionally marks every consolation match.
	NextWinnerMatchID *int `json:"next_winner_match_id,omitempty" db:"next_winner_match_id"`
	NextLoserMatchID  *int `json:"next_loser_match_id,omitempty" db:"next_loser_match_id"`

	IsFinals bool        `json:"is_finals" db:"is_finals"`
	Status   MatchStatus `json:"status" db:"status"`

	StartedByUserID *int       `json:"started_by_user_id,omitempty" db:"started_by_user_id"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Version backs the compare-and-swap taken by start/complete/reset.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasTeam reports whether teamID occupies either slot of the match.
func (m *Match) HasTeam(teamID int) bool {
	if m.TeamAID != nil && *m.TeamAID == teamID {
		return true
	}
	return m.TeamBID != nil && *m.TeamBID == teamID
}
