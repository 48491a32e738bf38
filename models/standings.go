package models

// TournamentState is the user-facing status derived by the standings
// projector. It is computed from the bracket status and the two finals,
// never stored.
type TournamentState string

const (
	StateRegistration TournamentState = "registration"
	StateInProgress   TournamentState = "in_progress"
	StateComplete     TournamentState = "complete"
)

// TeamStanding is one team's derived view over the current match set.
type TeamStanding struct {
	TeamID     int    `json:"team_id"`
	TeamName   string `json:"team_name"`
	SeedNumber *int   `json:"seed_number,omitempty"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	// Placement is 1..4 once the relevant final has completed, nil otherwise.
	Placement  *int `json:"placement,omitempty"`
	Eliminated bool `json:"eliminated"`
}

type TournamentSummary struct {
	TournamentID int             `json:"tournament_id"`
	State        TournamentState `json:"state"`
	Standings    []TeamStanding  `json:"standings"`
}
