package models

import "time"

// Team is a two-player cornhole team. A team becomes eligible for seeding
// once both player slots are confirmed.
type Team struct {
	ID           int     `json:"id" db:"id"`
	TournamentID int     `json:"tournament_id" db:"tournament_id"`
	Name         string  `json:"name" db:"name"`
	SeedNumber   *int    `json:"seed_number,omitempty" db:"seed_number"`
	Player1ID    *int    `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int    `json:"player2_id,omitempty" db:"player2_id"`
	InviteCode   string  `json:"-" db:"invite_code"`
	LogoKey      *string `json:"-" db:"logo_key"`
	LogoURL      *string `json:"logo_url,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Player1 *User `json:"player1,omitempty" db:"-"`
	Player2 *User `json:"player2,omitempty" db:"-"`
}

// Eligible reports whether the team has two confirmed members.
func (t *Team) Eligible() bool {
	return t.Player1ID != nil && t.Player2ID != nil
}

// HasPlayer reports whether userID occupies either player slot.
func (t *Team) HasPlayer(userID int) bool {
	if t.Player1ID != nil && *t.Player1ID == userID {
		return true
	}
	return t.Player2ID != nil && *t.Player2ID == userID
}
