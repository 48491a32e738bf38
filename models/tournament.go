package models

import "time"

type RegistrationStatus string

const (
	RegistrationOpen   RegistrationStatus = "open"
	RegistrationClosed RegistrationStatus = "closed"
)

type BracketStatus string

const (
	BracketNone      BracketStatus = "none"
	BracketDraft     BracketStatus = "draft"
	BracketPublished BracketStatus = "published"
)

type Tournament struct {
	ID                 int                `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	EventDate          *time.Time         `json:"event_date,omitempty" db:"event_date"`
	RegistrationStatus RegistrationStatus `json:"registration_status" db:"registration_status"`
	BracketStatus      BracketStatus      `json:"bracket_status" db:"bracket_status"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`

	Teams   []Team  `json:"teams,omitempty" db:"-"`
	Matches []Match `json:"matches,omitempty" db:"-"`
}
