package brackets

import (
	"context"

	"github.com/cornhole-club/league-system/models"
)

type GenerateParams struct {
	Tournament *models.Tournament
	// Teams is the ordered eligible roster: seed number ascending with nulls
	// last, then registration time. Effective seeds are assigned by position.
	Teams []*models.Team
}

type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*BracketMatch, error)

	Name() string
}

// Slot identifies one of the two team positions in a match.
type Slot int

const (
	SlotA Slot = 1
	SlotB Slot = 2
)

// WinnerSlot returns the slot a feeder match's winner occupies in its
// next-winner match: odd positions feed slot A, even positions slot B. Two
// sibling matches sharing a downstream match therefore never collide.
func WinnerSlot(positionInRound int) Slot {
	if positionInRound%2 == 1 {
		return SlotA
	}
	return SlotB
}

// LoserSlot is the inverted rule used for next-loser pointers. A consolation
// match can receive a consolation-ladder winner and a freshly dropped
// winners-bracket loser at the same time; inverting the parity for the drop
// keeps the two writes on different slots.
func LoserSlot(positionInRound int) Slot {
	if positionInRound%2 == 1 {
		return SlotB
	}
	return SlotA
}
