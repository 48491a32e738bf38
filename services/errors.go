package services

import "errors"

// Shared error taxonomy surfaced by the service layer and mapped onto HTTP
// statuses in the handlers. Engine operations always return one of these
// rather than panicking; a failed call means no state change occurred, and
// callers must not blindly retry state-mutating operations.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Authorization
	ErrUnauthorized       = errors.New("operation not allowed for the current user")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already taken")

	// Match state machine
	ErrMatchAlreadyStarted  = errors.New("match has already been started")
	ErrMatchNotStarted      = errors.New("match has not been started")
	ErrMatchAlreadyComplete = errors.New("match is already complete")
	ErrMatchNotPlayed       = errors.New("match has no result to reset")
	ErrTeamsNotAssigned     = errors.New("both teams must be assigned before this operation")
	ErrTieScore             = errors.New("cornhole matches cannot end in a tie")
	ErrNegativeScore        = errors.New("scores must be zero or positive")
	ErrConcurrentUpdate     = errors.New("match was modified by another request, reload and retry manually")

	// Advancement consistency
	ErrSlotOccupied      = errors.New("advancement target slot is already occupied")
	ErrDownstreamStarted = errors.New("a downstream match has already progressed")

	// Bracket lifecycle
	ErrBracketLocked    = errors.New("bracket is locked: at least one match has left pending")
	ErrBracketNotFound  = errors.New("no bracket has been generated for this tournament")
	ErrBracketPublished = errors.New("bracket is already published")

	// Teams and registration
	ErrTeamNameRequired   = errors.New("team name is required")
	ErrTeamNameTaken      = errors.New("team name is already taken in this tournament")
	ErrTeamFull           = errors.New("team already has two confirmed players")
	ErrAlreadyOnTeam      = errors.New("user is already on a team in this tournament")
	ErrNotOnTeam          = errors.New("user is not a member of this team")
	ErrInviteInvalid      = errors.New("invite code is invalid")
	ErrRegistrationClosed = errors.New("tournament registration is closed")

	// Tournaments
	ErrTournamentNameRequired = errors.New("tournament name is required")
)
