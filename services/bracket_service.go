package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cornhole-club/league-system/brackets"
	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
	"golang.org/x/sync/errgroup"
)

// BracketService creates and destroys whole match sets. Generation is
// all-or-nothing: the in-memory topology from the brackets package is
// persisted in one transaction, first the rows, then the forward pointers
// once every generated UID has a database id.
type BracketService interface {
	Generate(ctx context.Context, tournamentID int, actor Actor) (*models.Tournament, error)
	Publish(ctx context.Context, tournamentID int, actor Actor) error
	Delete(ctx context.Context, tournamentID int, actor Actor) error

	// SyncRoster applies the regeneration policy: when the eligible roster no
	// longer matches the teams seeded into round 1 and no match has left
	// pending, the bracket is rebuilt; once play has begun it is kept as-is.
	SyncRoster(ctx context.Context, tournamentID int) error

	GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	generator      brackets.Generator
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	generator brackets.Generator,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		generator:      generator,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) Generate(ctx context.Context, tournamentID int, actor Actor) (*models.Tournament, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	if _, err := s.regenerate(ctx, tournamentID); err != nil {
		return nil, err
	}
	bracket, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	s.broadcast(tournamentID, bracket)
	return bracket, nil
}

func (s *bracketService) Publish(ctx context.Context, tournamentID int, actor Actor) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return mapRepoError(err)
	}
	switch tournament.BracketStatus {
	case models.BracketNone:
		return ErrBracketNotFound
	case models.BracketPublished:
		return ErrBracketPublished
	}
	if err := s.tournamentRepo.UpdateBracketStatus(ctx, s.db, tournamentID, models.BracketPublished); err != nil {
		return mapRepoError(err)
	}

	bracket, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		s.logger.Warn("bracket published but reload failed", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return nil
	}
	s.broadcast(tournamentID, bracket)
	return nil
}

// Delete destroys the whole match set and reverts the tournament to an
// unpublished bracket. Admin-only; this is the full-regeneration escape
// hatch, there is no partial bracket editing.
func (s *bracketService) Delete(ctx context.Context, tournamentID int, actor Actor) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return mapRepoError(err)
	}
	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateBracketStatus(ctx, tx, tournamentID, models.BracketNone)
	})
	if err != nil {
		return err
	}
	s.broadcast(tournamentID, nil)
	return nil
}

func (s *bracketService) SyncRoster(ctx context.Context, tournamentID int) error {
	existing, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}

	eligible, err := s.teamRepo.ListEligible(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !rosterChanged(existing, eligible) {
		return nil
	}

	if _, err := s.regenerate(ctx, tournamentID); err != nil {
		return err
	}
	bracket, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		return err
	}
	s.broadcast(tournamentID, bracket)
	return nil
}

// regenerate rebuilds the match set from the current eligible roster inside
// one transaction. An existing bracket is only replaced while every match is
// still pending.
func (s *bracketService) regenerate(ctx context.Context, tournamentID int) ([]*brackets.BracketMatch, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	teams, err := s.teamRepo.ListEligible(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, brackets.GenerateParams{
		Tournament: tournament,
		Teams:      teams,
	})
	if err != nil {
		return nil, err
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		notPending, countErr := s.matchRepo.CountNotPending(ctx, tournamentID)
		if countErr != nil {
			return countErr
		}
		if notPending > 0 {
			return ErrBracketLocked
		}
		if delErr := s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); delErr != nil {
			return delErr
		}
		if persistErr := s.persist(ctx, tx, tournamentID, generated); persistErr != nil {
			return persistErr
		}
		if tournament.BracketStatus == models.BracketNone {
			return s.tournamentRepo.UpdateBracketStatus(ctx, tx, tournamentID, models.BracketDraft)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("teams", len(teams)),
		slog.Int("matches", len(generated)),
	)
	return generated, nil
}

// persist stores the generated topology. First pass inserts every match and
// records its database id by UID; second pass rewrites the UID forward
// pointers into database ids.
func (s *bracketService) persist(ctx context.Context, tx *sql.Tx, tournamentID int, generated []*brackets.BracketMatch) error {
	idByUID := make(map[string]int, len(generated))

	for _, bm := range generated {
		match := &models.Match{
			TournamentID:    tournamentID,
			BracketType:     bm.BracketType,
			RoundNumber:     bm.Round,
			MatchNumber:     bm.MatchNumber,
			PositionInRound: bm.PositionInRound,
			TeamAID:         bm.TeamAID,
			TeamBID:         bm.TeamBID,
			WinnerID:        bm.WinnerID,
			IsFinals:        bm.IsFinals,
			Status:          bm.Status,
			CompletedAt:     bm.CompletedAt,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return fmt.Errorf("failed to persist match %s: %w", bm.UID, err)
		}
		idByUID[bm.UID] = match.ID
	}

	for _, bm := range generated {
		if bm.NextWinnerUID == nil && bm.NextLoserUID == nil {
			continue
		}
		var nextWinnerID, nextLoserID *int
		if bm.NextWinnerUID != nil {
			id, ok := idByUID[*bm.NextWinnerUID]
			if !ok {
				return fmt.Errorf("generated match %s points at unknown match %s", bm.UID, *bm.NextWinnerUID)
			}
			nextWinnerID = &id
		}
		if bm.NextLoserUID != nil {
			id, ok := idByUID[*bm.NextLoserUID]
			if !ok {
				return fmt.Errorf("generated match %s points at unknown match %s", bm.UID, *bm.NextLoserUID)
			}
			nextLoserID = &id
		}
		if err := s.matchRepo.UpdateForwardPointers(ctx, tx, idByUID[bm.UID], nextWinnerID, nextLoserID); err != nil {
			return err
		}
	}
	return nil
}

// GetBracket assembles the full bracket view: tournament, roster and match
// set, loaded in parallel.
func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	var (
		tournament *models.Tournament
		teams      []*models.Team
		matches    []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.teamRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return err
		}
		teams = list
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return err
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tournament.Teams = teamsToValues(teams)
	tournament.Matches = matchesToValues(matches)
	return tournament, nil
}

// rosterChanged compares the eligible roster against the teams currently
// seeded into winners round 1.
func rosterChanged(existing []*models.Match, eligible []*models.Team) bool {
	seeded := make(map[int]bool)
	for _, m := range existing {
		if m.BracketType != models.BracketWinners || m.RoundNumber != 1 {
			continue
		}
		if m.TeamAID != nil {
			seeded[*m.TeamAID] = true
		}
		if m.TeamBID != nil {
			seeded[*m.TeamBID] = true
		}
	}
	if len(seeded) != len(eligible) {
		return true
	}
	for _, t := range eligible {
		if !seeded[t.ID] {
			return true
		}
	}
	return false
}

func (s *bracketService) broadcast(tournamentID int, bracket *models.Tournament) {
	if s.hub == nil {
		return
	}
	room := strconv.Itoa(tournamentID)
	s.hub.BroadcastToRoom(room, brackets.Message{
		Type:    brackets.MessageBracketUpdated,
		RoomID:  room,
		Payload: bracket,
	})
}
