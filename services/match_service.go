package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cornhole-club/league-system/brackets"
	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
)

// MatchService owns the match lifecycle: pending -> in_progress -> complete,
// with an admin-only reset edge. Completion feeds the advancement engine,
// which writes the winner and loser into their downstream matches by the
// parity rules of the brackets package.
type MatchService interface {
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByTeam(ctx context.Context, tournamentID, teamID int) ([]*models.Match, error)

	Start(ctx context.Context, matchID int, actor Actor) (*models.Match, error)
	Complete(ctx context.Context, matchID, scoreA, scoreB int, actor Actor) (*models.Match, error)
	Reset(ctx context.Context, matchID int, actor Actor) (*models.Match, error)
}

type matchService struct {
	db        *sql.DB
	matchRepo repositories.MatchRepository
	teamRepo  repositories.TeamRepository
	hub       *brackets.Hub
	logger    *slog.Logger
	now       func() time.Time
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:        db,
		matchRepo: matchRepo,
		teamRepo:  teamRepo,
		hub:       hub,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	return match, mapRepoError(err)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

func (s *matchService) ListByTeam(ctx context.Context, tournamentID, teamID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTeam(ctx, tournamentID, teamID)
}

func (s *matchService) Start(ctx context.Context, matchID int, actor Actor) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if match.Status != models.MatchStatusPending {
		return nil, ErrMatchAlreadyStarted
	}
	if match.TeamAID == nil || match.TeamBID == nil {
		return nil, ErrTeamsNotAssigned
	}
	if err := s.authorize(ctx, match, actor); err != nil {
		return nil, err
	}

	err = s.matchRepo.CASStart(ctx, match.ID, match.Version, actor.UserID, s.now())
	if errors.Is(err, repositories.ErrMatchVersionConflict) {
		return nil, s.resolveConflict(ctx, match.ID, func(st models.MatchStatus) error {
			if st != models.MatchStatusPending {
				return ErrMatchAlreadyStarted
			}
			return ErrConcurrentUpdate
		})
	}
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, match.ID)
}

func (s *matchService) Complete(ctx context.Context, matchID, scoreA, scoreB int, actor Actor) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	correction := match.Status == models.MatchStatusComplete
	switch {
	case match.Status == models.MatchStatusPending:
		return nil, ErrMatchNotStarted
	case correction && !actor.IsAdmin:
		return nil, ErrMatchAlreadyComplete
	}
	if match.TeamAID == nil || match.TeamBID == nil {
		return nil, ErrTeamsNotAssigned
	}
	if scoreA < 0 || scoreB < 0 {
		return nil, ErrNegativeScore
	}
	if scoreA == scoreB {
		return nil, ErrTieScore
	}
	if err := s.authorize(ctx, match, actor); err != nil {
		return nil, err
	}

	winnerID, loserID := *match.TeamAID, *match.TeamBID
	if scoreB > scoreA {
		winnerID, loserID = loserID, winnerID
	}

	fromStatuses := []models.MatchStatus{models.MatchStatusInProgress}
	if correction {
		fromStatuses = append(fromStatuses, models.MatchStatusComplete)
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if correction {
			// A correction first withdraws the previously propagated results
			// so the new ones can take the (then empty) slots.
			if undoErr := s.undoAdvancement(ctx, tx, match); undoErr != nil {
				return undoErr
			}
		}
		casErr := s.matchRepo.CASComplete(ctx, tx, match.ID, match.Version, scoreA, scoreB, winnerID, loserID, s.now(), fromStatuses)
		if errors.Is(casErr, repositories.ErrMatchVersionConflict) {
			return ErrConcurrentUpdate
		}
		if casErr != nil {
			return casErr
		}
		return s.advance(ctx, tx, match, winnerID, loserID)
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, s.resolveConflict(ctx, match.ID, func(st models.MatchStatus) error {
				if st == models.MatchStatusComplete {
					return ErrMatchAlreadyComplete
				}
				return ErrConcurrentUpdate
			})
		}
		return nil, err
	}

	return s.reload(ctx, match.ID)
}

func (s *matchService) Reset(ctx context.Context, matchID int, actor Actor) (*models.Match, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if match.Status == models.MatchStatusPending {
		return nil, ErrMatchNotPlayed
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if match.Status == models.MatchStatusComplete {
			if undoErr := s.undoAdvancement(ctx, tx, match); undoErr != nil {
				return undoErr
			}
		}
		casErr := s.matchRepo.CASReset(ctx, tx, match.ID, match.Version)
		if errors.Is(casErr, repositories.ErrMatchVersionConflict) {
			return ErrConcurrentUpdate
		}
		return casErr
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, match.ID)
}

// advance writes the winner into its next-winner match and the loser into
// its next-loser match, selecting slots by the parity rules. The fill
// asserts the target slot was empty; by construction every slot has exactly
// one legitimate feeder, so an occupied slot is a consistency fault.
func (s *matchService) advance(ctx context.Context, tx *sql.Tx, match *models.Match, winnerID, loserID int) error {
	if match.NextWinnerMatchID != nil {
		slot := int(brackets.WinnerSlot(match.PositionInRound))
		if err := s.matchRepo.FillSlot(ctx, tx, *match.NextWinnerMatchID, slot, winnerID); err != nil {
			if errors.Is(err, repositories.ErrMatchSlotOccupied) {
				return fmt.Errorf("%w: winner of match %d into match %d", ErrSlotOccupied, match.ID, *match.NextWinnerMatchID)
			}
			return err
		}
	}
	if match.NextLoserMatchID != nil {
		slot := int(brackets.LoserSlot(match.PositionInRound))
		if err := s.matchRepo.FillSlot(ctx, tx, *match.NextLoserMatchID, slot, loserID); err != nil {
			if errors.Is(err, repositories.ErrMatchSlotOccupied) {
				return fmt.Errorf("%w: loser of match %d into match %d", ErrSlotOccupied, match.ID, *match.NextLoserMatchID)
			}
			return err
		}
	}
	return nil
}

// undoAdvancement removes the previously propagated winner and loser from
// their downstream slots. It refuses (ErrDownstreamStarted) when a
// downstream match has already left pending; the admin has to reset those
// matches first, deepest first.
func (s *matchService) undoAdvancement(ctx context.Context, tx *sql.Tx, match *models.Match) error {
	if match.NextWinnerMatchID != nil && match.WinnerID != nil {
		slot := int(brackets.WinnerSlot(match.PositionInRound))
		if err := s.matchRepo.ClearSlot(ctx, tx, *match.NextWinnerMatchID, slot, *match.WinnerID); err != nil {
			if errors.Is(err, repositories.ErrMatchSlotLocked) {
				return fmt.Errorf("%w: match %d", ErrDownstreamStarted, *match.NextWinnerMatchID)
			}
			return err
		}
	}
	if match.NextLoserMatchID != nil && match.LoserID != nil {
		slot := int(brackets.LoserSlot(match.PositionInRound))
		if err := s.matchRepo.ClearSlot(ctx, tx, *match.NextLoserMatchID, slot, *match.LoserID); err != nil {
			if errors.Is(err, repositories.ErrMatchSlotLocked) {
				return fmt.Errorf("%w: match %d", ErrDownstreamStarted, *match.NextLoserMatchID)
			}
			return err
		}
	}
	return nil
}

// authorize permits admins and members of either assigned team.
func (s *matchService) authorize(ctx context.Context, match *models.Match, actor Actor) error {
	if actor.IsAdmin {
		return nil
	}
	for _, teamID := range []*int{match.TeamAID, match.TeamBID} {
		if teamID == nil {
			continue
		}
		team, err := s.teamRepo.GetByID(ctx, *teamID)
		if err != nil {
			return mapRepoError(err)
		}
		if team.HasPlayer(actor.UserID) {
			return nil
		}
	}
	return ErrUnauthorized
}

// resolveConflict re-reads a match after a lost CAS to report the precise
// state error instead of a bare conflict.
func (s *matchService) resolveConflict(ctx context.Context, matchID int, classify func(models.MatchStatus) error) error {
	current, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return ErrConcurrentUpdate
	}
	return classify(current.Status)
}

func (s *matchService) reload(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.broadcast(match)
	return match, nil
}

func (s *matchService) broadcast(match *models.Match) {
	if s.hub == nil {
		return
	}
	room := strconv.Itoa(match.TournamentID)
	s.hub.BroadcastToRoom(room, brackets.Message{
		Type:    brackets.MessageMatchUpdated,
		RoomID:  room,
		Payload: match,
	})
	s.logger.Debug("match update broadcast", slog.Int("match_id", match.ID), slog.String("room", room))
}
