package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
	"github.com/cornhole-club/league-system/storage"
	"github.com/google/uuid"
)

// TeamService manages registration: two-player teams that join via invite
// code. Roster changes feed the bracket regeneration policy through
// BracketService.SyncRoster, so a draft bracket always reflects the current
// eligible roster.
type TeamService interface {
	Create(ctx context.Context, tournamentID int, name string, actor Actor) (*models.Team, error)
	GetByID(ctx context.Context, teamID int) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)

	Join(ctx context.Context, inviteCode string, actor Actor) (*models.Team, error)
	Leave(ctx context.Context, teamID int, actor Actor) error
	SetSeed(ctx context.Context, teamID int, seedNumber *int, actor Actor) error
	UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader, actor Actor) (*models.Team, error)
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	bracketService BracketService
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		bracketService: bracketService,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *teamService) Create(ctx context.Context, tournamentID int, name string, actor Actor) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	if err := s.requireOpenRegistration(ctx, tournamentID); err != nil {
		return nil, err
	}
	if err := s.requireNotOnTeam(ctx, tournamentID, actor.UserID); err != nil {
		return nil, err
	}

	creatorID := actor.UserID
	team := &models.Team{
		TournamentID: tournamentID,
		Name:         name,
		Player1ID:    &creatorID,
		InviteCode:   uuid.NewString(),
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameTaken
		}
		return nil, err
	}
	s.logger.Info("team created", slog.Int("team_id", team.ID), slog.Int("tournament_id", tournamentID))
	return s.decorate(team), nil
}

func (s *teamService) GetByID(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.decorate(team), nil
}

func (s *teamService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		s.decorate(team)
	}
	return teams, nil
}

func (s *teamService) Join(ctx context.Context, inviteCode string, actor Actor) (*models.Team, error) {
	team, err := s.teamRepo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	if err := s.requireOpenRegistration(ctx, team.TournamentID); err != nil {
		return nil, err
	}
	if err := s.requireNotOnTeam(ctx, team.TournamentID, actor.UserID); err != nil {
		return nil, err
	}

	userID := actor.UserID
	switch {
	case team.Player1ID == nil:
		team.Player1ID = &userID
	case team.Player2ID == nil:
		team.Player2ID = &userID
	default:
		return nil, ErrTeamFull
	}
	if err := s.teamRepo.UpdatePlayers(ctx, team.ID, team.Player1ID, team.Player2ID); err != nil {
		return nil, mapRepoError(err)
	}

	s.syncRoster(ctx, team.TournamentID)
	return s.decorate(team), nil
}

func (s *teamService) Leave(ctx context.Context, teamID int, actor Actor) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return mapRepoError(err)
	}
	if !team.HasPlayer(actor.UserID) && !actor.IsAdmin {
		return ErrNotOnTeam
	}
	if err := s.requireOpenRegistration(ctx, team.TournamentID); err != nil {
		return err
	}

	switch {
	case team.Player1ID != nil && *team.Player1ID == actor.UserID:
		team.Player1ID = nil
	case team.Player2ID != nil && *team.Player2ID == actor.UserID:
		team.Player2ID = nil
	default:
		return ErrNotOnTeam
	}
	if err := s.teamRepo.UpdatePlayers(ctx, team.ID, team.Player1ID, team.Player2ID); err != nil {
		return mapRepoError(err)
	}

	s.syncRoster(ctx, team.TournamentID)
	return nil
}

func (s *teamService) SetSeed(ctx context.Context, teamID int, seedNumber *int, actor Actor) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.teamRepo.UpdateSeed(ctx, teamID, seedNumber); err != nil {
		return mapRepoError(err)
	}

	// Reseeding reorders the roster, which changes round 1 pairings of a
	// still-pending bracket.
	s.syncRoster(ctx, team.TournamentID)
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader, actor Actor) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !team.HasPlayer(actor.UserID) && !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.uploader == nil {
		return nil, errors.New("file storage is not configured")
	}

	key := fmt.Sprintf("teams/%d/logo", team.ID)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}
	if err := s.teamRepo.UpdateLogoKey(ctx, team.ID, &result.Key); err != nil {
		return nil, mapRepoError(err)
	}

	team.LogoKey = &result.Key
	return s.decorate(team), nil
}

func (s *teamService) requireOpenRegistration(ctx context.Context, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return mapRepoError(err)
	}
	if tournament.RegistrationStatus != models.RegistrationOpen {
		return ErrRegistrationClosed
	}
	return nil
}

func (s *teamService) requireNotOnTeam(ctx context.Context, tournamentID, userID int) error {
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	for _, team := range teams {
		if team.HasPlayer(userID) {
			return ErrAlreadyOnTeam
		}
	}
	return nil
}

// syncRoster nudges the bracket regeneration policy after a roster change.
// A locked bracket is expected once play has begun and is not an error here.
func (s *teamService) syncRoster(ctx context.Context, tournamentID int) {
	if s.bracketService == nil {
		return
	}
	if err := s.bracketService.SyncRoster(ctx, tournamentID); err != nil && !errors.Is(err, ErrBracketLocked) {
		s.logger.Error("failed to sync bracket after roster change",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}

func (s *teamService) decorate(team *models.Team) *models.Team {
	if team.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*team.LogoKey)
		team.LogoURL = &url
	}
	return team
}
