package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
)

// TournamentService manages tournament lifecycle and derives the read-only
// summary view. Standings are projected from the match set on every call and
// never stored, so they can not drift from the results.
type TournamentService interface {
	Create(ctx context.Context, name string, eventDate *time.Time, actor Actor) (*models.Tournament, error)
	GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)

	OpenRegistration(ctx context.Context, tournamentID int, actor Actor) error
	CloseRegistration(ctx context.Context, tournamentID int, actor Actor) error

	Summary(ctx context.Context, tournamentID int) (*models.TournamentSummary, error)
	TeamRecord(ctx context.Context, tournamentID, teamID int) (*models.TeamStanding, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, name string, eventDate *time.Time, actor Actor) (*models.Tournament, error) {
	if !actor.IsAdmin {
		return nil, ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	tournament := &models.Tournament{
		Name:               name,
		EventDate:          eventDate,
		RegistrationStatus: models.RegistrationOpen,
		BracketStatus:      models.BracketNone,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}
	s.logger.Info("tournament created", slog.Int("tournament_id", tournament.ID), slog.String("name", name))
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	return tournament, mapRepoError(err)
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx)
}

func (s *tournamentService) OpenRegistration(ctx context.Context, tournamentID int, actor Actor) error {
	return s.setRegistration(ctx, tournamentID, models.RegistrationOpen, actor)
}

func (s *tournamentService) CloseRegistration(ctx context.Context, tournamentID int, actor Actor) error {
	return s.setRegistration(ctx, tournamentID, models.RegistrationClosed, actor)
}

func (s *tournamentService) setRegistration(ctx context.Context, tournamentID int, status models.RegistrationStatus, actor Actor) error {
	if !actor.IsAdmin {
		return ErrUnauthorized
	}
	if err := s.tournamentRepo.UpdateRegistrationStatus(ctx, tournamentID, status); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Summary projects tournament state and team standings from the current
// match set.
func (s *tournamentService) Summary(ctx context.Context, tournamentID int) (*models.TournamentSummary, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	teams, err := s.teamRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	summary := &models.TournamentSummary{
		TournamentID: tournamentID,
		State:        projectState(tournament, matches),
		Standings:    projectStandings(teams, matches),
	}
	return summary, nil
}

func (s *tournamentService) TeamRecord(ctx context.Context, tournamentID, teamID int) (*models.TeamStanding, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if team.TournamentID != tournamentID {
		return nil, ErrNotFound
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	for _, standing := range projectStandings([]*models.Team{team}, matches) {
		if standing.TeamID == teamID {
			return &standing, nil
		}
	}
	return nil, ErrNotFound
}

// projectState derives the user-facing tournament state. A tournament is in
// progress once its bracket is published and complete once both finals have
// been played.
func projectState(tournament *models.Tournament, matches []*models.Match) models.TournamentState {
	if tournament.BracketStatus != models.BracketPublished {
		return models.StateRegistration
	}

	finals, finalsComplete := 0, 0
	for _, m := range matches {
		if !m.IsFinals {
			continue
		}
		finals++
		if m.Status == models.MatchStatusComplete {
			finalsComplete++
		}
	}
	if finals > 0 && finals == finalsComplete {
		return models.StateComplete
	}
	return models.StateInProgress
}

func projectStandings(teams []*models.Team, matches []*models.Match) []models.TeamStanding {
	wins := make(map[int]int)
	losses := make(map[int]int)
	placements := make(map[int]int)
	eliminated := make(map[int]bool)

	for _, m := range matches {
		if m.Status != models.MatchStatusComplete || m.WinnerID == nil {
			continue
		}
		wins[*m.WinnerID]++
		if m.LoserID != nil {
			losses[*m.LoserID]++
		}

		switch {
		case m.IsFinals && m.BracketType == models.BracketWinners:
			placements[*m.WinnerID] = 1
			if m.LoserID != nil {
				placements[*m.LoserID] = 2
			}
		case m.IsFinals && m.BracketType == models.BracketConsolation:
			placements[*m.WinnerID] = 3
			if m.LoserID != nil {
				placements[*m.LoserID] = 4
			}
		case m.BracketType == models.BracketConsolation && m.LoserID != nil:
			// A consolation loss before the third-place final ends the run.
			eliminated[*m.LoserID] = true
		}
	}

	standings := make([]models.TeamStanding, 0, len(teams))
	for _, team := range teams {
		standing := models.TeamStanding{
			TeamID:     team.ID,
			TeamName:   team.Name,
			SeedNumber: team.SeedNumber,
			Wins:       wins[team.ID],
			Losses:     losses[team.ID],
		}
		if place, ok := placements[team.ID]; ok {
			p := place
			standing.Placement = &p
		} else if eliminated[team.ID] {
			standing.Eliminated = true
		}
		standings = append(standings, standing)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		switch {
		case a.Placement != nil && b.Placement != nil:
			return *a.Placement < *b.Placement
		case a.Placement != nil:
			return true
		case b.Placement != nil:
			return false
		case a.Wins != b.Wins:
			return a.Wins > b.Wins
		case a.Losses != b.Losses:
			return a.Losses < b.Losses
		default:
			return a.TeamName < b.TeamName
		}
	})
	return standings
}
