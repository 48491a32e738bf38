package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cornhole-club/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamNameConflict  = errors.New("team name already in use for this tournament")
	ErrTeamPlayerInvalid = errors.New("team player reference invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error)
	// ListEligible returns teams with both player slots confirmed, ordered by
	// seed number ascending with nulls last, then by registration time.
	ListEligible(ctx context.Context, tournamentID int) ([]*models.Team, error)
	UpdatePlayers(ctx context.Context, teamID int, player1ID, player2ID *int) error
	UpdateSeed(ctx context.Context, teamID int, seedNumber *int) error
	UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, tournament_id, name, seed_number, player1_id, player2_id, invite_code, logo_key, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (tournament_id, name, seed_number, player1_id, player2_id, invite_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.TournamentID,
		team.Name,
		team.SeedNumber,
		team.Player1ID,
		team.Player2ID,
		team.InviteCode,
	).Scan(&team.ID, &team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByInviteCode(ctx context.Context, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE invite_code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE tournament_id = $1
		ORDER BY seed_number ASC NULLS LAST, created_at ASC, id ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresTeamRepository) ListEligible(ctx context.Context, tournamentID int) ([]*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams
		WHERE tournament_id = $1
		  AND player1_id IS NOT NULL
		  AND player2_id IS NOT NULL
		ORDER BY seed_number ASC NULLS LAST, created_at ASC, id ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresTeamRepository) UpdatePlayers(ctx context.Context, teamID int, player1ID, player2ID *int) error {
	query := `UPDATE teams SET player1_id = $1, player2_id = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, player1ID, player2ID, teamID)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateSeed(ctx context.Context, teamID int, seedNumber *int) error {
	query := `UPDATE teams SET seed_number = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, seedNumber, teamID)
	if err != nil {
		return fmt.Errorf("failed to update seed for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, teamID)
	if err != nil {
		return fmt.Errorf("failed to update logo key for team %d: %w", teamID, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) scanOne(row *sql.Row) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(
		&team.ID,
		&team.TournamentID,
		&team.Name,
		&team.SeedNumber,
		&team.Player1ID,
		&team.Player2ID,
		&team.InviteCode,
		&team.LogoKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	return team, nil
}

func (r *postgresTeamRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team := &models.Team{}
		if scanErr := rows.Scan(
			&team.ID,
			&team.TournamentID,
			&team.Name,
			&team.SeedNumber,
			&team.Player1ID,
			&team.Player2ID,
			&team.InviteCode,
			&team.LogoKey,
			&team.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "teams_tournament_id_name_key":
			return ErrTeamNameConflict
		case "teams_player1_id_fkey", "teams_player2_id_fkey":
			return ErrTeamPlayerInvalid
		}
	}
	return err
}
