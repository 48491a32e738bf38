package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cornhole-club/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchVersionConflict   = errors.New("match was modified concurrently")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchTeamInvalid       = errors.New("match team conflict or invalid")
	ErrMatchSlotOccupied      = errors.New("match slot is already occupied")
	ErrMatchSlotLocked        = errors.New("match slot is not held by the team or the match has progressed")
)

const (
	SlotTeamA = 1
	SlotTeamB = 2
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByTeam(ctx context.Context, tournamentID, teamID int) ([]*models.Match, error)
	UpdateForwardPointers(ctx context.Context, exec SQLExecutor, matchID int, nextWinnerID, nextLoserID *int) error

	// FillSlot writes a team into a slot only if the slot is currently empty;
	// an occupied slot means two feeders raced and is a consistency error.
	// ClearSlot removes a team from a slot only while the match is still
	// pending, so undoing advancement can never corrupt a started match.
	FillSlot(ctx context.Context, exec SQLExecutor, matchID, slot, teamID int) error
	ClearSlot(ctx context.Context, exec SQLExecutor, matchID, slot, teamID int) error

	// The CAS updates guard every lifecycle transition with the stored
	// version; zero affected rows surfaces as ErrMatchVersionConflict and the
	// caller re-reads the row to report the precise state error.
	CASStart(ctx context.Context, matchID, version, startedByUserID int, startedAt time.Time) error
	CASComplete(ctx context.Context, exec SQLExecutor, matchID, version int, scoreA, scoreB, winnerID, loserID int, completedAt time.Time, fromStatuses []models.MatchStatus) error
	CASReset(ctx context.Context, exec SQLExecutor, matchID, version int) error

	CountNotPending(ctx context.Context, tournamentID int) (int, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, bracket_type, round_number, match_number, position_in_round,
		team_a_id, team_b_id, score_a, score_b, winner_id, loser_id,
		next_winner_match_id, next_loser_match_id, is_finals, status,
		started_by_user_id, started_at, completed_at, version, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, bracket_type, round_number, match_number, position_in_round,
			 team_a_id, team_b_id, winner_id, is_finals, status, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.BracketType,
		match.RoundNumber,
		match.MatchNumber,
		match.PositionInRound,
		match.TeamAID,
		match.TeamBID,
		match.WinnerID,
		match.IsFinals,
		match.Status,
		match.CompletedAt,
	).Scan(&match.ID, &match.Version, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY match_number ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) ListByTeam(ctx context.Context, tournamentID, teamID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND (team_a_id = $2 OR team_b_id = $2)
		ORDER BY match_number ASC`
	return r.list(ctx, query, tournamentID, teamID)
}

func (r *postgresMatchRepository) UpdateForwardPointers(ctx context.Context, exec SQLExecutor, matchID int, nextWinnerID, nextLoserID *int) error {
	query := `UPDATE matches SET next_winner_match_id = $1, next_loser_match_id = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, nextWinnerID, nextLoserID, matchID)
	if err != nil {
		return fmt.Errorf("failed to wire forward pointers for match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, matchID, slot, teamID int) error {
	column := slotColumn(slot)
	query := `UPDATE matches SET ` + column + ` = $1 WHERE id = $2 AND ` + column + ` IS NULL`
	result, err := exec.ExecContext(ctx, query, teamID, matchID)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchSlotOccupied)
}

func (r *postgresMatchRepository) ClearSlot(ctx context.Context, exec SQLExecutor, matchID, slot, teamID int) error {
	column := slotColumn(slot)
	query := `UPDATE matches SET ` + column + ` = NULL WHERE id = $1 AND ` + column + ` = $2 AND status = $3`
	result, err := exec.ExecContext(ctx, query, matchID, teamID, models.MatchStatusPending)
	if err != nil {
		return fmt.Errorf("failed to clear slot of match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchSlotLocked)
}

func slotColumn(slot int) string {
	if slot == SlotTeamB {
		return "team_b_id"
	}
	return "team_a_id"
}

func (r *postgresMatchRepository) CASStart(ctx context.Context, matchID, version, startedByUserID int, startedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, started_by_user_id = $2, started_at = $3, version = version + 1
		WHERE id = $4 AND version = $5 AND status = $6`

	result, err := r.db.ExecContext(ctx, query,
		models.MatchStatusInProgress, startedByUserID, startedAt,
		matchID, version, models.MatchStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to start match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

func (r *postgresMatchRepository) CASComplete(ctx context.Context, exec SQLExecutor, matchID, version, scoreA, scoreB, winnerID, loserID int, completedAt time.Time, fromStatuses []models.MatchStatus) error {
	statuses := make([]string, len(fromStatuses))
	for i, s := range fromStatuses {
		statuses[i] = string(s)
	}

	query := `
		UPDATE matches
		SET status = $1, score_a = $2, score_b = $3, winner_id = $4, loser_id = $5,
		    completed_at = $6, version = version + 1
		WHERE id = $7 AND version = $8 AND status = ANY($9)`

	result, err := exec.ExecContext(ctx, query,
		models.MatchStatusComplete, scoreA, scoreB, winnerID, loserID, completedAt,
		matchID, version, pq.Array(statuses),
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

func (r *postgresMatchRepository) CASReset(ctx context.Context, exec SQLExecutor, matchID, version int) error {
	query := `
		UPDATE matches
		SET status = $1, score_a = NULL, score_b = NULL, winner_id = NULL, loser_id = NULL,
		    started_by_user_id = NULL, started_at = NULL, completed_at = NULL, version = version + 1
		WHERE id = $2 AND version = $3 AND status <> $4`

	result, err := exec.ExecContext(ctx, query,
		models.MatchStatusPending, matchID, version, models.MatchStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to reset match %d: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchVersionConflict)
}

func (r *postgresMatchRepository) CountNotPending(ctx context.Context, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status <> $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, tournamentID, models.MatchStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count non-pending matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	query := `DELETE FROM matches WHERE tournament_id = $1`
	if _, err := exec.ExecContext(ctx, query, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.TournamentID,
		&match.BracketType,
		&match.RoundNumber,
		&match.MatchNumber,
		&match.PositionInRound,
		&match.TeamAID,
		&match.TeamBID,
		&match.ScoreA,
		&match.ScoreB,
		&match.WinnerID,
		&match.LoserID,
		&match.NextWinnerMatchID,
		&match.NextLoserMatchID,
		&match.IsFinals,
		&match.Status,
		&match.StartedByUserID,
		&match.StartedAt,
		&match.CompletedAt,
		&match.Version,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_team_a_id_fkey", "matches_team_b_id_fkey", "matches_winner_id_fkey", "matches_loser_id_fkey":
			return ErrMatchTeamInvalid
		}
	}
	return err
}
