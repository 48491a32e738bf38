package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cornhole-club/league-system/models"
	"github.com/cornhole-club/league-system/repositories"
)

// Actor is the authenticated identity behind an engine operation, extracted
// from the JWT by the middleware.
type Actor struct {
	UserID  int
	IsAdmin bool
}

// runInTx wraps fn in a transaction, rolling back on error or panic. It is a
// variable so tests can run fn against fake repositories without a database.
var runInTx = func(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapRepoError folds repository not-found sentinels into the service-level
// ErrNotFound so handlers only match one error.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound),
		errors.Is(err, repositories.ErrTeamNotFound),
		errors.Is(err, repositories.ErrTournamentNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

func teamsToValues(teams []*models.Team) []models.Team {
	result := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if t != nil {
			result = append(result, *t)
		}
	}
	return result
}

func matchesToValues(matches []*models.Match) []models.Match {
	result := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			result = append(result, *m)
		}
	}
	return result
}
