package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clantools/bingo-system/models"
)

type SignupRepository interface {
	Add(ctx context.Context, exec SQLExecutor, eventID int, userID int64, joinedAt time.Time) error
	Remove(ctx context.Context, exec SQLExecutor, eventID int, userID int64) error
	ListUserIDs(ctx context.Context, exec SQLExecutor, eventID int) ([]int64, error)
	List(ctx context.Context, eventID int) ([]models.Signup, error)
}

type postgresSignupRepository struct {
	db *sql.DB
}

func NewPostgresSignupRepository(db *sql.DB) SignupRepository {
	return &postgresSignupRepository{db: db}
}

func (r *postgresSignupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Add inserts a roster entry. A duplicate join is a no-op, backed by the
// (event_id, user_id) primary key.
func (r *postgresSignupRepository) Add(ctx context.Context, exec SQLExecutor, eventID int, userID int64, joinedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO signups (event_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING`
	if _, err := executor.ExecContext(ctx, query, eventID, userID, joinedAt.UTC()); err != nil {
		return fmt.Errorf("failed to add signup (event %d, user %d): %w", eventID, userID, err)
	}
	return nil
}

// Remove deletes a roster entry. Removing an absent entry is not an error.
func (r *postgresSignupRepository) Remove(ctx context.Context, exec SQLExecutor, eventID int, userID int64) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM signups WHERE event_id = $1 AND user_id = $2`, eventID, userID); err != nil {
		return fmt.Errorf("failed to remove signup (event %d, user %d): %w", eventID, userID, err)
	}
	return nil
}

func (r *postgresSignupRepository) ListUserIDs(ctx context.Context, exec SQLExecutor, eventID int) ([]int64, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `SELECT user_id FROM signups WHERE event_id = $1 ORDER BY joined_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups for event %d: %w", eventID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", scanErr)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresSignupRepository) List(ctx context.Context, eventID int) ([]models.Signup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id, user_id, joined_at FROM signups WHERE event_id = $1 ORDER BY joined_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups for event %d: %w", eventID, err)
	}
	defer rows.Close()

	signups := make([]models.Signup, 0)
	for rows.Next() {
		var s models.Signup
		if scanErr := rows.Scan(&s.EventID, &s.UserID, &s.JoinedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", scanErr)
		}
		signups = append(signups, s)
	}
	return signups, rows.Err()
}
