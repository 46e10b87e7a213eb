package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clantools/bingo-system/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound = errors.New("event not found")
	// ErrEventStatusConflict is returned by guarded status updates when the
	// row is no longer in the expected state. Callers treat it as "another
	// scan got here first" and skip the transition.
	ErrEventStatusConflict = errors.New("event is not in the expected status")
)

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.Event) error
	GetByID(ctx context.Context, id int) (*models.Event, error)
	GetActiveByGroup(ctx context.Context, groupID int64) (*models.Event, error)
	ListNonTerminal(ctx context.Context) ([]*models.Event, error)
	UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id int, from []models.EventStatus, to models.EventStatus) error
	SetSignupMessageID(ctx context.Context, exec SQLExecutor, id int, messageID int64) error
	SetLeaderboardMessageID(ctx context.Context, exec SQLExecutor, id int, messageID int64) error
	Delete(ctx context.Context, id int) error
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const eventColumns = `
	id, group_id, name, game_mode, team_size, team_mode, notify_role_id,
	start_at, end_at, signup_close_at, reveal_board,
	approval_policy, approvals_required, status,
	signup_message_id, leaderboard_message_id, board_image_key,
	created_by, created_at`

func scanEvent(row interface{ Scan(...interface{}) error }, e *models.Event) error {
	return row.Scan(
		&e.ID, &e.GroupID, &e.Name, &e.GameMode, &e.TeamSize, &e.TeamMode, &e.NotifyRoleID,
		&e.StartAt, &e.EndAt, &e.SignupCloseAt, &e.RevealBoard,
		&e.ApprovalPolicy, &e.ApprovalsRequired, &e.Status,
		&e.SignupMessageID, &e.LeaderboardMessageID, &e.BoardImageKey,
		&e.CreatedBy, &e.CreatedAt,
	)
}

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Event) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO events (
			group_id, name, game_mode, team_size, team_mode, notify_role_id,
			start_at, end_at, signup_close_at, reveal_board,
			approval_policy, approvals_required, status, board_image_key, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		e.GroupID, e.Name, e.GameMode, e.TeamSize, e.TeamMode, e.NotifyRoleID,
		e.StartAt.UTC(), nullableUTC(e.EndAt), e.SignupCloseAt.UTC(), e.RevealBoard,
		e.ApprovalPolicy, e.ApprovalsRequired, e.Status, e.BoardImageKey, e.CreatedBy, e.CreatedAt.UTC(),
	).Scan(&e.ID, &e.CreatedAt)

	return r.handleEventError(err)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT` + eventColumns + ` FROM events WHERE id = $1`

	e := &models.Event{}
	if err := scanEvent(r.db.QueryRowContext(ctx, query, id), e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// GetActiveByGroup returns the single non-terminal event of a group, or
// ErrEventNotFound when none exists.
func (r *postgresEventRepository) GetActiveByGroup(ctx context.Context, groupID int64) (*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE group_id = $1 AND status IN ($2, $3, $4, $5)
		ORDER BY id DESC
		LIMIT 1`

	e := &models.Event{}
	err := scanEvent(r.db.QueryRowContext(ctx, query, groupID,
		models.StatusSetup, models.StatusSignupOpen, models.StatusSignupClosed, models.StatusRunning), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListNonTerminal returns every event a scheduler scan must evaluate.
// Due-ness against the clock is decided by the engine, not the query.
func (r *postgresEventRepository) ListNonTerminal(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT` + eventColumns + `
		FROM events
		WHERE status IN ($1, $2, $3)
		ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query,
		models.StatusSignupOpen, models.StatusSignupClosed, models.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to query non-terminal events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		e := &models.Event{}
		if scanErr := scanEvent(rows, e); scanErr != nil {
			return nil, fmt.Errorf("failed to scan event: %w", scanErr)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateStatusFrom moves the event to a new status only if it is currently
// in one of the expected statuses. The guard makes every lifecycle
// transition execute at most once across overlapping scans.
func (r *postgresEventRepository) UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id int, from []models.EventStatus, to models.EventStatus) error {
	executor := r.getExecutor(exec)
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}
	query := `UPDATE events SET status = $1 WHERE id = $2 AND status = ANY($3)`
	result, err := executor.ExecContext(ctx, query, to, id, pq.Array(fromStr))
	if err != nil {
		return r.handleEventError(err)
	}
	return checkAffectedRows(result, ErrEventStatusConflict)
}

func (r *postgresEventRepository) SetSignupMessageID(ctx context.Context, exec SQLExecutor, id int, messageID int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE events SET signup_message_id = $1 WHERE id = $2`, messageID, id)
	if err != nil {
		return fmt.Errorf("failed to set signup message id for event %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) SetLeaderboardMessageID(ctx context.Context, exec SQLExecutor, id int, messageID int64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE events SET leaderboard_message_id = $1 WHERE id = $2`, messageID, id)
	if err != nil {
		return fmt.Errorf("failed to set leaderboard message id for event %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

// Delete removes the event; signups, teams and submissions (and their
// approvals) go with it via ON DELETE CASCADE.
func (r *postgresEventRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return r.handleEventError(err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) handleEventError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			return fmt.Errorf("event references a missing row (constraint %s): %w", pqErr.Constraint, err)
		}
	}
	return err
}

func nullableUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
