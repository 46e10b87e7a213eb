package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clantools/bingo-system/models"
)

var ErrTeamMembershipNotFound = errors.New("team membership not found")

type TeamRepository interface {
	ClearByEvent(ctx context.Context, exec SQLExecutor, eventID int) error
	CreateBatch(ctx context.Context, exec SQLExecutor, memberships []models.TeamMembership) error
	ListByEvent(ctx context.Context, eventID int) ([]models.TeamMembership, error)
	// GetTeamNumber is the lookup the nonteammate approval policy will need
	// once it stops being an alias of moderator: the admission check has to
	// compare the approver's team against the submitter's.
	GetTeamNumber(ctx context.Context, eventID int, userID int64) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) ClearByEvent(ctx context.Context, exec SQLExecutor, eventID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM teams WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("failed to clear teams for event %d: %w", eventID, err)
	}
	return nil
}

// CreateBatch writes the full membership set of an event. Callers clear the
// old set and call this inside one transaction; the rewrite is all-or-nothing.
func (r *postgresTeamRepository) CreateBatch(ctx context.Context, exec SQLExecutor, memberships []models.TeamMembership) error {
	if len(memberships) == 0 {
		return nil
	}

	tx, isExternalTx := exec.(*sql.Tx)
	if !isExternalTx {
		var err error
		tx, err = r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("CreateBatch failed to begin transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO teams (event_id, team_number, user_id) VALUES ($1, $2, $3)`)
	if err != nil {
		if !isExternalTx {
			_ = tx.Rollback()
		}
		return fmt.Errorf("CreateBatch failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range memberships {
		if _, err := stmt.ExecContext(ctx, m.EventID, m.TeamNumber, m.UserID); err != nil {
			if !isExternalTx {
				_ = tx.Rollback()
			}
			return fmt.Errorf("CreateBatch failed for event %d, user %d: %w", m.EventID, m.UserID, err)
		}
	}

	if !isExternalTx {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("CreateBatch failed to commit: %w", err)
		}
	}
	return nil
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, eventID int) ([]models.TeamMembership, error) {
	query := `
		SELECT event_id, team_number, user_id
		FROM teams
		WHERE event_id = $1
		ORDER BY team_number, user_id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams for event %d: %w", eventID, err)
	}
	defer rows.Close()

	memberships := make([]models.TeamMembership, 0)
	for rows.Next() {
		var m models.TeamMembership
		if scanErr := rows.Scan(&m.EventID, &m.TeamNumber, &m.UserID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team membership: %w", scanErr)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *postgresTeamRepository) GetTeamNumber(ctx context.Context, eventID int, userID int64) (int, error) {
	var teamNumber int
	err := r.db.QueryRowContext(ctx,
		`SELECT team_number FROM teams WHERE event_id = $1 AND user_id = $2`, eventID, userID,
	).Scan(&teamNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTeamMembershipNotFound
		}
		return 0, err
	}
	return teamNumber, nil
}
