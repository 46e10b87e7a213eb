package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ApprovalRepository interface {
	Add(ctx context.Context, exec SQLExecutor, submissionID int, userID int64, approvedAt time.Time) error
	CountBySubmission(ctx context.Context, exec SQLExecutor, submissionID int) (int, error)
}

type postgresApprovalRepository struct {
	db *sql.DB
}

func NewPostgresApprovalRepository(db *sql.DB) ApprovalRepository {
	return &postgresApprovalRepository{db: db}
}

func (r *postgresApprovalRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Add records an approver's vote. A repeat vote from the same user hits the
// (submission_id, user_id) primary key and is dropped, so the quorum count
// only ever sees distinct approvers.
func (r *postgresApprovalRepository) Add(ctx context.Context, exec SQLExecutor, submissionID int, userID int64, approvedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO approvals (submission_id, user_id, approved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (submission_id, user_id) DO NOTHING`
	if _, err := executor.ExecContext(ctx, query, submissionID, userID, approvedAt.UTC()); err != nil {
		return fmt.Errorf("failed to add approval (submission %d, user %d): %w", submissionID, userID, err)
	}
	return nil
}

func (r *postgresApprovalRepository) CountBySubmission(ctx context.Context, exec SQLExecutor, submissionID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM approvals WHERE submission_id = $1`, submissionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count approvals for submission %d: %w", submissionID, err)
	}
	return count, nil
}
