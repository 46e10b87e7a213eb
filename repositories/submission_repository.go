package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clantools/bingo-system/models"
	"github.com/lib/pq"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionStatusConflict means the guarded status update found the
	// submission already finalized. The approval latch relies on it.
	ErrSubmissionStatusConflict = errors.New("submission is not in the expected status")
	ErrSubmissionMessageTaken   = errors.New("submission message reference already recorded")
)

type SubmissionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, submission *models.Submission) error
	GetByID(ctx context.Context, id int) (*models.Submission, error)
	GetByMessageID(ctx context.Context, messageID int64) (*models.Submission, error)
	UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id int, from, to models.SubmissionStatus) error
	TeamTileCounts(ctx context.Context, eventID int) ([]models.TeamStanding, error)
}

type postgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &postgresSubmissionRepository{db: db}
}

func (r *postgresSubmissionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const submissionColumns = `
	id, event_id, user_id, description, kind, created_at,
	message_id, attachment_key, status, approvals_required`

func scanSubmission(row interface{ Scan(...interface{}) error }, s *models.Submission) error {
	return row.Scan(
		&s.ID, &s.EventID, &s.UserID, &s.Description, &s.Kind, &s.CreatedAt,
		&s.MessageID, &s.AttachmentKey, &s.Status, &s.ApprovalsRequired,
	)
}

func (r *postgresSubmissionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Submission) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO submissions (
			event_id, user_id, description, kind, created_at,
			message_id, attachment_key, status, approvals_required
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		s.EventID, s.UserID, s.Description, s.Kind, s.CreatedAt.UTC(),
		s.MessageID, s.AttachmentKey, s.Status, s.ApprovalsRequired,
	).Scan(&s.ID)

	return r.handleSubmissionError(err)
}

func (r *postgresSubmissionRepository) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions WHERE id = $1`
	s := &models.Submission{}
	if err := scanSubmission(r.db.QueryRowContext(ctx, query, id), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByMessageID resolves an approval signal's message reference to the
// submission it targets.
func (r *postgresSubmissionRepository) GetByMessageID(ctx context.Context, messageID int64) (*models.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions WHERE message_id = $1`
	s := &models.Submission{}
	if err := scanSubmission(r.db.QueryRowContext(ctx, query, messageID), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return s, nil
}

// UpdateStatusFrom is the one-way latch: the WHERE clause on the current
// status means only one caller can ever move pending to approved.
func (r *postgresSubmissionRepository) UpdateStatusFrom(ctx context.Context, exec SQLExecutor, id int, from, to models.SubmissionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE submissions SET status = $1 WHERE id = $2 AND status = $3`
	result, err := executor.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return r.handleSubmissionError(err)
	}
	return checkAffectedRows(result, ErrSubmissionStatusConflict)
}

// TeamTileCounts computes the leaderboard read-model: approved full_tile
// submissions joined to team membership, ordered by count descending with
// ascending team number as the tie-break.
func (r *postgresSubmissionRepository) TeamTileCounts(ctx context.Context, eventID int) ([]models.TeamStanding, error) {
	query := `
		SELECT t.team_number, COUNT(s.id) AS cnt
		FROM submissions s
		JOIN teams t ON t.event_id = s.event_id AND t.user_id = s.user_id
		WHERE s.event_id = $1 AND s.status = $2 AND s.kind = $3
		GROUP BY t.team_number
		ORDER BY cnt DESC, t.team_number ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID, models.SubmissionApproved, models.KindFullTile)
	if err != nil {
		return nil, fmt.Errorf("failed to query team tile counts for event %d: %w", eventID, err)
	}
	defer rows.Close()

	standings := make([]models.TeamStanding, 0)
	for rows.Next() {
		var st models.TeamStanding
		if scanErr := rows.Scan(&st.TeamNumber, &st.Count); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team standing: %w", scanErr)
		}
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

func (r *postgresSubmissionRepository) handleSubmissionError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "submissions_message_id_key" {
				return ErrSubmissionMessageTaken
			}
		case "23503":
			return fmt.Errorf("submission references a missing event: %w", err)
		}
	}
	return err
}
