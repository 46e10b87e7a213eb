package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clantools/bingo-system/models"
)

var ErrGroupConfigNotFound = errors.New("group configuration not found")

type GroupConfigRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, cfg *models.GroupConfig) error
	GetByGroup(ctx context.Context, groupID int64) (*models.GroupConfig, error)
}

type postgresGroupConfigRepository struct {
	db *sql.DB
}

func NewPostgresGroupConfigRepository(db *sql.DB) GroupConfigRepository {
	return &postgresGroupConfigRepository{db: db}
}

func (r *postgresGroupConfigRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupConfigRepository) Upsert(ctx context.Context, exec SQLExecutor, cfg *models.GroupConfig) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO group_configs (
			group_id, signup_channel_id, submissions_channel_id, announcements_channel_id, board_channel_id
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (group_id) DO UPDATE SET
			signup_channel_id = EXCLUDED.signup_channel_id,
			submissions_channel_id = EXCLUDED.submissions_channel_id,
			announcements_channel_id = EXCLUDED.announcements_channel_id,
			board_channel_id = EXCLUDED.board_channel_id`

	_, err := executor.ExecContext(ctx, query,
		cfg.GroupID, cfg.SignupChannelID, cfg.SubmissionsChannelID, cfg.AnnouncementsChannelID, cfg.BoardChannelID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group config for group %d: %w", cfg.GroupID, err)
	}
	return nil
}

func (r *postgresGroupConfigRepository) GetByGroup(ctx context.Context, groupID int64) (*models.GroupConfig, error) {
	query := `
		SELECT group_id, signup_channel_id, submissions_channel_id, announcements_channel_id, board_channel_id
		FROM group_configs
		WHERE group_id = $1`

	cfg := &models.GroupConfig{}
	err := r.db.QueryRowContext(ctx, query, groupID).Scan(
		&cfg.GroupID, &cfg.SignupChannelID, &cfg.SubmissionsChannelID, &cfg.AnnouncementsChannelID, &cfg.BoardChannelID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}
