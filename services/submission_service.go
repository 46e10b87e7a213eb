package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/clantools/bingo-system/chat"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
	"github.com/clantools/bingo-system/storage"
)

// Capabilities is the capability set attached to an inbound signal by the
// gateway. ManageGroup corresponds to the platform's group-management
// permission and gates approval admission.
type Capabilities struct {
	ManageGroup bool
}

// AttachmentInput is an uploaded file accompanying a submission or a wizard
// board-image step.
type AttachmentInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type CreateSubmissionInput struct {
	GroupID     int64
	UserID      int64
	Description string
	Kind        models.SubmissionKind
	Attachment  *AttachmentInput
}

type ApprovalSignal struct {
	GroupID      int64
	MessageID    int64
	UserID       int64
	Capabilities Capabilities
}

// SubmissionService is the quorum-gated submission workflow.
type SubmissionService struct {
	tx             repositories.TxRunner
	configRepo     repositories.GroupConfigRepository
	eventRepo      repositories.EventRepository
	submissionRepo repositories.SubmissionRepository
	approvalRepo   repositories.ApprovalRepository
	uploader       storage.FileUploader
	notifier       chat.Notifier
	leaderboard    *LeaderboardService
	logger         *slog.Logger
	now            func() time.Time
}

func NewSubmissionService(
	tx repositories.TxRunner,
	configRepo repositories.GroupConfigRepository,
	eventRepo repositories.EventRepository,
	submissionRepo repositories.SubmissionRepository,
	approvalRepo repositories.ApprovalRepository,
	uploader storage.FileUploader,
	notifier chat.Notifier,
	leaderboard *LeaderboardService,
	logger *slog.Logger,
	now func() time.Time,
) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{
		tx:             tx,
		configRepo:     configRepo,
		eventRepo:      eventRepo,
		submissionRepo: submissionRepo,
		approvalRepo:   approvalRepo,
		uploader:       uploader,
		notifier:       notifier,
		leaderboard:    leaderboard,
		logger:         logger,
		now:            now,
	}
}

// Create ingests a participant submission: attachment stored first, the
// submission message published, then the row inserted. Approval policy
// none means the submission is approved on creation and the leaderboard is
// refreshed immediately; otherwise it starts pending with the event's
// required-approval count snapshotted onto the row.
func (s *SubmissionService) Create(ctx context.Context, in CreateSubmissionInput) (*models.Submission, error) {
	if _, err := s.configRepo.GetByGroup(ctx, in.GroupID); err != nil {
		if errors.Is(err, repositories.ErrGroupConfigNotFound) {
			return nil, ErrGroupNotConfigured
		}
		return nil, err
	}

	event, err := s.eventRepo.GetActiveByGroup(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNoActiveEvent
		}
		return nil, err
	}

	if in.Attachment == nil || in.Attachment.Reader == nil {
		return nil, ErrAttachmentRequired
	}

	kind := in.Kind
	if kind != models.KindFullTile {
		kind = models.KindProgress
	}

	createdAt := s.now()
	key := fmt.Sprintf("submissions/sub_%d_%d_%d%s",
		in.GroupID, in.UserID, createdAt.Unix(), attachmentExt(in.Attachment.Filename))
	uploaded, err := s.uploader.Upload(ctx, key, in.Attachment.ContentType, in.Attachment.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to store submission attachment: %w", err)
	}

	status := models.SubmissionPending
	if event.ApprovalPolicy == models.PolicyNone {
		status = models.SubmissionApproved
	}

	reactions := []string{chat.ReactionJoin} // delivery receipt
	if status == models.SubmissionPending {
		reactions = append(reactions, chat.ReactionApprove)
	}
	messageID, err := s.notifier.PublishMessage(ctx, in.GroupID, chat.RoleSubmissions, chat.Message{
		Embed: &chat.Embed{
			Title:       "Bingo Submission",
			Description: in.Description,
			ImageURL:    uploaded.Location,
			Fields: []chat.EmbedField{
				{Name: "Player", Value: mention(in.UserID), Inline: true},
				{Name: "Type", Value: string(kind), Inline: true},
			},
		},
		Reactions: reactions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish submission message: %w", err)
	}

	submission := &models.Submission{
		EventID:           event.ID,
		UserID:            in.UserID,
		Description:       in.Description,
		Kind:              kind,
		CreatedAt:         createdAt,
		MessageID:         messageID,
		AttachmentKey:     uploaded.Key,
		Status:            status,
		ApprovalsRequired: event.ApprovalsRequired,
	}
	if err := s.submissionRepo.Create(ctx, nil, submission); err != nil {
		return nil, err
	}

	if status == models.SubmissionPending {
		notice := fmt.Sprintf("%s submission received; awaiting approval.", mention(in.UserID))
		if _, err := s.notifier.PublishMessage(ctx, in.GroupID, chat.RoleSubmissions, chat.Message{Content: notice}); err != nil {
			s.logger.Warn("pending-submission notice failed",
				slog.Int("submission_id", submission.ID), slog.Any("error", err))
		}
	} else {
		if err := s.leaderboard.Refresh(ctx, event); err != nil {
			s.logger.Warn("leaderboard refresh after auto-approval failed",
				slog.Int("submission_id", submission.ID), slog.Any("error", err))
		}
	}

	s.logger.Info("submission created",
		slog.Int("submission_id", submission.ID),
		slog.Int("event_id", event.ID),
		slog.String("kind", string(kind)),
		slog.String("status", string(status)))
	return submission, nil
}

// HandleApprovalSignal admits an approval reaction. Signals on unknown
// messages, finalized submissions or from actors without the required
// capability are silently ignored. The insert-count-latch sequence runs in
// one transaction so two concurrent signals cannot both observe a
// pre-quorum count and neither finalize, nor double-finalize.
func (s *SubmissionService) HandleApprovalSignal(ctx context.Context, in ApprovalSignal) error {
	event, err := s.eventRepo.GetActiveByGroup(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil
		}
		return err
	}

	submission, err := s.submissionRepo.GetByMessageID(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubmissionNotFound) {
			return nil
		}
		return err
	}
	if submission.EventID != event.ID || submission.Status != models.SubmissionPending {
		return nil
	}

	switch event.ApprovalPolicy {
	case models.PolicyModerator, models.PolicyNonTeammate:
		// nonteammate is reserved; until the same-team check exists it is
		// admitted exactly like moderator.
		if !in.Capabilities.ManageGroup {
			s.logger.Debug("approval from actor without manage capability ignored",
				slog.Int("submission_id", submission.ID), slog.Int64("user_id", in.UserID))
			return nil
		}
	default:
		return nil
	}

	approvedNow := false
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.approvalRepo.Add(ctx, exec, submission.ID, in.UserID, s.now()); err != nil {
			return err
		}
		count, err := s.approvalRepo.CountBySubmission(ctx, exec, submission.ID)
		if err != nil {
			return err
		}
		if count < submission.ApprovalsRequired {
			return nil
		}
		if err := s.submissionRepo.UpdateStatusFrom(ctx, exec, submission.ID,
			models.SubmissionPending, models.SubmissionApproved); err != nil {
			if errors.Is(err, repositories.ErrSubmissionStatusConflict) {
				// Already latched by a concurrent signal.
				return nil
			}
			return err
		}
		approvedNow = true
		return nil
	})
	if err != nil {
		return err
	}
	if !approvedNow {
		return nil
	}

	content := fmt.Sprintf("%s Submission approved (message %d).", chat.ReactionJoin, submission.MessageID)
	if _, err := s.notifier.PublishMessage(ctx, in.GroupID, chat.RoleAnnouncements, chat.Message{Content: content}); err != nil {
		s.logger.Warn("approval announcement failed",
			slog.Int("submission_id", submission.ID), slog.Any("error", err))
	}
	if err := s.leaderboard.Refresh(ctx, event); err != nil {
		s.logger.Warn("leaderboard refresh after approval failed",
			slog.Int("submission_id", submission.ID), slog.Any("error", err))
	}
	return nil
}

func attachmentExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	return ext
}
