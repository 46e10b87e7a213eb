package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
	"github.com/clantools/bingo-system/storage"
)

// wizardStep is the explicit step cursor of the setup flow. The original
// conversational flow blocked on each reply; here every reply is one
// Advance call against the stored cursor, so the flow is testable without a
// transport and expires per step instead of hanging.
type wizardStep int

const (
	stepSignupChannel wizardStep = iota
	stepSubmissionsChannel
	stepAnnouncementsChannel
	stepBoardChannel
	stepName
	stepGameMode
	stepTeamSize
	stepTeamMode
	stepStartAt
	stepTimezone
	stepEndAt
	stepCloseHours
	stepNotifyRole
	stepRevealBoard
	stepApprovalPolicy
	stepApprovalsRequired
	stepBoardImage
)

var wizardPrompts = map[wizardStep]string{
	stepSignupChannel:        "Setup started. First: mention the **signup channel** like `<#123>`.",
	stepSubmissionsChannel:   "Mention the **submissions channel** like `<#123>`.",
	stepAnnouncementsChannel: "Mention the **announcements channel** like `<#123>`.",
	stepBoardChannel:         "Mention the **board channel** like `<#123>`.",
	stepName:                 "Event name? (type `none` to use a default)",
	stepGameMode:             "Game mode? (free text, e.g. `custom bingo`)",
	stepTeamSize:             "Team size? (`0` = everyone on one team, `1` = solo, `2+` = teams)",
	stepTeamMode:             "Team selection mode: `random`, `captains`, or `preferred`",
	stepStartAt:              "Start datetime in format `YYYY-MM-DD HH:MM` (example: `2026-01-17 19:00`)",
	stepTimezone:             "Timezone (IANA), example: `America/New_York` or `UTC`",
	stepEndAt:                "End datetime (same format) or type `none`",
	stepCloseHours:           "How many hours before start should signups close? Example: `2`",
	stepNotifyRole:           "Which role to notify? Mention like `<@&123>` or type `none`",
	stepRevealBoard:          "When to reveal the board? `signup_created`, `signups_close`, or `bingo_start`",
	stepApprovalPolicy:       "Submissions require approval? `none`, `admin`, or `nonteammate`",
	stepApprovalsRequired:    "How many approvals required? Example: `1`",
	stepBoardImage:           "Optional: upload the board image now, or type `skip`.",
}

type wizardSession struct {
	groupID  int64
	userID   int64
	step     wizardStep
	deadline time.Time
	busy     bool // claimed by an in-flight Reply

	cfg      models.GroupConfig
	draft    models.Event
	startRaw string
	loc      *time.Location
}

// WizardService runs one setup flow per group. Sessions live in memory;
// the process is the single writer, and an abandoned flow leaves any
// already-persisted channel configuration in place.
type WizardService struct {
	mu       sync.Mutex
	sessions map[int64]*wizardSession

	configRepo  repositories.GroupConfigRepository
	events      *EventService
	uploader    storage.FileUploader
	logger      *slog.Logger
	stepTimeout time.Duration
	now         func() time.Time
}

func NewWizardService(
	configRepo repositories.GroupConfigRepository,
	events *EventService,
	uploader storage.FileUploader,
	logger *slog.Logger,
	stepTimeout time.Duration,
	now func() time.Time,
) *WizardService {
	if stepTimeout <= 0 {
		stepTimeout = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &WizardService{
		sessions:    make(map[int64]*wizardSession),
		configRepo:  configRepo,
		events:      events,
		uploader:    uploader,
		logger:      logger,
		stepTimeout: stepTimeout,
		now:         now,
	}
}

// Start begins a setup flow and returns the first prompt. Only one flow per
// group runs at a time, and not while the group already has an active event.
func (s *WizardService) Start(ctx context.Context, groupID, userID int64) (string, error) {
	if _, err := s.events.GetActiveEvent(ctx, groupID); err == nil {
		return "", ErrActiveEventExists
	} else if !errors.Is(err, ErrNoActiveEvent) {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[groupID]; ok && (existing.busy || s.now().Before(existing.deadline)) {
		return "", ErrWizardAlreadyActive
	}

	session := &wizardSession{
		groupID:  groupID,
		userID:   userID,
		step:     stepSignupChannel,
		deadline: s.now().Add(s.stepTimeout),
	}
	session.cfg.GroupID = groupID
	session.draft.GroupID = groupID
	session.draft.CreatedBy = userID
	s.sessions[groupID] = session

	return wizardPrompts[stepSignupChannel], nil
}

// Reply feeds one operator answer into the flow. Invalid input cancels the
// whole flow (channel configuration persisted so far is kept); a reply past
// the step deadline expires it. On the final step the event is created and
// (prompt, done=true) is returned.
func (s *WizardService) Reply(ctx context.Context, groupID, userID int64, input string, attachment *AttachmentInput) (string, bool, error) {
	s.mu.Lock()
	session, ok := s.sessions[groupID]
	if !ok || session.busy {
		s.mu.Unlock()
		return "", false, ErrWizardNotActive
	}
	if session.userID != userID {
		s.mu.Unlock()
		return "", false, ErrWizardWrongUser
	}
	if s.now().After(session.deadline) {
		delete(s.sessions, groupID)
		s.mu.Unlock()
		return "", false, ErrWizardExpired
	}
	// Claim the session: exactly one Reply works on it at a time, so a
	// concurrent final-step reply cannot reach event creation twice.
	session.busy = true
	s.mu.Unlock()

	next, err := s.advance(ctx, session, input, attachment)
	if err != nil {
		// Any error cancels the flow; the operator restarts it.
		s.settle(session, false)
		return "", false, err
	}

	if next == nil {
		err := s.finish(ctx, session)
		s.settle(session, false)
		if err != nil {
			s.discardBoardImage(ctx, session)
			return "", false, err
		}
		return "Setup complete. Check your signup channel.", true, nil
	}

	session.step = *next
	session.deadline = s.now().Add(s.stepTimeout)
	s.settle(session, true)
	return wizardPrompts[*next], false, nil
}

// settle resolves a claimed session: keep=true releases it for the next
// step, keep=false removes the flow.
func (s *WizardService) settle(session *wizardSession, keep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[session.groupID] != session {
		return
	}
	if keep {
		session.busy = false
	} else {
		delete(s.sessions, session.groupID)
	}
}

// discardBoardImage removes a board object left orphaned when event
// creation fails after the upload already happened.
func (s *WizardService) discardBoardImage(ctx context.Context, session *wizardSession) {
	if session.draft.BoardImageKey == nil {
		return
	}
	if err := s.uploader.Delete(ctx, *session.draft.BoardImageKey); err != nil {
		s.logger.Warn("failed to delete orphaned board image",
			slog.String("key", *session.draft.BoardImageKey), slog.Any("error", err))
	}
}

// advance applies the input to the current step and returns the next step,
// or nil when the flow is complete.
func (s *WizardService) advance(ctx context.Context, session *wizardSession, input string, attachment *AttachmentInput) (*wizardStep, error) {
	text := strings.TrimSpace(input)

	switch session.step {
	case stepSignupChannel, stepSubmissionsChannel, stepAnnouncementsChannel, stepBoardChannel:
		id, ok := parseChannelMention(text)
		if !ok {
			return nil, fmt.Errorf("%w: invalid channel mention %q", ErrValidationFailed, text)
		}
		switch session.step {
		case stepSignupChannel:
			session.cfg.SignupChannelID = id
		case stepSubmissionsChannel:
			session.cfg.SubmissionsChannelID = id
		case stepAnnouncementsChannel:
			session.cfg.AnnouncementsChannelID = id
		case stepBoardChannel:
			session.cfg.BoardChannelID = id
			// All four channels collected: persist immediately. A later
			// cancellation or timeout does not roll this back.
			if err := s.configRepo.Upsert(ctx, nil, &session.cfg); err != nil {
				return nil, err
			}
		}

	case stepName:
		if text == "" || strings.EqualFold(text, "none") {
			text = fmt.Sprintf("Bingo %s", s.now().Format("2006-01-02"))
		}
		session.draft.Name = text

	case stepGameMode:
		if text == "" {
			text = "Custom"
		}
		session.draft.GameMode = text

	case stepTeamSize:
		size, ok := parseBoundedInt(text, 0, 200)
		if !ok {
			return nil, ErrInvalidTeamSize
		}
		session.draft.TeamSize = size

	case stepTeamMode:
		mode := models.TeamMode(strings.ToLower(text))
		switch mode {
		case models.TeamModeRandom, models.TeamModeCaptains, models.TeamModePreferred:
			session.draft.TeamMode = mode
		default:
			return nil, fmt.Errorf("%w: invalid team mode %q", ErrValidationFailed, text)
		}

	case stepStartAt:
		if text == "" {
			return nil, fmt.Errorf("%w: start datetime is required", ErrValidationFailed)
		}
		session.startRaw = text

	case stepTimezone:
		loc, err := time.LoadLocation(text)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidationFailed, text)
		}
		session.loc = loc
		start, err := parseEventDateTime(session.startRaw, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		session.draft.StartAt = start

	case stepEndAt:
		if !strings.EqualFold(text, "none") {
			end, err := parseEventDateTime(text, session.loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
			}
			session.draft.EndAt = &end
		}

	case stepCloseHours:
		hours, ok := parseBoundedInt(text, 0, 240)
		if !ok {
			return nil, fmt.Errorf("%w: invalid signup-close hours %q", ErrValidationFailed, text)
		}
		session.draft.SignupCloseAt = session.draft.StartAt.Add(-time.Duration(hours) * time.Hour)

	case stepNotifyRole:
		roleID, ok := parseRoleMention(text)
		if !ok {
			return nil, fmt.Errorf("%w: invalid role mention %q", ErrValidationFailed, text)
		}
		session.draft.NotifyRoleID = roleID

	case stepRevealBoard:
		trigger := models.RevealTrigger(strings.ToLower(text))
		switch trigger {
		case models.RevealOnCreate, models.RevealOnSignupClose, models.RevealOnStart:
			session.draft.RevealBoard = trigger
		default:
			return nil, fmt.Errorf("%w: invalid reveal trigger %q", ErrValidationFailed, text)
		}

	case stepApprovalPolicy:
		policy := models.ApprovalPolicy(strings.ToLower(text))
		switch policy {
		case models.PolicyNone, models.PolicyModerator, models.PolicyNonTeammate:
			session.draft.ApprovalPolicy = policy
		default:
			return nil, fmt.Errorf("%w: invalid approval policy %q", ErrValidationFailed, text)
		}
		if policy == models.PolicyNone {
			// No quorum to configure.
			next := stepBoardImage
			return &next, nil
		}

	case stepApprovalsRequired:
		required, ok := parseBoundedInt(text, 1, 20)
		if !ok {
			return nil, ErrInvalidApprovalsCount
		}
		session.draft.ApprovalsRequired = required

	case stepBoardImage:
		if attachment != nil && attachment.Reader != nil && !strings.EqualFold(text, "skip") {
			key := fmt.Sprintf("boards/board_%d_%d%s",
				session.groupID, s.now().Unix(), attachmentExt(attachment.Filename))
			uploaded, err := s.uploader.Upload(ctx, key, attachment.ContentType, attachment.Reader)
			if err != nil {
				return nil, fmt.Errorf("failed to store board image: %w", err)
			}
			session.draft.BoardImageKey = &uploaded.Key
		}
		return nil, nil // flow complete
	}

	next := session.step + 1
	return &next, nil
}

func (s *WizardService) finish(ctx context.Context, session *wizardSession) error {
	session.draft.CreatedAt = s.now()
	if err := s.events.CreateEvent(ctx, &session.draft); err != nil {
		return err
	}
	s.logger.Info("setup wizard completed",
		slog.Int64("group_id", session.groupID),
		slog.Int("event_id", session.draft.ID),
		slog.String("event_name", session.draft.Name))
	return nil
}
