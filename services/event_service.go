package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/clantools/bingo-system/chat"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
	"github.com/clantools/bingo-system/storage"
)

// EventService drives the event lifecycle: creation at wizard completion,
// and the deadline-driven transitions evaluated on every scheduler scan.
type EventService struct {
	tx          repositories.TxRunner
	configRepo  repositories.GroupConfigRepository
	eventRepo   repositories.EventRepository
	signupRepo  repositories.SignupRepository
	teamRepo    repositories.TeamRepository
	leaderboard *LeaderboardService
	notifier    chat.Notifier
	uploader    storage.FileUploader
	logger      *slog.Logger
	rnd         *rand.Rand
	now         func() time.Time
}

func NewEventService(
	tx repositories.TxRunner,
	configRepo repositories.GroupConfigRepository,
	eventRepo repositories.EventRepository,
	signupRepo repositories.SignupRepository,
	teamRepo repositories.TeamRepository,
	leaderboard *LeaderboardService,
	notifier chat.Notifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
	rnd *rand.Rand,
	now func() time.Time,
) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		tx:          tx,
		configRepo:  configRepo,
		eventRepo:   eventRepo,
		signupRepo:  signupRepo,
		teamRepo:    teamRepo,
		leaderboard: leaderboard,
		notifier:    notifier,
		uploader:    uploader,
		logger:      logger,
		rnd:         rnd,
		now:         now,
	}
}

// GetActiveEvent returns the group's single non-terminal event.
func (s *EventService) GetActiveEvent(ctx context.Context, groupID int64) (*models.Event, error) {
	event, err := s.eventRepo.GetActiveByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNoActiveEvent
		}
		return nil, err
	}
	return event, nil
}

// CreateEvent persists a wizard-built event in signup_open, publishes the
// signup post, reveals the board on an on-create trigger and seeds the
// leaderboard post. The event row is committed before any delivery; a
// failed signup post is surfaced to the operator but nothing is rolled back.
func (s *EventService) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := validateEventTimes(event.StartAt, event.SignupCloseAt, event.EndAt); err != nil {
		return err
	}
	event.Status = models.StatusSignupOpen
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	if err := s.eventRepo.Create(ctx, nil, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	content := "Signups are open!"
	if event.NotifyRoleID != nil {
		content = fmt.Sprintf("<@&%d> %s", *event.NotifyRoleID, content)
	}
	messageID, err := s.notifier.PublishMessage(ctx, event.GroupID, chat.RoleSignup, chat.Message{
		Content:   content,
		Embed:     buildSignupEmbed(event),
		Reactions: []string{chat.ReactionJoin, chat.ReactionLeave},
	})
	if err != nil {
		return fmt.Errorf("event %d created but signup post failed: %w", event.ID, err)
	}
	if err := s.eventRepo.SetSignupMessageID(ctx, nil, event.ID, messageID); err != nil {
		return err
	}
	event.SignupMessageID = &messageID

	if event.RevealBoard == models.RevealOnCreate {
		s.revealBoard(ctx, event)
	}

	if err := s.leaderboard.Refresh(ctx, event); err != nil {
		s.logger.Warn("initial leaderboard publish failed",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}
	return nil
}

// AdvanceDueEvents is one scheduler scan: every non-terminal event is
// evaluated against the current time. A failure while advancing one event
// is logged and does not abort the rest of the scan.
func (s *EventService) AdvanceDueEvents(ctx context.Context) error {
	events, err := s.eventRepo.ListNonTerminal(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events for scan: %w", err)
	}

	for _, event := range events {
		if err := s.advanceEvent(ctx, event); err != nil {
			s.logger.Error("scan failed to advance event",
				slog.Int("event_id", event.ID),
				slog.Int64("group_id", event.GroupID),
				slog.String("status", string(event.Status)),
				slog.Any("error", err))
		}
	}
	return nil
}

func (s *EventService) advanceEvent(ctx context.Context, event *models.Event) error {
	now := s.now()
	status := event.Status

	if status == models.StatusSignupOpen && !now.Before(event.SignupCloseAt) {
		if err := s.closeSignups(ctx, event); err != nil {
			return err
		}
		status = models.StatusSignupClosed
	}

	if (status == models.StatusSignupOpen || status == models.StatusSignupClosed) && !now.Before(event.StartAt) {
		return s.startEvent(ctx, event)
	}

	// No engine-driven transition into ended exists; end_at is stored but
	// unused here.
	return nil
}

// closeSignups freezes the roster, partitions it into teams and commits the
// status change in the same transaction as the team rewrite. The guarded
// status update makes the transition fire at most once even if two scans
// cross the deadline together. Announcements come after commit and are
// log-only on failure.
func (s *EventService) closeSignups(ctx context.Context, event *models.Event) error {
	if !isValidStatusTransition(event.Status, models.StatusSignupClosed) {
		return fmt.Errorf("cannot close signups from status %s", event.Status)
	}

	var memberships []models.TeamMembership
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.eventRepo.UpdateStatusFrom(ctx, exec, event.ID,
			[]models.EventStatus{models.StatusSignupOpen}, models.StatusSignupClosed); err != nil {
			return err
		}

		participants, err := s.signupRepo.ListUserIDs(ctx, exec, event.ID)
		if err != nil {
			return err
		}

		teams := AssignTeams(s.rnd, participants, event.TeamSize)
		memberships = membershipRows(event.ID, teams)

		if err := s.teamRepo.ClearByEvent(ctx, exec, event.ID); err != nil {
			return err
		}
		return s.teamRepo.CreateBatch(ctx, exec, memberships)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEventStatusConflict) {
			// Another scan committed this transition first.
			return nil
		}
		return err
	}
	event.Status = models.StatusSignupClosed

	s.announceTeams(ctx, event, memberships)
	if event.RevealBoard == models.RevealOnSignupClose {
		s.revealBoard(ctx, event)
	}
	if err := s.leaderboard.Refresh(ctx, event); err != nil {
		s.logger.Warn("leaderboard refresh after signup close failed",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}
	return nil
}

func (s *EventService) startEvent(ctx context.Context, event *models.Event) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.eventRepo.UpdateStatusFrom(ctx, exec, event.ID,
			[]models.EventStatus{models.StatusSignupOpen, models.StatusSignupClosed}, models.StatusRunning)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEventStatusConflict) {
			return nil
		}
		return err
	}
	event.Status = models.StatusRunning

	content := fmt.Sprintf("\U0001F680 **%s** has started!", event.Name)
	if _, err := s.notifier.PublishMessage(ctx, event.GroupID, chat.RoleAnnouncements, chat.Message{Content: content}); err != nil {
		s.logger.Warn("start announcement failed",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}

	if event.RevealBoard == models.RevealOnStart {
		s.revealBoard(ctx, event)
	}
	return nil
}

// announceTeams lists teams in ascending team-number order with member
// mentions.
func (s *EventService) announceTeams(ctx context.Context, event *models.Event, memberships []models.TeamMembership) {
	byTeam := make(map[int][]int64)
	for _, m := range memberships {
		byTeam[m.TeamNumber] = append(byTeam[m.TeamNumber], m.UserID)
	}
	numbers := make([]int, 0, len(byTeam))
	for n := range byTeam {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	lines := make([]string, 0, len(numbers)+1)
	lines = append(lines, fmt.Sprintf("Signups closed for **%s**.", event.Name))
	for _, n := range numbers {
		mentions := make([]string, len(byTeam[n]))
		for i, userID := range byTeam[n] {
			mentions[i] = mention(userID)
		}
		lines = append(lines, fmt.Sprintf("**Team %d:** %s", n, strings.Join(mentions, " ")))
	}

	if _, err := s.notifier.PublishMessage(ctx, event.GroupID, chat.RoleAnnouncements, chat.Message{
		Content: strings.Join(lines, "\n"),
	}); err != nil {
		s.logger.Warn("team announcement failed",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}
}

// revealBoard publishes the configured board asset. Missing asset is a
// no-op; delivery failure is logged, never fatal.
func (s *EventService) revealBoard(ctx context.Context, event *models.Event) {
	if event.BoardImageKey == nil || *event.BoardImageKey == "" {
		return
	}
	assetURL := s.uploader.GetPublicURL(*event.BoardImageKey)
	caption := fmt.Sprintf("**Bingo Board:** %s", event.Name)
	if err := s.notifier.RevealAsset(ctx, event.GroupID, chat.RoleBoard, assetURL, caption); err != nil {
		s.logger.Warn("board reveal failed",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}
}

func membershipRows(eventID int, teams map[int][]int64) []models.TeamMembership {
	numbers := make([]int, 0, len(teams))
	for n := range teams {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rows := make([]models.TeamMembership, 0)
	for _, n := range numbers {
		for _, userID := range teams[n] {
			rows = append(rows, models.TeamMembership{EventID: eventID, TeamNumber: n, UserID: userID})
		}
	}
	return rows
}

func buildSignupEmbed(event *models.Event) *chat.Embed {
	return &chat.Embed{
		Title: fmt.Sprintf("Bingo Signup: %s", event.Name),
		Description: fmt.Sprintf("Game mode: **%s**\nReact with %s to sign up, %s to remove yourself.",
			event.GameMode, chat.ReactionJoin, chat.ReactionLeave),
		Fields: []chat.EmbedField{
			{Name: "Start (UTC)", Value: event.StartAt.UTC().Format(time.RFC1123)},
			{Name: "Signup closes (UTC)", Value: event.SignupCloseAt.UTC().Format(time.RFC1123)},
			{Name: "Team size", Value: fmt.Sprintf("%d", event.TeamSize), Inline: true},
			{Name: "Team selection", Value: string(event.TeamMode), Inline: true},
		},
	}
}
