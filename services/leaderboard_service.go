package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/clantools/bingo-system/chat"
	"github.com/clantools/bingo-system/live"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
	"golang.org/x/sync/singleflight"
)

// LeaderboardService is a derived read-model: per-team approved full-tile
// counts, recomputed on demand and never incrementally maintained.
type LeaderboardService struct {
	eventRepo      repositories.EventRepository
	submissionRepo repositories.SubmissionRepository
	notifier       chat.Notifier
	hub            *live.Hub
	logger         *slog.Logger

	// Collapses concurrent refreshes of the same event into one recompute.
	group singleflight.Group
}

func NewLeaderboardService(
	eventRepo repositories.EventRepository,
	submissionRepo repositories.SubmissionRepository,
	notifier chat.Notifier,
	hub *live.Hub,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		eventRepo:      eventRepo,
		submissionRepo: submissionRepo,
		notifier:       notifier,
		hub:            hub,
		logger:         logger,
	}
}

// Standings returns the current ordering: count descending, ties broken by
// ascending team number (the repository query guarantees the order).
func (s *LeaderboardService) Standings(ctx context.Context, eventID int) ([]models.TeamStanding, error) {
	return s.submissionRepo.TeamTileCounts(ctx, eventID)
}

// Refresh recomputes the leaderboard and publishes it: the recorded
// leaderboard post is edited in place, or created and its reference stored
// for future edits. The result is also broadcast to the group's live room.
func (s *LeaderboardService) Refresh(ctx context.Context, event *models.Event) error {
	_, err, _ := s.group.Do(strconv.Itoa(event.ID), func() (interface{}, error) {
		// The flight's result is shared with piggybacked callers, so the
		// first caller's cancellation must not fail it for everyone.
		return nil, s.refresh(context.WithoutCancel(ctx), event)
	})
	return err
}

func (s *LeaderboardService) refresh(ctx context.Context, event *models.Event) error {
	standings, err := s.submissionRepo.TeamTileCounts(ctx, event.ID)
	if err != nil {
		return err
	}

	content := renderLeaderboard(event.Name, standings)

	if event.LeaderboardMessageID != nil {
		if err := s.notifier.EditMessage(ctx, event.GroupID, chat.RoleAnnouncements, *event.LeaderboardMessageID, content); err != nil {
			return err
		}
	} else {
		messageID, err := s.notifier.PublishMessage(ctx, event.GroupID, chat.RoleAnnouncements, chat.Message{Content: content})
		if err != nil {
			return err
		}
		if err := s.eventRepo.SetLeaderboardMessageID(ctx, nil, event.ID, messageID); err != nil {
			return fmt.Errorf("failed to record leaderboard message reference: %w", err)
		}
		event.LeaderboardMessageID = &messageID
	}

	s.hub.BroadcastToRoom(strconv.FormatInt(event.GroupID, 10), live.Update{
		Type:    "LEADERBOARD_UPDATED",
		Payload: standings,
	})
	return nil
}

func renderLeaderboard(eventName string, standings []models.TeamStanding) string {
	lines := make([]string, 0, len(standings)+1)
	lines = append(lines, fmt.Sprintf("**Leaderboard: %s**", eventName))
	if len(standings) == 0 {
		lines = append(lines, "No approved full-tile submissions yet.")
	} else {
		for _, st := range standings {
			lines = append(lines, fmt.Sprintf("Team %d: **%d**", st.TeamNumber, st.Count))
		}
	}
	return strings.Join(lines, "\n")
}
