package services

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clantools/bingo-system/live"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
)

type wizardDeps struct {
	configRepo *fakeConfigRepo
	eventRepo  *fakeEventRepo
	notifier   *fakeNotifier
	uploader   *fakeUploader
	clock      *fakeClock
}

func newWizardForTest(t *testing.T) (*WizardService, *wizardDeps) {
	t.Helper()
	deps := &wizardDeps{
		configRepo: newFakeConfigRepo(),
		eventRepo:  newFakeEventRepo(),
		notifier:   newFakeNotifier(),
		uploader:   &fakeUploader{},
		clock:      &fakeClock{current: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
	}
	leaderboard := NewLeaderboardService(deps.eventRepo, newFakeSubmissionRepo(), deps.notifier, live.NewHub(), testLogger())
	events := NewEventService(
		fakeTxRunner{},
		deps.configRepo,
		deps.eventRepo,
		newFakeSignupRepo(),
		newFakeTeamRepo(),
		leaderboard,
		deps.notifier,
		deps.uploader,
		testLogger(),
		rand.New(rand.NewSource(1)),
		deps.clock.Now,
	)
	wizard := NewWizardService(deps.configRepo, events, deps.uploader, testLogger(), 5*time.Minute, deps.clock.Now)
	return wizard, deps
}

// happyPathAnswers is the full flow in step order, excluding the final
// board-image step.
var happyPathAnswers = []string{
	"<#111>", // signup channel
	"<#222>", // submissions channel
	"<#333>", // announcements channel
	"<#444>", // board channel
	"Winter Bingo",
	"custom",
	"2",
	"random",
	"2026-01-17 19:00",
	"UTC",
	"none",      // no end datetime
	"2",         // close signups 2h before start
	"<@&55>",    // notify role
	"bingo_start",
	"admin",
	"3", // approvals required
}

func runHappyPath(t *testing.T, wizard *WizardService, groupID, userID int64) {
	t.Helper()
	ctx := context.Background()

	_, err := wizard.Start(ctx, groupID, userID)
	require.NoError(t, err)

	for _, answer := range happyPathAnswers {
		_, done, err := wizard.Reply(ctx, groupID, userID, answer, nil)
		require.NoError(t, err, "answer %q", answer)
		require.False(t, done, "flow ended early at %q", answer)
	}
}

func TestWizardHappyPath(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	runHappyPath(t, wizard, 500, 42)

	// Final step: board image.
	prompt, done, err := wizard.Reply(ctx, 500, 42, "", &AttachmentInput{
		Reader:      strings.NewReader("board png"),
		Filename:    "board.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, prompt, "Setup complete")

	cfg, err := deps.configRepo.GetByGroup(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(111), cfg.SignupChannelID)
	assert.Equal(t, int64(444), cfg.BoardChannelID)

	event, err := deps.eventRepo.GetActiveByGroup(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, "Winter Bingo", event.Name)
	assert.Equal(t, models.StatusSignupOpen, event.Status)
	assert.Equal(t, 2, event.TeamSize)
	assert.Equal(t, models.TeamModeRandom, event.TeamMode)
	assert.Equal(t, time.Date(2026, 1, 17, 19, 0, 0, 0, time.UTC), event.StartAt)
	assert.Equal(t, time.Date(2026, 1, 17, 17, 0, 0, 0, time.UTC), event.SignupCloseAt)
	assert.Nil(t, event.EndAt)
	require.NotNil(t, event.NotifyRoleID)
	assert.Equal(t, int64(55), *event.NotifyRoleID)
	assert.Equal(t, models.RevealOnStart, event.RevealBoard)
	assert.Equal(t, models.PolicyModerator, event.ApprovalPolicy)
	assert.Equal(t, 3, event.ApprovalsRequired)
	require.NotNil(t, event.BoardImageKey)
	assert.True(t, strings.HasPrefix(*event.BoardImageKey, "boards/board_500_"))

	require.Len(t, deps.uploader.uploaded, 1)
}

func TestWizardSkipBoardImage(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	runHappyPath(t, wizard, 500, 42)
	_, done, err := wizard.Reply(ctx, 500, 42, "skip", nil)
	require.NoError(t, err)
	assert.True(t, done)

	event, err := deps.eventRepo.GetActiveByGroup(ctx, 500)
	require.NoError(t, err)
	assert.Nil(t, event.BoardImageKey)
	assert.Empty(t, deps.uploader.uploaded)
}

func TestWizardPolicyNoneSkipsApprovalsCount(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	_, err := wizard.Start(ctx, 500, 42)
	require.NoError(t, err)

	answers := append([]string(nil), happyPathAnswers[:len(happyPathAnswers)-2]...)
	answers = append(answers, "none") // approval policy
	for _, answer := range answers {
		_, done, err := wizard.Reply(ctx, 500, 42, answer, nil)
		require.NoError(t, err, "answer %q", answer)
		require.False(t, done)
	}

	// Next prompt is already the board image, not the approvals count.
	_, done, err := wizard.Reply(ctx, 500, 42, "skip", nil)
	require.NoError(t, err)
	assert.True(t, done)

	event, err := deps.eventRepo.GetActiveByGroup(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyNone, event.ApprovalPolicy)
	assert.Zero(t, event.ApprovalsRequired)
}

func TestWizardInvalidInputCancelsFlowButKeepsConfig(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	_, err := wizard.Start(ctx, 500, 42)
	require.NoError(t, err)

	for _, answer := range happyPathAnswers[:4] {
		_, _, err := wizard.Reply(ctx, 500, 42, answer, nil)
		require.NoError(t, err)
	}

	// Name accepted, then garbage for the team size.
	_, _, err = wizard.Reply(ctx, 500, 42, "Winter Bingo", nil)
	require.NoError(t, err)
	_, _, err = wizard.Reply(ctx, 500, 42, "custom", nil)
	require.NoError(t, err)
	_, _, err = wizard.Reply(ctx, 500, 42, "many", nil)
	require.ErrorIs(t, err, ErrInvalidTeamSize)

	// The flow is gone but the channel config already persisted.
	_, _, err = wizard.Reply(ctx, 500, 42, "2", nil)
	assert.ErrorIs(t, err, ErrWizardNotActive)

	cfg, err := deps.configRepo.GetByGroup(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(222), cfg.SubmissionsChannelID)
}

// gatedReader signals when Read is first called, then blocks until released.
// It holds an upload mid-flight so the test can interleave a second reply.
type gatedReader struct {
	entered chan struct{}
	release chan struct{}
	data    io.Reader
	once    sync.Once
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.data.Read(p)
}

func TestWizardConcurrentFinalReplies(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	runHappyPath(t, wizard, 500, 42)

	reader := &gatedReader{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		data:    strings.NewReader("board png"),
	}
	var (
		slowDone bool
		slowErr  error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, slowDone, slowErr = wizard.Reply(ctx, 500, 42, "", &AttachmentInput{
			Reader:      reader,
			Filename:    "board.png",
			ContentType: "image/png",
		})
	}()

	// The first reply is mid-upload and owns the session; a second reply on
	// the same group must be turned away, not share the flow.
	<-reader.entered
	_, _, err := wizard.Reply(ctx, 500, 42, "skip", nil)
	assert.ErrorIs(t, err, ErrWizardNotActive)

	close(reader.release)
	<-finished
	require.NoError(t, slowErr)
	assert.True(t, slowDone)

	// Exactly one event was created for the group.
	events, err := deps.eventRepo.ListNonTerminal(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(500), events[0].GroupID)
}

func TestWizardFailedEventCreateDiscardsBoardImage(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	_, err := wizard.Start(ctx, 500, 42)
	require.NoError(t, err)

	answers := append([]string(nil), happyPathAnswers...)
	answers[10] = "2026-01-17 18:00" // end before start
	for _, answer := range answers {
		_, _, err := wizard.Reply(ctx, 500, 42, answer, nil)
		require.NoError(t, err, "answer %q", answer)
	}

	_, done, err := wizard.Reply(ctx, 500, 42, "", &AttachmentInput{
		Reader:      strings.NewReader("board png"),
		Filename:    "board.png",
		ContentType: "image/png",
	})
	require.ErrorIs(t, err, ErrInvalidEventTimes)
	assert.False(t, done)

	// The orphaned upload is reclaimed, no event exists, the flow is gone.
	require.Len(t, deps.uploader.uploaded, 1)
	assert.Equal(t, deps.uploader.uploaded, deps.uploader.deleted)
	_, err = deps.eventRepo.GetActiveByGroup(ctx, 500)
	assert.ErrorIs(t, err, repositories.ErrEventNotFound)
	_, _, err = wizard.Reply(ctx, 500, 42, "skip", nil)
	assert.ErrorIs(t, err, ErrWizardNotActive)
}

func TestWizardStepTimeout(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	_, err := wizard.Start(ctx, 500, 42)
	require.NoError(t, err)

	deps.clock.current = deps.clock.current.Add(6 * time.Minute)
	_, _, err = wizard.Reply(ctx, 500, 42, "<#111>", nil)
	assert.ErrorIs(t, err, ErrWizardExpired)

	// Expired session is cleared; a new flow can start.
	_, err = wizard.Start(ctx, 500, 42)
	assert.NoError(t, err)
}

func TestWizardOwnership(t *testing.T) {
	wizard, _ := newWizardForTest(t)
	ctx := context.Background()

	_, err := wizard.Start(ctx, 500, 42)
	require.NoError(t, err)

	_, _, err = wizard.Reply(ctx, 500, 43, "<#111>", nil)
	assert.ErrorIs(t, err, ErrWizardWrongUser)

	_, err = wizard.Start(ctx, 500, 43)
	assert.ErrorIs(t, err, ErrWizardAlreadyActive)
}

func TestWizardBlockedByActiveEvent(t *testing.T) {
	wizard, deps := newWizardForTest(t)
	ctx := context.Background()

	deps.eventRepo.put(&models.Event{GroupID: 500, Status: models.StatusRunning})

	_, err := wizard.Start(ctx, 500, 42)
	assert.ErrorIs(t, err, ErrActiveEventExists)
}
