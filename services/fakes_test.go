package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/clantools/bingo-system/chat"
	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
	"github.com/clantools/bingo-system/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxRunner runs the callback directly; the in-memory repositories
// ignore the executor argument.
type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeConfigRepo struct {
	configs map[int64]*models.GroupConfig
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: make(map[int64]*models.GroupConfig)}
}

func (r *fakeConfigRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, cfg *models.GroupConfig) error {
	copied := *cfg
	r.configs[cfg.GroupID] = &copied
	return nil
}

func (r *fakeConfigRepo) GetByGroup(ctx context.Context, groupID int64) (*models.GroupConfig, error) {
	cfg, ok := r.configs[groupID]
	if !ok {
		return nil, repositories.ErrGroupConfigNotFound
	}
	copied := *cfg
	return &copied, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	nextID int
	events map[int]*models.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{nextID: 1, events: make(map[int]*models.Event)}
}

func (r *fakeEventRepo) put(event *models.Event) *models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == 0 {
		event.ID = r.nextID
		r.nextID++
	}
	copied := *event
	r.events[event.ID] = &copied
	return event
}

func (r *fakeEventRepo) Create(ctx context.Context, exec repositories.SQLExecutor, event *models.Event) error {
	// Every call inserts a new row, like INSERT ... RETURNING id; a caller
	// creating twice ends up with two events.
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) GetActiveByGroup(ctx context.Context, groupID int64) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Event
	for _, event := range r.events {
		if event.GroupID != groupID || event.Status.IsTerminal() {
			continue
		}
		if found == nil || event.ID > found.ID {
			found = event
		}
	}
	if found == nil {
		return nil, repositories.ErrEventNotFound
	}
	copied := *found
	return &copied, nil
}

func (r *fakeEventRepo) ListNonTerminal(ctx context.Context) ([]*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Event
	for _, event := range r.events {
		if event.Status == models.StatusSetup || event.Status.IsTerminal() {
			continue
		}
		copied := *event
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEventRepo) UpdateStatusFrom(ctx context.Context, exec repositories.SQLExecutor, id int, from []models.EventStatus, to models.EventStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventStatusConflict
	}
	for _, f := range from {
		if event.Status == f {
			event.Status = to
			return nil
		}
	}
	return repositories.ErrEventStatusConflict
}

func (r *fakeEventRepo) SetSignupMessageID(ctx context.Context, exec repositories.SQLExecutor, id int, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.SignupMessageID = &messageID
	return nil
}

func (r *fakeEventRepo) SetLeaderboardMessageID(ctx context.Context, exec repositories.SQLExecutor, id int, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.LeaderboardMessageID = &messageID
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

type fakeSignupRepo struct {
	mu      sync.Mutex
	signups map[int][]models.Signup
}

func newFakeSignupRepo() *fakeSignupRepo {
	return &fakeSignupRepo{signups: make(map[int][]models.Signup)}
}

func (r *fakeSignupRepo) Add(ctx context.Context, exec repositories.SQLExecutor, eventID int, userID int64, joinedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.signups[eventID] {
		if s.UserID == userID {
			return nil
		}
	}
	r.signups[eventID] = append(r.signups[eventID], models.Signup{EventID: eventID, UserID: userID, JoinedAt: joinedAt})
	return nil
}

func (r *fakeSignupRepo) Remove(ctx context.Context, exec repositories.SQLExecutor, eventID int, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.signups[eventID][:0]
	for _, s := range r.signups[eventID] {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	r.signups[eventID] = kept
	return nil
}

func (r *fakeSignupRepo) ListUserIDs(ctx context.Context, exec repositories.SQLExecutor, eventID int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.signups[eventID]))
	for _, s := range r.signups[eventID] {
		ids = append(ids, s.UserID)
	}
	return ids, nil
}

func (r *fakeSignupRepo) List(ctx context.Context, eventID int) ([]models.Signup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Signup(nil), r.signups[eventID]...), nil
}

type fakeTeamRepo struct {
	mu          sync.Mutex
	memberships map[int][]models.TeamMembership
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{memberships: make(map[int][]models.TeamMembership)}
}

func (r *fakeTeamRepo) ClearByEvent(ctx context.Context, exec repositories.SQLExecutor, eventID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.memberships, eventID)
	return nil
}

func (r *fakeTeamRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, memberships []models.TeamMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range memberships {
		r.memberships[m.EventID] = append(r.memberships[m.EventID], m)
	}
	return nil
}

func (r *fakeTeamRepo) ListByEvent(ctx context.Context, eventID int) ([]models.TeamMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TeamMembership(nil), r.memberships[eventID]...), nil
}

func (r *fakeTeamRepo) GetTeamNumber(ctx context.Context, eventID int, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships[eventID] {
		if m.UserID == userID {
			return m.TeamNumber, nil
		}
	}
	return 0, repositories.ErrTeamMembershipNotFound
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	nextID      int
	submissions map[int]*models.Submission
	standings   []models.TeamStanding
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{nextID: 1, submissions: make(map[int]*models.Submission)}
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.submissions {
		if existing.MessageID == submission.MessageID {
			return repositories.ErrSubmissionMessageTaken
		}
	}
	submission.ID = r.nextID
	r.nextID++
	copied := *submission
	r.submissions[submission.ID] = &copied
	return nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id int) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok {
		return nil, repositories.ErrSubmissionNotFound
	}
	copied := *submission
	return &copied, nil
}

func (r *fakeSubmissionRepo) GetByMessageID(ctx context.Context, messageID int64) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, submission := range r.submissions {
		if submission.MessageID == messageID {
			copied := *submission
			return &copied, nil
		}
	}
	return nil, repositories.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) UpdateStatusFrom(ctx context.Context, exec repositories.SQLExecutor, id int, from, to models.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	submission, ok := r.submissions[id]
	if !ok || submission.Status != from {
		return repositories.ErrSubmissionStatusConflict
	}
	submission.Status = to
	return nil
}

func (r *fakeSubmissionRepo) TeamTileCounts(ctx context.Context, eventID int) ([]models.TeamStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TeamStanding(nil), r.standings...), nil
}

type fakeApprovalRepo struct {
	mu    sync.Mutex
	votes map[int]map[int64]bool
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{votes: make(map[int]map[int64]bool)}
}

func (r *fakeApprovalRepo) Add(ctx context.Context, exec repositories.SQLExecutor, submissionID int, userID int64, approvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.votes[submissionID] == nil {
		r.votes[submissionID] = make(map[int64]bool)
	}
	r.votes[submissionID][userID] = true
	return nil
}

func (r *fakeApprovalRepo) CountBySubmission(ctx context.Context, exec repositories.SQLExecutor, submissionID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.votes[submissionID]), nil
}

// publishedMessage records one outbound delivery for assertions.
type publishedMessage struct {
	GroupID int64
	Role    chat.ChannelRole
	Msg     chat.Message
}

type fakeNotifier struct {
	mu         sync.Mutex
	nextID     int64
	published  []publishedMessage
	edits      map[int64]string
	publishErr error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{nextID: 1000, edits: make(map[int64]string)}
}

func (n *fakeNotifier) PublishMessage(ctx context.Context, groupID int64, role chat.ChannelRole, msg chat.Message) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.publishErr != nil {
		return 0, n.publishErr
	}
	n.nextID++
	n.published = append(n.published, publishedMessage{GroupID: groupID, Role: role, Msg: msg})
	return n.nextID, nil
}

func (n *fakeNotifier) EditMessage(ctx context.Context, groupID int64, role chat.ChannelRole, messageID int64, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits[messageID] = content
	return nil
}

func (n *fakeNotifier) RevealAsset(ctx context.Context, groupID int64, role chat.ChannelRole, assetURL, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, publishedMessage{GroupID: groupID, Role: role, Msg: chat.Message{Content: caption, AssetURL: assetURL}})
	return nil
}

func (n *fakeNotifier) messagesTo(role chat.ChannelRole) []publishedMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publishedMessage
	for _, m := range n.published {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeUploader struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (u *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return nil, err
	}
	u.uploaded = append(u.uploaded, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return fmt.Sprintf("https://cdn.test/%s", key)
}
