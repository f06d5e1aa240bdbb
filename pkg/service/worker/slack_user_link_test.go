package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/repository/memory"
	"github.com/secmon-lab/riskdesk/pkg/service/slack"
	"github.com/secmon-lab/riskdesk/pkg/service/worker"
	goslack "github.com/slack-go/slack"
)

// mockSlackService resolves emails from a fixed table
type mockSlackService struct {
	mu      sync.Mutex
	byEmail map[string]string
	lookups int
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	return "1234567890.123456", nil
}

func (m *mockSlackService) LookupUserByEmail(ctx context.Context, email string) (*slack.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	id, ok := m.byEmail[email]
	if !ok {
		return nil, errors.New("users_not_found")
	}
	return &slack.User{ID: id, Email: email}, nil
}

func (m *mockSlackService) setUser(email, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[email] = id
}

func (m *mockSlackService) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func newRepository(t *testing.T) *memory.Memory {
	t.Helper()
	repo := memory.New()
	gt.NoError(t, repo.User().SaveMany(context.Background(), []*model.User{
		{ID: "owner-a", Email: "ann@example.com", Department: "Retail", Role: types.UserRoleRiskOwner},
		{ID: "owner-b", Email: "bob@example.com", Department: "Retail", Role: types.UserRoleRiskOwner},
		{ID: "owner-c", Email: "cid@example.com", Department: "Legal", Role: types.UserRoleRiskOwner, SlackUserID: "UCID"},
		{ID: "staff-d", Department: "Retail", Role: types.UserRoleStaff},
	})).Required()
	return repo
}

func TestSlackUserLinkWorker_Link(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	svc := &mockSlackService{byEmail: map[string]string{
		"ann@example.com": "UANN",
		"cid@example.com": "UOTHER",
	}}
	w, err := worker.NewSlackUserLinkWorker(repo, svc, time.Hour)
	gt.NoError(t, err).Required()


	linked, err := w.Link(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, linked).Equal(1)
	// only users with an email and no Slack ID are looked up
	gt.Value(t, svc.lookupCount()).Equal(2)

	ann, err := repo.User().Get(ctx, "owner-a")
	gt.NoError(t, err).Required()
	gt.Value(t, ann.SlackUserID).Equal("UANN")
	gt.Value(t, ann.Department).Equal("Retail")
	gt.Value(t, ann.Role).Equal(types.UserRoleRiskOwner)

	cid, err := repo.User().Get(ctx, "owner-c")
	gt.NoError(t, err).Required()
	gt.Value(t, cid.SlackUserID).Equal("UCID")

	bob, err := repo.User().Get(ctx, "owner-b")
	gt.NoError(t, err).Required()
	gt.Value(t, bob.SlackUserID).Equal("")
}

func TestSlackUserLinkWorker_PeriodicLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := newRepository(t)
	svc := &mockSlackService{byEmail: map[string]string{}}
	w, err := worker.NewSlackUserLinkWorker(repo, svc, 20*time.Millisecond)
	gt.NoError(t, err).Required()
	w.Start(ctx)
	defer w.Stop()

	svc.setUser("bob@example.com", "UBOB")

	deadline := time.Now().Add(2 * time.Second)
	for {
		bob, err := repo.User().Get(ctx, "owner-b")
		gt.NoError(t, err).Required()
		if bob.SlackUserID == "UBOB" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("owner-b was not linked by the periodic pass")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSlackUserLinkWorker_StopsCleanly(t *testing.T) {
	repo := newRepository(t)
	svc := &mockSlackService{byEmail: map[string]string{}}
	w, err := worker.NewSlackUserLinkWorker(repo, svc, time.Hour)
	gt.NoError(t, err).Required()
	w.Start(context.Background())

	start := time.Now()
	w.Stop()
	gt.B(t, time.Since(start) < time.Second).True()
}

func TestNewSlackUserLinkWorker_InvalidInterval(t *testing.T) {
	repo := newRepository(t)
	svc := &mockSlackService{byEmail: map[string]string{}}

	for _, interval := range []time.Duration{0, -time.Minute} {
		w, err := worker.NewSlackUserLinkWorker(repo, svc, interval)
		gt.Error(t, err).Is(worker.ErrInvalidInterval)
		gt.B(t, w == nil).True()
	}
}
