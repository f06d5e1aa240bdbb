package usecase_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/repository/memory"
	"github.com/secmon-lab/riskdesk/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

var testUsers = []*model.User{
	{ID: "staff-retail", Name: "Rita", Department: "Retail", Role: types.UserRoleStaff},
	{ID: "staff-nodept", Name: "Ned", Role: types.UserRoleStaff},
	{ID: "staff-legal", Name: "Lena", Department: "Legal", Role: types.UserRoleStaff},
	{ID: "owner-retail-b", Name: "Bob", Department: "Retail", Role: types.UserRoleRiskOwner, SlackUserID: "UBOB"},
	{ID: "owner-retail-a", Name: "Ann", Department: "Retail", Role: types.UserRoleRiskOwner, Email: "ann@example.com"},
	{ID: "owner-general", Name: "Gus", Department: "General", Role: types.UserRoleRiskOwner},
}

func newTestRepository(t *testing.T) *memory.Memory {
	t.Helper()
	repo := memory.New()
	gt.NoError(t, repo.User().SaveMany(context.Background(), testUsers)).Required()
	return repo
}

func validSubmission() *model.RiskSubmission {
	return &model.RiskSubmission{
		Description: "Unreconciled supplier invoices",
		Cause:       "Manual reconciliation backlog",
		Categories:  []types.Category{types.CategoryFraud, types.CategoryCompliance},
		CategoryDetails: map[types.Category]string{
			types.CategoryFraud: "duplicate invoice numbers",
		},
	}
}

// faultyRepository wraps the memory repository and injects store failures
type faultyRepository struct {
	*memory.Memory
	risk *faultyRiskRepository
	user *countingUserRepository
}

func newFaultyRepository(inner *memory.Memory) *faultyRepository {
	return &faultyRepository{
		Memory: inner,
		risk:   &faultyRiskRepository{RiskRepository: inner.Risk()},
		user:   &countingUserRepository{UserRepository: inner.User()},
	}
}

func (f *faultyRepository) Risk() interfaces.RiskRepository {
	return f.risk
}

func (f *faultyRepository) User() interfaces.UserRepository {
	return f.user
}

// countingUserRepository counts user lookups
type countingUserRepository struct {
	interfaces.UserRepository
	gets atomic.Int32
}

func (r *countingUserRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	r.gets.Add(1)
	return r.UserRepository.Get(ctx, id)
}

type faultyRiskRepository struct {
	interfaces.RiskRepository

	getErr       error
	listErr      error
	assignErr    error
	beforeAssign func(ctx context.Context, id model.RiskID)
}

func (r *faultyRiskRepository) Get(ctx context.Context, id model.RiskID) (*model.Risk, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.RiskRepository.Get(ctx, id)
}

func (r *faultyRiskRepository) List(ctx context.Context, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.RiskRepository.List(ctx, opts...)
}

func (r *faultyRiskRepository) AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error) {
	if r.assignErr != nil {
		return nil, false, r.assignErr
	}
	if r.beforeAssign != nil {
		r.beforeAssign(ctx, id)
	}
	return r.RiskRepository.AssignOwner(ctx, id, ownerID)
}

// mockDocumentStorage records uploaded documents
type mockDocumentStorage struct {
	mu    sync.Mutex
	puts  map[model.RiskID]string
	putFn func(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error)
}

func (m *mockDocumentStorage) Put(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, riskID, doc)
	}
	body, err := io.ReadAll(doc.Body)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = make(map[model.RiskID]string)
	}
	m.puts[riskID] = string(body)
	return "gs://evidence/" + riskID.String() + "/" + doc.FileName, nil
}

// mockSlackService records posted messages
type mockSlackService struct {
	mu       sync.Mutex
	posts    []postedMessage
	lookupFn func(ctx context.Context, email string) (*slack.User, error)
}

type postedMessage struct {
	channelID string
	blocks    []goslack.Block
	text      string
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, postedMessage{channelID: channelID, blocks: blocks, text: text})
	return "1700000000.000100", nil
}

func (m *mockSlackService) LookupUserByEmail(ctx context.Context, email string) (*slack.User, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, email)
	}
	return &slack.User{ID: "U-" + email, Email: email}, nil
}

func (m *mockSlackService) messages() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]postedMessage(nil), m.posts...)
}
