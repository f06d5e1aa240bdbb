package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

type riskRepository struct {
	mu    sync.RWMutex
	risks map[model.RiskID]*model.Risk
}

func newRiskRepository() *riskRepository {
	return &riskRepository{
		risks: make(map[model.RiskID]*model.Risk),
	}
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := risk.Copy()
	if created.ID == "" {
		created.ID = model.NewRiskID()
	}
	if _, exists := r.risks[created.ID]; exists {
		return nil, goerr.New("risk already exists", goerr.V("id", created.ID))
	}

	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	r.risks[created.ID] = created
	return created.Copy(), nil
}

func (r *riskRepository) Get(ctx context.Context, id model.RiskID) (*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	// Return a copy to prevent external modification
	return risk.Copy(), nil
}

func (r *riskRepository) List(ctx context.Context, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	filter := interfaces.BuildListRiskOptions(opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	risks := make([]*model.Risk, 0, len(r.risks))
	for _, risk := range r.risks {
		if filter.Match(risk) {
			risks = append(risks, risk.Copy())
		}
	}

	slices.SortFunc(risks, func(a, b *model.Risk) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return risks, nil
}

func (r *riskRepository) AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, false, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}
	if risk.IsAssigned() {
		return risk.Copy(), false, nil
	}

	risk.OwnerID = ownerID
	risk.UpdatedAt = time.Now().UTC()
	return risk.Copy(), true, nil
}

func (r *riskRepository) AttachDocument(ctx context.Context, id model.RiskID, ref string) (*model.Risk, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, false, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}
	if risk.DocumentRef != "" {
		return risk.Copy(), false, nil
	}

	risk.DocumentRef = ref
	risk.UpdatedAt = time.Now().UTC()
	return risk.Copy(), true, nil
}

func (r *riskRepository) UpdateAssessment(ctx context.Context, id model.RiskID, assessment *model.RiskAssessment) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	assessment.Apply(risk)
	risk.UpdatedAt = time.Now().UTC()
	return risk.Copy(), nil
}

func (r *riskRepository) CountOpenByOwners(ctx context.Context, ownerIDs []types.UserID) (map[types.UserID]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[types.UserID]int, len(ownerIDs))
	for _, id := range ownerIDs {
		counts[id] = 0
	}
	for _, risk := range r.risks {
		if risk.Status.IsClosed() {
			continue
		}
		if _, ok := counts[risk.OwnerID]; ok {
			counts[risk.OwnerID]++
		}
	}

	return counts, nil
}
