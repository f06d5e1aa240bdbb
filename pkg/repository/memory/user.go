package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[types.UserID]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[types.UserID]*model.User),
	}
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}

	copied := *user
	return &copied, nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(*model.User) bool { return true }), nil
}

func (r *userRepository) ListOwners(ctx context.Context, dept string) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(u *model.User) bool {
		return u.Role.IsRiskOwner() && u.Department == dept
	}), nil
}

func (r *userRepository) SaveMany(ctx context.Context, users []*model.User) error {
	for _, u := range users {
		if err := u.ID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid user")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return nil
}

// collect must be called with the read lock held
func (r *userRepository) collect(match func(*model.User) bool) []*model.User {
	users := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		if match(u) {
			copied := *u
			users = append(users, &copied)
		}
	}
	slices.SortFunc(users, func(a, b *model.User) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return users
}
