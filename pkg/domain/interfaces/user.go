package interfaces

import (
	"context"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

type UserRepository interface {
	// Get retrieves a user by ID
	Get(ctx context.Context, id types.UserID) (*model.User, error)

	// List retrieves all users ordered by ID
	List(ctx context.Context) ([]*model.User, error)

	// ListOwners returns users with the risk owner role whose department
	// equals dept, ordered by ID
	ListOwners(ctx context.Context, dept string) ([]*model.User, error)

	// SaveMany upserts users by ID
	SaveMany(ctx context.Context, users []*model.User) error
}
