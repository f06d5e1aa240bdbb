package interfaces

import (
	"context"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

type RiskRepository interface {
	// Create persists a new risk. ID, CreatedAt and UpdatedAt are set by the
	// repository when empty.
	Create(ctx context.Context, risk *model.Risk) (*model.Risk, error)

	// Get retrieves a risk by ID
	Get(ctx context.Context, id model.RiskID) (*model.Risk, error)

	// List retrieves risks ordered by CreatedAt descending
	List(ctx context.Context, opts ...ListRiskOption) ([]*model.Risk, error)

	// AssignOwner writes the owner reference only when the risk has none. It
	// returns the stored risk and whether this call performed the write. When
	// another owner was already set, the stored risk carries that owner.
	AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error)

	// AttachDocument sets the document reference only when none is set yet
	AttachDocument(ctx context.Context, id model.RiskID, ref string) (*model.Risk, bool, error)

	// UpdateAssessment applies assessment fields. It never touches the owner,
	// categories, reporter or creation time.
	UpdateAssessment(ctx context.Context, id model.RiskID, assessment *model.RiskAssessment) (*model.Risk, error)

	// CountOpenByOwners returns the number of non-closed risks owned by each
	// given user. Users without risks map to 0.
	CountOpenByOwners(ctx context.Context, ownerIDs []types.UserID) (map[types.UserID]int, error)
}
