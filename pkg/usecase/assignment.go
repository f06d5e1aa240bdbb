package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

// AssignmentUseCase designates a risk owner for newly reported risks
type AssignmentUseCase struct {
	repo interfaces.Repository
}

func NewAssignmentUseCase(repo interfaces.Repository) *AssignmentUseCase {
	return &AssignmentUseCase{repo: repo}
}

// Assign picks a risk owner of the reporter's department and records it on
// the risk, unless an owner is already recorded.
//
// The owner is written with the store's conditional AssignOwner primitive, so
// concurrent calls for the same risk record at most one owner and every caller
// reports the owner that was actually stored. A store failure yields
// STORE_ERROR together with an error matching ErrStoreUnavailable; no owner is
// reported without a confirmed write.
func (uc *AssignmentUseCase) Assign(ctx context.Context, riskID model.RiskID, reporter model.UserContext) (*model.AssignmentResult, error) {
	result, err := uc.assign(ctx, riskID, reporter)
	if result != nil {
		assignmentOutcomes.WithLabelValues(result.Reason.String()).Inc()
	}
	return result, err
}

func (uc *AssignmentUseCase) assign(ctx context.Context, riskID model.RiskID, reporter model.UserContext) (*model.AssignmentResult, error) {
	logger := logging.From(ctx).With(RiskIDKey, riskID, UserIDKey, reporter.UserID)
	result := &model.AssignmentResult{Reporter: reporter}

	risk, err := uc.repo.Risk().Get(ctx, riskID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, riskID))
		}
		return storeFailure(result, storeError(err, "failed to get risk", goerr.V(RiskIDKey, riskID)))
	}

	if risk.IsAssigned() {
		result.Success = true
		result.OwnerID = risk.OwnerID
		result.Reason = types.AssignmentReasonAlreadyAssigned
		return result, nil
	}

	department := strings.TrimSpace(reporter.Department)
	if department == "" && reporter.UserID != "" {
		user, err := uc.repo.User().Get(ctx, reporter.UserID)
		switch {
		case err == nil:
			department = strings.TrimSpace(user.Department)
		case errors.Is(err, interfaces.ErrNotFound):
			logger.Warn("reporter not found in user directory")
		default:
			return storeFailure(result, storeError(err, "failed to get reporter", goerr.V(UserIDKey, reporter.UserID)))
		}
		if department != "" {
			result.Reporter = reporter.WithDepartment(department)
		}
	}
	if department == "" {
		department = risk.Department
	}

	owners, err := uc.repo.User().ListOwners(ctx, department)
	if err != nil {
		return storeFailure(result, storeError(err, "failed to list risk owners", goerr.V("department", department)))
	}
	if len(owners) == 0 {
		logger.Info("no risk owner available", "department", department)
		result.Reason = types.AssignmentReasonNoOwnerAvailable
		return result, nil
	}

	candidate, err := uc.selectOwner(ctx, owners)
	if err != nil {
		return storeFailure(result, err)
	}

	stored, written, err := uc.repo.Risk().AssignOwner(ctx, riskID, candidate)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk disappeared during assignment", goerr.V(RiskIDKey, riskID))
		}
		return storeFailure(result, storeError(err, "failed to assign owner",
			goerr.V(RiskIDKey, riskID),
			goerr.V("owner_id", candidate),
		))
	}

	result.Success = true
	result.OwnerID = stored.OwnerID
	if written {
		result.Reason = types.AssignmentReasonAssigned
		logger.Info("risk owner assigned", "owner_id", stored.OwnerID, "department", department)
	} else {
		result.Reason = types.AssignmentReasonAlreadyAssigned
		logger.Info("risk owner was assigned concurrently", "owner_id", stored.OwnerID)
	}

	return result, nil
}

// selectOwner returns the owner with the fewest open owned risks, breaking
// ties by the lowest user ID.
func (uc *AssignmentUseCase) selectOwner(ctx context.Context, owners []*model.User) (types.UserID, error) {
	ids := make([]types.UserID, len(owners))
	for i, o := range owners {
		ids[i] = o.ID
	}

	counts, err := uc.repo.Risk().CountOpenByOwners(ctx, ids)
	if err != nil {
		return "", storeError(err, "failed to count owned risks", goerr.V("owners", len(ids)))
	}

	best := ids[0]
	for _, id := range ids[1:] {
		if counts[id] < counts[best] || (counts[id] == counts[best] && id < best) {
			best = id
		}
	}
	return best, nil
}

func storeFailure(result *model.AssignmentResult, err error) (*model.AssignmentResult, error) {
	result.Success = false
	result.OwnerID = ""
	result.Reason = types.AssignmentReasonStoreError
	return result, err
}
