package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/model/config"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

const maxResidualRating = 100

type RiskUseCase struct {
	repo       interfaces.Repository
	assignment *AssignmentUseCase
	catalog    *config.Catalog
	storage    interfaces.DocumentStorage
	notifier   *notifier
}

func NewRiskUseCase(repo interfaces.Repository, assignment *AssignmentUseCase, catalog *config.Catalog, storage interfaces.DocumentStorage, n *notifier) *RiskUseCase {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	return &RiskUseCase{
		repo:       repo,
		assignment: assignment,
		catalog:    catalog,
		storage:    storage,
		notifier:   n,
	}
}

// SubmitRisk validates and persists a reported risk, then runs auto-assignment.
//
// Validation failures return ErrInvalidSubmission (or ErrUnsupportedDocument)
// and nothing is stored. Once the risk is committed, an assignment store
// failure returns the committed risk together with the error so the caller
// can report the risk as saved with assignment pending.
func (uc *RiskUseCase) SubmitRisk(ctx context.Context, reporter model.UserContext, sub *model.RiskSubmission) (*model.IntakeResult, error) {
	result, err := uc.submitRisk(ctx, reporter, sub)
	switch {
	case err == nil:
		riskSubmissions.WithLabelValues(submissionAccepted).Inc()
	case result != nil:
		// committed, assignment failed
		riskSubmissions.WithLabelValues(submissionAccepted).Inc()
	case errors.Is(err, ErrInvalidSubmission), errors.Is(err, ErrUnsupportedDocument), errors.Is(err, ErrUserNotFound):
		riskSubmissions.WithLabelValues(submissionRejected).Inc()
	default:
		riskSubmissions.WithLabelValues(submissionFailed).Inc()
	}
	return result, err
}

func (uc *RiskUseCase) submitRisk(ctx context.Context, reporter model.UserContext, sub *model.RiskSubmission) (*model.IntakeResult, error) {
	if err := reporter.UserID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidSubmission, "reporter is required")
	}
	risk, err := uc.buildRisk(sub)
	if err != nil {
		return nil, err
	}

	user, err := uc.repo.User().Get(ctx, reporter.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUserNotFound, "reporter not found", goerr.V(UserIDKey, reporter.UserID))
		}
		return nil, storeError(err, "failed to get reporter", goerr.V(UserIDKey, reporter.UserID))
	}

	risk.ReportedBy = reporter.UserID
	risk.Department = firstNonEmpty(reporter.Department, user.Department, uc.catalog.Department())

	if sub.Document != nil {
		ref, err := uc.storeDocument(ctx, risk.ID, sub.Document)
		if err != nil {
			return nil, err
		}
		risk.DocumentRef = ref
	}

	created, err := uc.repo.Risk().Create(ctx, risk)
	if err != nil {
		return nil, storeError(err, "failed to create risk", goerr.V(RiskIDKey, risk.ID))
	}

	logger := logging.From(ctx)
	logger.Info("risk reported",
		RiskIDKey, created.ID,
		UserIDKey, created.ReportedBy,
		"department", created.Department,
		"categories", created.Categories,
	)

	// the reporter is already resolved; hand the department on so assignment
	// does not look the user up again
	if dept := firstNonEmpty(reporter.Department, user.Department); dept != "" {
		reporter = reporter.WithDepartment(dept)
	}

	result := &model.IntakeResult{Risk: created}
	assignment, err := uc.assignment.Assign(ctx, created.ID, reporter)
	result.Assignment = assignment
	if err != nil {
		return result, goerr.Wrap(err, "risk saved but auto-assignment failed", goerr.V(RiskIDKey, created.ID))
	}
	if assignment.Success {
		created.OwnerID = assignment.OwnerID
	}

	uc.notifier.notifyIntake(ctx, created, assignment)

	return result, nil
}

// buildRisk validates the submission and returns an unsaved open risk
func (uc *RiskUseCase) buildRisk(sub *model.RiskSubmission) (*model.Risk, error) {
	if sub == nil {
		return nil, goerr.Wrap(ErrInvalidSubmission, "submission is required")
	}

	description := strings.TrimSpace(sub.Description)
	if description == "" {
		return nil, goerr.Wrap(ErrInvalidSubmission, "description is required")
	}
	cause := strings.TrimSpace(sub.Cause)
	if cause == "" {
		return nil, goerr.Wrap(ErrInvalidSubmission, "cause is required")
	}

	categories := model.NormalizeCategories(sub.Categories)
	if len(categories) == 0 {
		return nil, goerr.Wrap(ErrInvalidSubmission, "at least one category is required")
	}
	for _, c := range categories {
		if !uc.catalog.Contains(c) {
			return nil, goerr.Wrap(ErrInvalidSubmission, "unknown category", goerr.V("category", c))
		}
	}

	// details are kept only for selected categories
	var details map[types.Category]string
	for c, detail := range sub.CategoryDetails {
		c = types.Category(strings.TrimSpace(c.String()))
		detail = strings.TrimSpace(detail)
		if detail == "" || !slices.Contains(categories, c) {
			continue
		}
		if details == nil {
			details = make(map[types.Category]string)
		}
		details[c] = detail
	}

	if sub.Document != nil && !sub.Document.IsAllowed() {
		return nil, goerr.Wrap(ErrUnsupportedDocument, "document type is not allowed",
			goerr.V("file_name", sub.Document.FileName))
	}

	return &model.Risk{
		ID:              model.NewRiskID(),
		Description:     description,
		Cause:           cause,
		Categories:      categories,
		CategoryDetails: details,
		Status:          types.RiskStatusOpen,
	}, nil
}

func (uc *RiskUseCase) storeDocument(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error) {
	if uc.storage == nil {
		return "", goerr.Wrap(ErrDocumentStorageNotConfigured, "document upload is disabled")
	}
	ref, err := uc.storage.Put(ctx, riskID, doc)
	if err != nil {
		return "", storeError(err, "failed to store document",
			goerr.V(RiskIDKey, riskID),
			goerr.V("file_name", doc.FileName),
		)
	}
	return ref, nil
}

// GetRisk retrieves a risk by ID
func (uc *RiskUseCase) GetRisk(ctx context.Context, id model.RiskID) (*model.Risk, error) {
	risk, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return nil, storeError(err, "failed to get risk", goerr.V(RiskIDKey, id))
	}
	return risk, nil
}

// ListMyRisks returns the risks reported by the user, newest first
func (uc *RiskUseCase) ListMyRisks(ctx context.Context, userID types.UserID) ([]*model.Risk, error) {
	risks, err := uc.repo.Risk().List(ctx, interfaces.WithReporter(userID))
	if err != nil {
		return nil, storeError(err, "failed to list risks", goerr.V(UserIDKey, userID))
	}
	return risks, nil
}

// AttachDocument uploads a document for a risk that has none yet
func (uc *RiskUseCase) AttachDocument(ctx context.Context, id model.RiskID, doc *model.Document) (*model.Risk, error) {
	if doc == nil {
		return nil, goerr.Wrap(ErrInvalidSubmission, "document is required")
	}
	if !doc.IsAllowed() {
		return nil, goerr.Wrap(ErrUnsupportedDocument, "document type is not allowed", goerr.V("file_name", doc.FileName))
	}

	risk, err := uc.GetRisk(ctx, id)
	if err != nil {
		return nil, err
	}
	if risk.DocumentRef != "" {
		return nil, goerr.Wrap(ErrDocumentAlreadyAttached, "risk already has a document", goerr.V(RiskIDKey, id))
	}

	ref, err := uc.storeDocument(ctx, id, doc)
	if err != nil {
		return nil, err
	}

	stored, written, err := uc.repo.Risk().AttachDocument(ctx, id, ref)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return nil, storeError(err, "failed to attach document", goerr.V(RiskIDKey, id))
	}
	if !written {
		logging.From(ctx).Warn("document uploaded but another attachment won", RiskIDKey, id, "orphan_ref", ref)
		return nil, goerr.Wrap(ErrDocumentAlreadyAttached, "risk already has a document", goerr.V(RiskIDKey, id))
	}

	return stored, nil
}

// UpdateAssessment applies a risk owner's assessment. Owner, categories,
// reporter and creation time are never modified.
func (uc *RiskUseCase) UpdateAssessment(ctx context.Context, id model.RiskID, assessment *model.RiskAssessment) (*model.Risk, error) {
	if err := validateAssessment(assessment); err != nil {
		return nil, err
	}

	updated, err := uc.repo.Risk().UpdateAssessment(ctx, id, assessment)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return nil, storeError(err, "failed to update assessment", goerr.V(RiskIDKey, id))
	}
	return updated, nil
}

// RetryAssignment re-runs auto-assignment for a risk still waiting for an owner,
// using the stored reporter and department.
func (uc *RiskUseCase) RetryAssignment(ctx context.Context, id model.RiskID) (*model.AssignmentResult, error) {
	risk, err := uc.GetRisk(ctx, id)
	if err != nil {
		return nil, err
	}

	reporter := model.UserContext{UserID: risk.ReportedBy, Department: risk.Department}
	result, err := uc.assignment.Assign(ctx, id, reporter)
	if err != nil {
		return result, err
	}
	if result.Reason == types.AssignmentReasonAssigned {
		risk.OwnerID = result.OwnerID
		uc.notifier.notifyIntake(ctx, risk, result)
	}
	return result, nil
}

func validateAssessment(a *model.RiskAssessment) error {
	if a == nil {
		return goerr.Wrap(ErrInvalidSubmission, "assessment is required")
	}
	if a.Status != nil && !a.Status.IsValid() {
		return goerr.Wrap(ErrInvalidSubmission, "invalid status", goerr.V("status", *a.Status))
	}
	if a.Level != nil && !a.Level.IsValid() {
		return goerr.Wrap(ErrInvalidSubmission, "invalid risk level", goerr.V("level", *a.Level))
	}
	if a.ResidualRating != nil && (*a.ResidualRating < 0 || *a.ResidualRating > maxResidualRating) {
		return goerr.Wrap(ErrInvalidSubmission, "residual rating must be between 0 and 100",
			goerr.V("residual_rating", *a.ResidualRating))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
