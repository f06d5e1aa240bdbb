package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"golang.org/x/sync/errgroup"
)

// DashboardUseCase builds the compliance team's read models
type DashboardUseCase struct {
	repo  interfaces.Repository
	clock func() time.Time
}

func NewDashboardUseCase(repo interfaces.Repository, clock func() time.Time) *DashboardUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &DashboardUseCase{repo: repo, clock: clock}
}

// Summary loads risks and users concurrently and builds every dashboard view
// from one consistent snapshot.
func (uc *DashboardUseCase) Summary(ctx context.Context) (*model.DashboardSummary, error) {
	var (
		risks []*model.Risk
		users []*model.User
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		risks, err = uc.repo.Risk().List(egCtx)
		if err != nil {
			return storeError(err, "failed to list risks")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		users, err = uc.repo.User().List(egCtx)
		if err != nil {
			return storeError(err, "failed to list users")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	now := uc.clock()
	return &model.DashboardSummary{
		GeneratedAt:          now,
		Stats:                model.BuildComplianceStats(risks, now),
		DepartmentHealth:     model.BuildDepartmentHealth(risks, now),
		SimilarGroups:        model.GroupSimilarRisks(risks),
		UpcomingReviews:      model.BuildUpcomingReviews(risks, now, model.ReviewWindow),
		Aging:                model.BuildAging(risks, now),
		UnstaffedDepartments: model.FindUnstaffedDepartments(risks, users),
	}, nil
}

// SimilarGroups groups all stored risks by identical category set
func (uc *DashboardUseCase) SimilarGroups(ctx context.Context) ([]*model.SimilarityGroup, error) {
	risks, err := uc.listRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.GroupSimilarRisks(risks), nil
}

// Stats returns headline compliance counters
func (uc *DashboardUseCase) Stats(ctx context.Context) (*model.ComplianceStats, error) {
	risks, err := uc.listRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildComplianceStats(risks, uc.clock()), nil
}

// DepartmentHealth returns per-department health scores
func (uc *DashboardUseCase) DepartmentHealth(ctx context.Context) ([]*model.DepartmentHealth, error) {
	risks, err := uc.listRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildDepartmentHealth(risks, uc.clock()), nil
}

// UpcomingReviews returns risks due within the review window
func (uc *DashboardUseCase) UpcomingReviews(ctx context.Context) ([]*model.UpcomingReview, error) {
	risks, err := uc.listRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildUpcomingReviews(risks, uc.clock(), model.ReviewWindow), nil
}

// Matrix returns the live risk matrix entries
func (uc *DashboardUseCase) Matrix(ctx context.Context) ([]*model.MatrixEntry, error) {
	risks, err := uc.listRisks(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildMatrix(risks), nil
}

func (uc *DashboardUseCase) listRisks(ctx context.Context) ([]*model.Risk, error) {
	risks, err := uc.repo.Risk().List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list risks")
	}
	return risks, nil
}
