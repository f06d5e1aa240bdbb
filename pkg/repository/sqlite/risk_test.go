package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/repository/sqlite"
)

func TestRiskList_MalformedCategories(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "riskdesk.sqlite"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})

	broken, err := repo.Risk().Create(ctx, &model.Risk{
		Description: "legacy record",
		Cause:       "import",
		Categories:  []types.Category{types.CategoryFraud},
		Department:  "Retail",
		ReportedBy:  "u1",
		Status:      types.RiskStatusOpen,
	})
	gt.NoError(t, err).Required()
	_, err = repo.Risk().Create(ctx, &model.Risk{
		Description: "card skimmer",
		Cause:       "tampered terminal",
		Categories:  []types.Category{types.CategoryFraud},
		Department:  "Retail",
		ReportedBy:  "u1",
		Status:      types.RiskStatusOpen,
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.SetRawCategoriesForTest(ctx, broken.ID, `"Fraud"`, `["skimming"]`)).Required()

	risks, err := repo.Risk().List(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, risks).Length(2).Required()

	for _, r := range risks {
		if r.ID == broken.ID {
			gt.Value(t, r.Categories).Nil()
			gt.Value(t, r.CategoryDetails).Nil()
		} else {
			gt.Value(t, r.Categories).Equal([]types.Category{types.CategoryFraud})
		}
	}
}
