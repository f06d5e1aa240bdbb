package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/cli"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/repository/sqlite"
)

func seedSQLite(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	repo, err := sqlite.New(ctx, path)
	gt.NoError(t, err).Required()
	defer func() { gt.NoError(t, repo.Close()) }()

	for _, r := range []*model.Risk{
		{Description: "Duplicate invoices", Cause: "c", Department: "Finance", ReportedBy: "u-1",
			Categories: []types.Category{types.CategoryFraud, types.CategoryCompliance}, Status: types.RiskStatusOpen},
		{Description: "Vendor kickbacks", Cause: "c", Department: "Retail", ReportedBy: "u-2",
			Categories: []types.Category{types.CategoryCompliance, types.CategoryFraud}, Status: types.RiskStatusOpen},
		{Description: "Router end of life", Cause: "c", Department: "IT", ReportedBy: "u-3",
			Categories: []types.Category{types.CategoryNetworks}, Status: types.RiskStatusOpen},
	} {
		_, err := repo.Risk().Create(ctx, r)
		gt.NoError(t, err).Required()
	}
}

func TestRun_GroupsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskdesk.db")
	seedSQLite(t, path)

	t.Run("all groups", func(t *testing.T) {
		var out bytes.Buffer
		err := cli.RunWithWriter(context.Background(), []string{
			"riskdesk", "groups", "--repository-backend", "sqlite", "--sqlite-path", path,
		}, "test", &out)
		gt.NoError(t, err).Required()

		gt.String(t, out.String()).Contains("Compliance|Fraud")
		gt.String(t, out.String()).Contains("(2 reports)")
		gt.String(t, out.String()).Contains("Networks")
		gt.String(t, out.String()).Contains("Vendor kickbacks")
	})

	t.Run("min count filters singletons", func(t *testing.T) {
		var out bytes.Buffer
		err := cli.RunWithWriter(context.Background(), []string{
			"riskdesk", "groups", "--repository-backend", "sqlite", "--sqlite-path", path, "--min-count", "2",
		}, "test", &out)
		gt.NoError(t, err).Required()

		gt.String(t, out.String()).Contains("Compliance|Fraud")
		gt.B(t, strings.Contains(out.String(), "Networks")).False()
	})

	t.Run("empty repository", func(t *testing.T) {
		var out bytes.Buffer
		err := cli.RunWithWriter(context.Background(), []string{
			"riskdesk", "groups", "--repository-backend", "memory",
		}, "test", &out)
		gt.NoError(t, err).Required()
		gt.String(t, out.String()).Contains("No similar risk groups")
	})
}

func TestGetIndexConfig(t *testing.T) {
	cfg := cli.GetIndexConfig("test")
	gt.Array(t, cfg.Collections).Length(2).Required()
	gt.Value(t, cfg.Collections[0].Name).Equal("test_risks")
	gt.Value(t, cfg.Collections[1].Name).Equal("test_users")
	gt.Array(t, cfg.Collections[0].Indexes).Length(3)
}
