package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/domain/model/config"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

func TestCatalog(t *testing.T) {
	t.Run("default catalog is valid", func(t *testing.T) {
		c := config.DefaultCatalog()
		gt.NoError(t, c.Validate())
		gt.B(t, c.Contains(types.CategoryFraud)).True()
		gt.B(t, c.Contains(" Fraud ")).True()
		gt.B(t, c.Contains("IT")).False()
		gt.Value(t, c.Department()).Equal("General")
	})

	t.Run("duplicate category is rejected", func(t *testing.T) {
		c := &config.Catalog{Categories: []types.Category{"Fraud", "Fraud"}}
		gt.Error(t, c.Validate())
	})

	t.Run("empty catalog is rejected", func(t *testing.T) {
		c := &config.Catalog{}
		gt.Error(t, c.Validate())
	})

	t.Run("custom fallback department", func(t *testing.T) {
		c := &config.Catalog{Categories: []types.Category{"IT"}, FallbackDepartment: "Head Office"}
		gt.Value(t, c.Department()).Equal("Head Office")
	})
}
