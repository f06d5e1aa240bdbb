package config

import (
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// Catalog is the closed set of categories a risk can be filed under, plus the
// department used when a reporter's department is unknown.
type Catalog struct {
	Categories         []types.Category
	FallbackDepartment string
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories:         types.DefaultCategories(),
		FallbackDepartment: model.DefaultDepartment,
	}
}

// Contains reports whether the category is part of the catalog
func (c *Catalog) Contains(category types.Category) bool {
	return slices.Contains(c.Categories, types.Category(strings.TrimSpace(string(category))))
}

// Department returns the fallback department, defaulting to "General"
func (c *Catalog) Department() string {
	if c == nil || strings.TrimSpace(c.FallbackDepartment) == "" {
		return model.DefaultDepartment
	}
	return c.FallbackDepartment
}

// Validate checks catalog entries for emptiness and duplicates
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return goerr.New("catalog must define at least one category")
	}

	seen := make(map[types.Category]struct{}, len(c.Categories))
	for _, category := range c.Categories {
		if err := category.Validate(); err != nil {
			return goerr.Wrap(err, "invalid category in catalog")
		}
		if _, ok := seen[category]; ok {
			return goerr.New("duplicate category in catalog", goerr.V("category", category))
		}
		seen[category] = struct{}{}
	}

	return nil
}
