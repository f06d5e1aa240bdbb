package types

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Category is a risk category tag such as "Fraud" or "Operations". The set of
// accepted categories is closed and defined by the category catalog.
type Category string

const (
	CategoryFinancialExposure  Category = "Financial Exposure"
	CategoryMarketShareDecline Category = "Decrease in market share"
	CategoryCustomerExperience Category = "Customer Experience"
	CategoryCompliance         Category = "Compliance"
	CategoryReputation         Category = "Reputation"
	CategoryFraud              Category = "Fraud"
	CategoryOperations         Category = "Operations"
	CategoryNetworks           Category = "Networks"
)

const maxCategoryLength = 64

// DefaultCategories returns the built-in category catalog
func DefaultCategories() []Category {
	return []Category{
		CategoryFinancialExposure,
		CategoryMarketShareDecline,
		CategoryCustomerExperience,
		CategoryCompliance,
		CategoryReputation,
		CategoryFraud,
		CategoryOperations,
		CategoryNetworks,
	}
}

// Validate checks if the Category is well formed
func (c Category) Validate() error {
	if strings.TrimSpace(string(c)) == "" {
		return goerr.New("category cannot be empty")
	}
	if len(c) > maxCategoryLength {
		return goerr.New("category is too long", goerr.V("category", c), goerr.V("max", maxCategoryLength))
	}
	if strings.Contains(string(c), "|") {
		return goerr.New("category must not contain '|'", goerr.V("category", c))
	}
	return nil
}

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}
