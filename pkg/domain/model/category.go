package model

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// categoryKeySeparator joins sorted categories into a group key
const categoryKeySeparator = "|"

// NormalizeCategories trims labels, drops empty ones and duplicates, and sorts
// the remainder lexicographically. The input is not modified.
func NormalizeCategories(categories []types.Category) []types.Category {
	normalized := make([]types.Category, 0, len(categories))
	for _, c := range categories {
		c = types.Category(strings.TrimSpace(string(c)))
		if c == "" {
			continue
		}
		normalized = append(normalized, c)
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}

// CategoryKey returns the group identity of a category set
func CategoryKey(categories []types.Category) string {
	normalized := NormalizeCategories(categories)
	parts := make([]string, len(normalized))
	for i, c := range normalized {
		parts[i] = string(c)
	}
	return strings.Join(parts, categoryKeySeparator)
}

// ParseCategories decodes a stored category payload. Anything other than a JSON
// array of strings yields nil, so a single malformed record never breaks a
// read of the whole table.
func ParseCategories(raw []byte) []types.Category {
	if len(raw) == 0 {
		return nil
	}
	var categories []types.Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil
	}
	return categories
}

// ParseCategoryDetails decodes a stored category detail payload. Malformed
// payloads yield nil.
func ParseCategoryDetails(raw []byte) map[types.Category]string {
	if len(raw) == 0 {
		return nil
	}
	var details map[types.Category]string
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil
	}
	return details
}
