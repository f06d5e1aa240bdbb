package sqlite

import (
	"context"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
)

// SetRawCategoriesForTest overwrites the stored category payloads of a risk
func (s *SQLite) SetRawCategoriesForTest(ctx context.Context, id model.RiskID, categories, details string) error {
	return s.db.WithContext(ctx).Model(&riskRow{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{"categories": categories, "category_details": details}).Error
}
