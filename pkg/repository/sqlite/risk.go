package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"gorm.io/gorm"
)

type riskRow struct {
	ID                string     `gorm:"column:id;primaryKey;type:text"`
	Description       string     `gorm:"column:description;type:text;not null"`
	Cause             string     `gorm:"column:cause;type:text;not null"`
	Categories        string     `gorm:"column:categories;type:text;not null"`
	CategoryDetails   string     `gorm:"column:category_details;type:text"`
	Department        string     `gorm:"column:department;type:text;not null;index"`
	ReportedBy        string     `gorm:"column:reported_by;type:text;not null;index"`
	DocumentRef       *string    `gorm:"column:document_ref;type:text"`
	Status            string     `gorm:"column:status;type:text;not null;index"`
	Level             string     `gorm:"column:level;type:text"`
	OwnerID           *string    `gorm:"column:owner_id;type:text;index"`
	ResidualRating    *int       `gorm:"column:residual_rating"`
	PlannedCompletion *time.Time `gorm:"column:planned_completion"`
	ReportToBoard     bool       `gorm:"column:report_to_board;not null;default:0"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

func (riskRow) TableName() string {
	return "risks"
}

func toRiskRow(r *model.Risk) (*riskRow, error) {
	categories, err := json.Marshal(r.Categories)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode categories")
	}
	row := &riskRow{
		ID:                r.ID.String(),
		Description:       r.Description,
		Cause:             r.Cause,
		Categories:        string(categories),
		Department:        r.Department,
		ReportedBy:        r.ReportedBy.String(),
		DocumentRef:       nullable(r.DocumentRef),
		Status:            r.Status.String(),
		Level:             r.Level.String(),
		OwnerID:           nullable(r.OwnerID.String()),
		ResidualRating:    r.ResidualRating,
		PlannedCompletion: r.PlannedCompletion,
		ReportToBoard:     r.ReportToBoard,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if len(r.CategoryDetails) > 0 {
		details, err := json.Marshal(r.CategoryDetails)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode category details")
		}
		row.CategoryDetails = string(details)
	}
	return row, nil
}

// toModel never fails: malformed category payloads decode to no categories
func (row *riskRow) toModel() *model.Risk {
	return &model.Risk{
		ID:                model.RiskID(row.ID),
		Description:       row.Description,
		Cause:             row.Cause,
		Categories:        model.ParseCategories([]byte(row.Categories)),
		CategoryDetails:   model.ParseCategoryDetails([]byte(row.CategoryDetails)),
		Department:        row.Department,
		ReportedBy:        types.UserID(row.ReportedBy),
		DocumentRef:       deref(row.DocumentRef),
		Status:            types.RiskStatus(row.Status),
		Level:             types.RiskLevel(row.Level),
		OwnerID:           types.UserID(deref(row.OwnerID)),
		ResidualRating:    row.ResidualRating,
		PlannedCompletion: row.PlannedCompletion,
		ReportToBoard:     row.ReportToBoard,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

type riskRepository struct {
	db *gorm.DB
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	created := risk.Copy()
	if created.ID == "" {
		created.ID = model.NewRiskID()
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	row, err := toRiskRow(created)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *riskRepository) Get(ctx context.Context, id model.RiskID) (*model.Risk, error) {
	row, err := r.take(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *riskRepository) List(ctx context.Context, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	filter := interfaces.BuildListRiskOptions(opts...)

	query := r.db.WithContext(ctx).Model(&riskRow{})
	if filter.ReportedBy != "" {
		query = query.Where("reported_by = ?", filter.ReportedBy.String())
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}

	var rows []riskRow
	if err := query.Order("created_at desc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to query risks")
	}

	risks := make([]*model.Risk, 0, len(rows))
	for i := range rows {
		risks = append(risks, rows[i].toModel())
	}
	return risks, nil
}

func (r *riskRepository) AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error) {
	return r.setOnce(ctx, id, "owner_id", ownerID.String())
}

func (r *riskRepository) AttachDocument(ctx context.Context, id model.RiskID, ref string) (*model.Risk, bool, error) {
	return r.setOnce(ctx, id, "document_ref", ref)
}

// setOnce issues UPDATE ... WHERE column IS NULL so that only one writer can
// ever succeed, then reads back the stored row.
func (r *riskRepository) setOnce(ctx context.Context, id model.RiskID, column, value string) (*model.Risk, bool, error) {
	db := r.db.WithContext(ctx)

	result := db.Model(&riskRow{}).
		Where("id = ? AND "+column+" IS NULL", id.String()).
		Updates(map[string]any{
			column:       value,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, false, goerr.Wrap(result.Error, "conditional update failed", goerr.V("id", id), goerr.V("column", column))
	}

	row, err := r.take(db, id)
	if err != nil {
		return nil, false, err
	}
	return row.toModel(), result.RowsAffected > 0, nil
}

func (r *riskRepository) UpdateAssessment(ctx context.Context, id model.RiskID, assessment *model.RiskAssessment) (*model.Risk, error) {
	var updated *model.Risk
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := r.take(tx, id)
		if err != nil {
			return err
		}

		risk := row.toModel()
		assessment.Apply(risk)
		risk.UpdatedAt = time.Now().UTC()

		if err := tx.Model(&riskRow{}).Where("id = ?", id.String()).Updates(map[string]any{
			"status":             risk.Status.String(),
			"level":              risk.Level.String(),
			"residual_rating":    risk.ResidualRating,
			"planned_completion": risk.PlannedCompletion,
			"report_to_board":    risk.ReportToBoard,
			"updated_at":         risk.UpdatedAt,
		}).Error; err != nil {
			return goerr.Wrap(err, "failed to update assessment", goerr.V("id", id))
		}

		updated = risk
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *riskRepository) CountOpenByOwners(ctx context.Context, ownerIDs []types.UserID) (map[types.UserID]int, error) {
	counts := make(map[types.UserID]int, len(ownerIDs))
	ids := make([]string, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		counts[id] = 0
		ids = append(ids, id.String())
	}
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		OwnerID string
		Total   int
	}
	if err := r.db.WithContext(ctx).Model(&riskRow{}).
		Select("owner_id, count(*) as total").
		Where("owner_id IN ?", ids).
		Where("status <> ?", types.RiskStatusClosed.String()).
		Group("owner_id").
		Scan(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to count owned risks")
	}

	for _, row := range rows {
		counts[types.UserID(row.OwnerID)] = row.Total
	}
	return counts, nil
}

func (r *riskRepository) take(db *gorm.DB, id model.RiskID) (*riskRow, error) {
	var row riskRow
	if err := db.Where("id = ?", id.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	return &row, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
