package sqlite

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRow struct {
	ID          string `gorm:"column:id;primaryKey;type:text"`
	Name        string `gorm:"column:name;type:text;not null"`
	Email       string `gorm:"column:email;type:text"`
	Department  string `gorm:"column:department;type:text;index"`
	Role        string `gorm:"column:role;type:text;not null"`
	SlackUserID string `gorm:"column:slack_user_id;type:text"`
}

func (userRow) TableName() string {
	return "users"
}

func (row *userRow) toModel() *model.User {
	return &model.User{
		ID:          types.UserID(row.ID),
		Name:        row.Name,
		Email:       row.Email,
		Department:  row.Department,
		Role:        types.UserRole(row.Role),
		SlackUserID: row.SlackUserID,
	}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}
	return row.toModel(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *userRepository) ListOwners(ctx context.Context, dept string) ([]*model.User, error) {
	return r.find(r.db.WithContext(ctx).
		Where("role = ?", types.UserRoleRiskOwner.String()).
		Where("department = ?", dept))
}

func (r *userRepository) SaveMany(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		if err := u.ID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid user")
		}
		rows = append(rows, userRow{
			ID:          u.ID.String(),
			Name:        u.Name,
			Email:       u.Email,
			Department:  u.Department,
			Role:        u.Role.String(),
			SlackUserID: u.SlackUserID,
		})
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error; err != nil {
		return goerr.Wrap(err, "failed to save users", goerr.V("count", len(rows)))
	}
	return nil
}

func (r *userRepository) find(query *gorm.DB) ([]*model.User, error) {
	var rows []userRow
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to query users")
	}

	users := make([]*model.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}
