package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = interfaces.ErrNotFound

// SQLite is a relational repository backed by an embedded SQLite database
type SQLite struct {
	db   *gorm.DB
	risk *riskRepository
	user *userRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens the database at dsn and migrates the schema
func New(ctx context.Context, dsn string) (*SQLite, error) {
	if err := ensureDirectory(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("dsn", dsn))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get sql db")
	}
	// SQLite allows one writer; serialize connections so concurrent
	// conditional updates queue instead of failing with "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&riskRow{}, &userRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite schema", goerr.V("dsn", dsn))
	}

	logging.From(ctx).Info("sqlite database opened", "dsn", dsn)

	return &SQLite{
		db:   db,
		risk: &riskRepository{db: db},
		user: &userRepository{db: db},
	}, nil
}

func (s *SQLite) Risk() interfaces.RiskRepository {
	return s.risk
}

func (s *SQLite) User() interfaces.UserRepository {
	return s.user
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return goerr.Wrap(err, "failed to get sql db")
	}
	return sqlDB.Close()
}

func ensureDirectory(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || candidate == ":memory:" {
		return nil
	}

	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create sqlite directory", goerr.V("dir", dir))
	}
	return nil
}
