package config_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/cli/config"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

func TestLogger_Configure(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "riskdesk.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogLevel)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidLogFormat)
	})
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "riskdesk.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, path).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendFirestore, "").Configure(ctx)
		gt.Value(t, err).NotNil()
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidBackend)
	})
}

func TestSlack_Configure(t *testing.T) {
	svc, err := config.NewSlackForTest("", "").Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, svc).Nil()

	_, err = config.NewSlackForTest("xoxb-token", "").Configure()
	gt.Error(t, err).Is(config.ErrInvalidConfig)

	svc, err = config.NewSlackForTest("xoxb-token", "C123").Configure()
	gt.NoError(t, err).Required()
	gt.Value(t, svc).NotNil()
}

func TestStorage_Configure(t *testing.T) {
	ctx := context.Background()

	storage, closer, err := config.NewStorageForTest("", "", "").Configure(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, storage).Nil()
	closer()

	storage, closer, err = config.NewStorageForTest("", "", t.TempDir()).Configure(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, storage).NotNil()
	closer()
}
