package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/service/storage"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds flags for document upload storage
type Storage struct {
	bucket   string
	prefix   string
	localDir string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Cloud Storage bucket for risk documents",
			Category:    "Storage",
			Sources:     cli.EnvVars("RISKDESK_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object name prefix in the bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("RISKDESK_STORAGE_PREFIX"),
			Destination: &x.prefix,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Local directory for risk documents (when no bucket is set)",
			Category:    "Storage",
			Sources:     cli.EnvVars("RISKDESK_STORAGE_DIR"),
			Destination: &x.localDir,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
		slog.String("dir", x.localDir),
	)
}

// Configure returns the document storage, or nil when uploads are disabled.
// The returned function releases the storage client.
func (x *Storage) Configure(ctx context.Context) (interfaces.DocumentStorage, func(), error) {
	switch {
	case x.bucket != "":
		gcs, err := storage.NewGCS(ctx, x.bucket, []storage.GCSOption{storage.WithObjectPrefix(x.prefix)})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize document storage")
		}
		logging.Default().Info("Using Cloud Storage for documents", "bucket", x.bucket)
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				logging.Default().Error("failed to close storage client", "error", err)
			}
		}, nil

	case x.localDir != "":
		local, err := storage.NewLocal(x.localDir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize document storage")
		}
		logging.Default().Info("Using local directory for documents", "dir", x.localDir)
		return local, func() {}, nil

	default:
		logging.Default().Info("Document storage not configured, uploads are disabled")
		return nil, func() {}, nil
	}
}
