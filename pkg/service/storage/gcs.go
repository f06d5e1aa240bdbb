package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/utils/safe"
	"google.golang.org/api/option"
)

// GCS stores risk documents in a Cloud Storage bucket
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.DocumentStorage = (*GCS)(nil)

type GCSOption func(*GCS)

// WithObjectPrefix prepends prefix to every object name
func WithObjectPrefix(prefix string) GCSOption {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

// NewGCS creates a Cloud Storage backed document store
func NewGCS(ctx context.Context, bucket string, opts []GCSOption, clientOpts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Put uploads the document and returns its gs:// URI
func (g *GCS) Put(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error) {
	name := objectName(g.prefix, riskID, doc.FileName)

	w := g.client.Bucket(g.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if doc.ContentType != "" {
		w.ContentType = doc.ContentType
	}
	w.Metadata = map[string]string{
		"risk_id":   riskID.String(),
		"file_name": doc.FileName,
	}

	if _, err := io.Copy(w, doc.Body); err != nil {
		safe.Close(ctx, w)
		return "", goerr.Wrap(err, "failed to upload document", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize document upload", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}

	return "gs://" + g.bucket + "/" + name, nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
