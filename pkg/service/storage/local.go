package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/utils/safe"
)

// Local stores risk documents under a directory on the local filesystem
type Local struct {
	dir string
}

var _ interfaces.DocumentStorage = (*Local)(nil)

// ErrObjectExists is returned when a document with the same name is already stored
var ErrObjectExists = errors.New("document object already exists")

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, goerr.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create document directory", goerr.V("dir", dir))
	}
	return &Local{dir: dir}, nil
}

// Put writes the document and returns its file:// URI
func (l *Local) Put(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(objectName("", riskID, doc.FileName)))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", goerr.Wrap(err, "failed to create document directory", goerr.V("path", path))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) // #nosec G304
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", goerr.Wrap(ErrObjectExists, "document already stored", goerr.V("path", path))
		}
		return "", goerr.Wrap(err, "failed to create document file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	if _, err := io.Copy(f, doc.Body); err != nil {
		return "", goerr.Wrap(err, "failed to write document", goerr.V("path", path))
	}

	return "file://" + filepath.ToSlash(path), nil
}
