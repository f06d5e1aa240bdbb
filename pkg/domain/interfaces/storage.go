package interfaces

import (
	"context"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
)

// DocumentStorage stores uploaded risk documents and returns a reference to the stored object
type DocumentStorage interface {
	Put(ctx context.Context, riskID model.RiskID, doc *model.Document) (string, error)
}
