package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrRiskNotFound = errors.New("risk not found")
	ErrUserNotFound = errors.New("user not found")

	// Intake errors
	ErrInvalidSubmission            = errors.New("invalid risk submission")
	ErrUnsupportedDocument          = errors.New("unsupported document type")
	ErrDocumentAlreadyAttached      = errors.New("document is already attached")
	ErrDocumentStorageNotConfigured = errors.New("document storage is not configured")

	// ErrStoreUnavailable marks a failed store operation that can be retried
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Context keys for error values
const (
	RiskIDKey = "risk_id"
	UserIDKey = "user_id"
)

// storeError tags err as a retryable store failure while keeping its cause chain
func storeError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrStoreUnavailable, err), msg, opts...)
}
