package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	t.Run("falls back to default logger", func(t *testing.T) {
		gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
	})

	t.Run("returns logger embedded in context", func(t *testing.T) {
		logger := slog.New(slog.DiscardHandler)
		ctx := logging.With(context.Background(), logger)
		gt.Value(t, logging.From(ctx)).Equal(logger)
	})
}

func TestNew_JSONRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, logging.FormatJSON)

	logger.Info("configured", "secret_token", "xoxb-123", "channel", "C123")

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record)).Required()
	gt.Value(t, record["channel"]).Equal("C123")
	gt.Value(t, record["secret_token"]).NotEqual("xoxb-123")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn, logging.FormatJSON)

	logger.Info("hidden")
	gt.Value(t, buf.Len()).Equal(0)

	logger.Warn("shown")
	gt.Number(t, buf.Len()).Greater(0)
}
