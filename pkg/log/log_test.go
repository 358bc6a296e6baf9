package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hirezen/stageflow/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, log.ParseLevel(input), input)
	}
}

func TestNewHandler_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(log.NewHandler(&buf, "warn", "json"))
	logger.Info("dropped")
	logger.Warn("kept", "candidate_id", "cand-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "cand-1", line["candidate_id"])
}

func TestNewHandler_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	slog.New(log.NewHandler(&buf, "debug", "text")).Debug("hello", "module", "api")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "module=api")
}
