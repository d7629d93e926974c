package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := New(&Config{
		Level:       level,
		ServiceName: "pickup-test",
		Environment: "test",
		Version:     "1.2.3",
		Output:      buf,
	})
	return logger, buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNew_ServiceMetadata(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Info("hello")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "pickup-test", entries[0]["service"])
	assert.Equal(t, "test", entries[0]["environment"])
	assert.Equal(t, "1.2.3", entries[0]["version"])
	assert.Equal(t, "pickup-test", logger.ServiceName())

	ts, ok := entries[0]["time"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, ts)
	assert.NoError(t, err)
}

func TestNew_Level(t *testing.T) {
	logger, buf := newBufferLogger(LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["msg"])
}

func TestWithContext(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	logger.WithContext(ctx).Info("scoped")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["requestId"])
	assert.Equal(t, "corr-1", entries[0]["correlationId"])
	assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestWithHelpers(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.WithError(errors.New("boom")).WithComponent("outbox").Info("step")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, "outbox", entries[0]["component"])
	assert.Same(t, logger, logger.WithError(nil))
}

func TestEvaluation(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.Evaluation(ContextWithCorrelationID(context.Background(), "corr-9"), EvaluationRecord{
		EvaluationID:    "eval-1",
		Policy:          "default",
		Outcome:         "offered",
		LocationHandle:  "2578303",
		VirtualLocation: true,
		LineCount:       2,
	})

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "Pickup evaluated", entry["msg"])
	assert.Equal(t, "eval-1", entry["evaluationId"])
	assert.Equal(t, "offered", entry["outcome"])
	assert.Equal(t, "default", entry["policy"])
	assert.Equal(t, true, entry["virtualLocation"])
	assert.Equal(t, float64(2), entry["lineCount"])
	assert.Equal(t, "corr-9", entry["correlationId"])
}

func TestActivity(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Activity(context.Background(), "EvaluateLocalPickup", 12*time.Millisecond, true)

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "EvaluateLocalPickup", entries[0]["activity"])
	assert.Equal(t, float64(12), entries[0]["durationMs"])
	assert.Equal(t, true, entries[0]["success"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, buf := newBufferLogger(LogLevel("verbose"))

	logger.Debug("dropped")
	logger.Info("kept")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["msg"])
}

func TestDatabaseQueryLevels(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.DatabaseQuery(context.Background(), "pickup_evaluations", "find", time.Millisecond, true)
	assert.Empty(t, buf.String())

	logger.DatabaseQuery(context.Background(), "pickup_evaluations", "find", time.Millisecond, false)
	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.Equal(t, "pickup_evaluations", entries[0]["collection"])
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("discarded")
	assert.Equal(t, "nop", logger.ServiceName())
}
