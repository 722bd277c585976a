package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestLoggerCapturesFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	contextual := logger.With(ComponentKey, "preprocessing", SessionIDKey, "abc-123")
	contextual.Info("fit_transform completed", RowsKey, 42, FeaturesKey, 7)

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "fit_transform completed", entries[0]["message"])
	assert.Equal(t, "preprocessing", entries[0][ComponentKey])
	assert.Equal(t, float64(42), entries[0][RowsKey])
}

func TestTestLoggerRespectsLevel(t *testing.T) {
	logger, buffer := NewTestLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	assert.False(t, logger.ContainsMessage("hidden"))
	assert.True(t, strings.Contains(buffer.String(), "visible"))
	assert.False(t, logger.Enabled(context.Background(), LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), LevelError))
}

func TestNewLoggerWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info("training started", AlgorithmKey, "ensemble_trees")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "training started", entry["msg"])
	assert.Equal(t, "ensemble_trees", entry[AlgorithmKey])
}

func TestNopLogger(t *testing.T) {
	var logger Logger = NopLogger{}
	logger.Info("discarded")
	assert.False(t, logger.Enabled(context.Background(), LevelError))
	assert.Equal(t, logger, logger.With("k", "v"))
}
