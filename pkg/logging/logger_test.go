package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:       LevelDebug,
		ServiceName: "test-service",
		Environment: "test",
		JSONFormat:  true,
		Output:      &buf,
	})

	log.Info("hello", F("meeting_id", "mtg_001"), F("count", 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test-service", entry["service_name"])
	assert.Equal(t, "mtg_001", entry["meeting_id"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestLogger_With_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelDebug,
		JSONFormat: true,
		Output:     &buf,
	})

	scoped := log.With(F("component", "orchestrator"))
	scoped.Info("run complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orchestrator", entry["component"])
}

func TestLogger_WithContext_ExtractsIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelDebug,
		JSONFormat: true,
		Output:     &buf,
	})

	ctx := context.WithValue(context.Background(), MeetingIDKey, "mtg_123")
	log.WithContext(ctx).Info("processing")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mtg_123", entry["meeting_id"])
}

func TestNopLogger_DiscardsEverything(t *testing.T) {
	log := NewNopLogger()
	// Must not panic, and chaining must keep returning a usable logger.
	log.With(F("a", 1)).WithContext(context.Background()).Error("ignored", Err(assert.AnError))
}
