package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, DebugLevel)

	log.Info("Converter", "conversion finished", map[string]interface{}{"bytes": 42})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Converter", entry["component"])
	assert.Equal(t, "conversion finished", entry["message"])
	assert.EqualValues(t, 42, entry["bytes"])
}

func TestZerologAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, WarnLevel)

	log.Debug("Trigger", "scheduled", nil)
	log.Info("Trigger", "fired", nil)
	assert.Zero(t, buf.Len())

	log.Error("Files", errors.New("disk full"), nil)
	assert.Contains(t, buf.String(), "disk full")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("chatty"))
}
