package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Output: &buf, Service: "bookings"})

	log.Info("booking created", "booking_id", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "booking created", record["msg"])
	assert.Equal(t, "bookings", record[SERVICE])
	assert.Equal(t, "abc", record["booking_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Output: &buf, Format: TEXT})

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestWith_CarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).With("flow", "create_booking")

	log.Info("step done")

	assert.True(t, strings.Contains(buf.String(), `"flow":"create_booking"`))
}

func TestParseLevel_CaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "DEBUG", Output: &buf})

	log.Debug("debug line")

	assert.Contains(t, buf.String(), "debug line")
}
