package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, initTo(&buf, "debug", "json"))

	log.Debug().Str("project_id", "p-1").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "p-1", entry["project_id"])
	assert.Equal(t, "hello", entry["message"])
	assert.Contains(t, entry, "caller")
}

func TestInit_LevelFilters(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, initTo(&buf, "warn", "json"))

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInit_EmptyLevelMeansInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, initTo(&buf, "", "console"))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInit_Rejects(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, initTo(&buf, "loud", "json"))
	assert.Error(t, initTo(&buf, "info", "xml"))
}
