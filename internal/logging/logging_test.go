package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	_, err := Setup(&buf, "debug", "json")
	require.NoError(t, err)

	slog.Debug("Label recorded", "comment", "flare")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Label recorded", entry["msg"])
	assert.Equal(t, "flare", entry["comment"])
}

func TestSetupFiltersByLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	_, err := Setup(&buf, "warn", "text")
	require.NoError(t, err)

	slog.Info("hidden")
	assert.Empty(t, buf.String())
	slog.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	_, err := Setup(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = Setup(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
