package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSON(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer

	closer, err := configure(logger, Options{Level: "warn", Format: "json"}, &out)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("dropped")
	logger.WithField("wager_id", "w-1").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "w-1", entry["wager_id"])
	assert.Equal(t, "warning", entry["level"])
}

func TestConfigure_File(t *testing.T) {
	logger := log.New()
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "engine.log")

	closer, err := configure(logger, Options{Level: "info", Format: "text", File: path}, &out)
	require.NoError(t, err)

	logger.Info("settlement resumed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "settlement resumed")
	assert.Contains(t, out.String(), "settlement resumed")
}

func TestConfigure_Invalid(t *testing.T) {
	_, err := configure(log.New(), Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = configure(log.New(), Options{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
