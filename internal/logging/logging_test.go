package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-runner/internal/logging"
)

func TestNew_textFormat(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	logger, err := logging.New(buf, "info", "text")
	require.NoError(t, err)

	logger.WithField("migration", "0001_init.sql").Info("applied migration")
	logger.Debug("hidden at info level")

	out := buf.String()
	assert.Contains(t, out, "applied migration")
	assert.Contains(t, out, "migration=0001_init.sql")
	assert.NotContains(t, out, "hidden at info level")
}

func TestNew_jsonFormat(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	logger, err := logging.New(buf, "debug", "json")
	require.NoError(t, err)

	logger.WithField("attempt", 2).Debug("probe failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "probe failed", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.InDelta(t, 2, entry["attempt"], 0)
}

func TestNew_invalidInput(t *testing.T) {
	t.Parallel()

	_, err := logging.New(new(bytes.Buffer), "loud", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing log level")

	_, err = logging.New(new(bytes.Buffer), "info", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := logging.Discard()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.NotPanics(t, func() { logger.Info("nothing to see") })
}
