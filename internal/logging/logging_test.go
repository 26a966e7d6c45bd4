package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("filters below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "warn"}, &buf)
		require.NoError(t, err)

		l.Info().Msg("hidden")
		l.Warn().Str("agent", "cf_friend_0").Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"agent":"cf_friend_0"`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New(Config{Level: "loud"}, &buf)
		require.NoError(t, err)
		l.Debug().Msg("debug")
		l.Info().Msg("info")
		assert.NotContains(t, buf.String(), `"message":"debug"`)
		assert.Contains(t, buf.String(), `"message":"info"`)
	})

	t.Run("also writes to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "airwrap.log")
		var buf bytes.Buffer
		l, err := New(Config{Level: "info", File: path}, &buf)
		require.NoError(t, err)
		l.Info().Msg("to file")
		require.NoError(t, l.Close())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "to file")
	})
}
