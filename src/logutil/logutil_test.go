package logutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactKey(t *testing.T) {
	assert.Equal(t, "", RedactKey(""))
	assert.Equal(t, "********", RedactKey("short"))
	assert.Equal(t, "AIza...wxyz", RedactKey("AIzaSyD-0123456789wxyz"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "line one line two", Sanitize("line one\nline two", 0))
	assert.Equal(t, "abc...", Sanitize("abcdef", 3))
	assert.Equal(t, "日本", Sanitize("日本", 2))
}

func TestSetupConsole(t *testing.T) {
	var buf bytes.Buffer
	log, closer := Setup(Options{Console: true, Level: "debug", Stderr: &buf})
	defer closer.Close()

	log.Debug().Str("component", "test").Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "component=")
}

func TestSetupDisabledDiscards(t *testing.T) {
	log, closer := Setup(Options{})
	defer closer.Close()
	log.Error().Msg("nowhere")
}

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log, closer := Setup(Options{File: true, FilePath: path, Level: "warn"})
	log.Info().Msg("filtered")
	log.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"kept"`)
	assert.NotContains(t, string(data), "filtered")
}

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rot.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", maxSizeBytes)), 0o600))

	w, err := NewRotatingWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("fresh\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(data))

	st, err := os.Stat(path + ".1")
	require.NoError(t, err)
	assert.EqualValues(t, maxSizeBytes, st.Size())
}
