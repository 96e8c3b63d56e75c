package runtimeinit

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-shot/src/config"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"GEMINI_API_KEY", "GEMINI_API_KEY_FILE", "GEMINI_MODEL", "OPENROUTER_API_KEY",
		"AI_SHOT_PROVIDER", "AI_SHOT_ENV", "ENABLE_FILE_LOGGING", "REQUEST_DEADLINE_SEC", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("GEMINI_API_KEY_FILE", t.TempDir()+"/missing")
}

func TestBootstrapLoadsConfigAndLogs(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-secret-key")
	t.Setenv("REQUEST_DEADLINE_SEC", "30")

	var stderr bytes.Buffer
	clipboardCalls := 0
	rt, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{ModelOverride: "gemini-2.5-pro"},
		Verbose:     true,
		Stderr:      &stderr,
		InitClipboard: func() error {
			clipboardCalls++
			return errors.New("no display")
		},
	})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "gemini-2.5-pro", rt.Config.Model)
	assert.Equal(t, "env-secret-key", rt.Credentials().GeminiAPIKey)
	assert.Equal(t, 30*time.Second, rt.Deadline())
	assert.Equal(t, 1, clipboardCalls)

	out := stderr.String()
	assert.Contains(t, out, "configuration loaded")
	assert.Contains(t, out, "clipboard unavailable")
	assert.NotContains(t, out, "env-secret-key")
}

func TestBootstrapQuietByDefault(t *testing.T) {
	clearEnv(t)
	var stderr bytes.Buffer
	rt, err := Bootstrap(Options{Stderr: &stderr})
	require.NoError(t, err)
	assert.NoError(t, rt.Close())
	assert.Empty(t, stderr.String())
	assert.Equal(t, config.DefaultDeadlineSec*time.Second, rt.Deadline())
}
