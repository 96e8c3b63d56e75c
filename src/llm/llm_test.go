package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-shot/src/settings"
)

func TestNewRequiresKeyAndModel(t *testing.T) {
	_, err := New(Config{Provider: settings.ProviderGemini, Model: "gemini-flash-latest"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = New(Config{Provider: settings.ProviderGemini, APIKey: "k"})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = New(Config{Provider: "carrier-pigeon", APIKey: "k", Model: "m"})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewSelectsProvider(t *testing.T) {
	c, err := New(Config{APIKey: "k", Model: "gemini-flash-latest"})
	require.NoError(t, err)
	assert.IsType(t, &geminiClient{}, c)

	c, err = New(Config{Provider: settings.ProviderOpenRouter, APIKey: "k", Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.IsType(t, &openRouterClient{}, c)
}

func TestConfigForPrefersSettingsKey(t *testing.T) {
	creds := Credentials{
		GeminiAPIKey:      "env-gemini",
		OpenRouterAPIKey:  "env-openrouter",
		OpenRouterBaseURL: "https://proxy.example/v1",
	}

	tests := []struct {
		name     string
		s        settings.Settings
		wantKey  string
		wantProv string
		wantBase string
	}{
		{"gemini from env", settings.Settings{Model: "m"}, "env-gemini", settings.ProviderGemini, ""},
		{"gemini override", settings.Settings{Model: "m", APIKey: "user"}, "user", settings.ProviderGemini, ""},
		{"openrouter from env", settings.Settings{Provider: "OpenRouter", Model: "m"}, "env-openrouter", settings.ProviderOpenRouter, "https://proxy.example/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFor(tt.s, creds)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			assert.Equal(t, tt.wantProv, cfg.Provider)
			assert.Equal(t, tt.wantBase, cfg.BaseURL)
			assert.Equal(t, "m", cfg.Model)
		})
	}
}

func TestNormalizeGeminiModel(t *testing.T) {
	assert.Equal(t, "models/gemini-2.5-pro", NormalizeGeminiModel("gemini-2.5-pro"))
	assert.Equal(t, "models/gemini-2.5-pro", NormalizeGeminiModel("models/gemini-2.5-pro"))
	assert.Equal(t, "models/x", NormalizeGeminiModel("  x "))
}

func TestModelForSearch(t *testing.T) {
	assert.Equal(t, "openai/gpt-4o", modelFor("openai/gpt-4o", false))
	assert.Equal(t, "openai/gpt-4o:online", modelFor("openai/gpt-4o", true))
	assert.Equal(t, "openai/gpt-4o:online", modelFor("openai/gpt-4o:online", true))
}

func TestChunkKindString(t *testing.T) {
	assert.Equal(t, "text", ChunkText.String())
	assert.Equal(t, "thought", ChunkThought.String())
}
