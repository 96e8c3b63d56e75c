// Package llm streams image analyses from a completion service. Two
// providers are supported: Gemini (REST streamGenerateContent over SSE) and
// OpenRouter (OpenAI-compatible chat completions).
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-shot/src/settings"
)

var (
	ErrConfig      = errors.New("invalid client configuration")
	ErrConnect     = errors.New("request to completion service failed")
	ErrRateLimited = errors.New("rate limited by completion service, please retry later")
	ErrStream      = errors.New("response stream failed")
)

const (
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// ThinkingBudget is the reasoning token budget requested when thinking is on.
	ThinkingBudget = 1024

	connectTimeout = 30 * time.Second
)

// ChunkKind tags a streamed chunk as answer text or model reasoning.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkThought
)

func (k ChunkKind) String() string {
	if k == ChunkThought {
		return "thought"
	}
	return "text"
}

type Chunk struct {
	Kind ChunkKind
	Text string
}

// Request is one analysis: a prompt plus a JPEG image.
type Request struct {
	Prompt       string
	SystemPrompt string
	ImageJPEG    []byte
	Thinking     bool
	Search       bool
}

// Stream yields chunks in arrival order. Next returns io.EOF once the
// response is exhausted; any other error is terminal.
type Stream interface {
	Next() (Chunk, error)
	Close() error
}

// Client opens analysis streams.
type Client interface {
	OpenStream(ctx context.Context, req Request) (Stream, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Credentials are the environment-level keys and endpoints. Keys set in the
// user settings take precedence.
type Credentials struct {
	GeminiAPIKey      string
	GeminiBaseURL     string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
}

// ConfigFor builds the client config for one submission.
func ConfigFor(s settings.Settings, creds Credentials) Config {
	cfg := Config{Provider: strings.ToLower(strings.TrimSpace(s.Provider)), Model: strings.TrimSpace(s.Model)}
	if cfg.Provider == "" {
		cfg.Provider = settings.ProviderGemini
	}
	switch cfg.Provider {
	case settings.ProviderOpenRouter:
		cfg.APIKey = creds.OpenRouterAPIKey
		cfg.BaseURL = creds.OpenRouterBaseURL
	default:
		cfg.APIKey = creds.GeminiAPIKey
		cfg.BaseURL = creds.GeminiBaseURL
	}
	if s.HasAPIKey() {
		cfg.APIKey = s.APIKey
	}
	return cfg
}

// New returns a client for cfg.Provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is not set", ErrConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is not set", ErrConfig)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: 2 * connectTimeout,
		}}
	}

	switch cfg.Provider {
	case "", settings.ProviderGemini:
		return newGemini(cfg), nil
	case settings.ProviderOpenRouter:
		return newOpenRouter(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfig, cfg.Provider)
	}
}
