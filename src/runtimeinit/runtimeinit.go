// Package runtimeinit loads configuration and logging for both binaries.
package runtimeinit

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ai-shot/src/config"
	"ai-shot/src/llm"
	"ai-shot/src/logutil"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Verbose mirrors log records to stderr.
	Verbose bool
	Stderr  io.Writer
	// InitClipboard is called once; a failure is logged, not returned.
	InitClipboard func() error
}

// Runtime is what a binary needs after bootstrap.
type Runtime struct {
	Config *config.Config
	Logger zerolog.Logger
	closer io.Closer
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer := logutil.Setup(logutil.Options{
		Level:   cfg.LogLevel,
		Console: opts.Verbose,
		File:    cfg.EnableFileLogging,
		Stderr:  opts.Stderr,
	})

	if cfg.GeminiAPIKey == "" && cfg.OpenRouterAPIKey == "" {
		logger.Warn().Str("key_file", cfg.APIKeyPath).
			Msg("no API key in environment; the settings panel key will be used")
	}
	logger.Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Str("gemini_key", logutil.RedactKey(cfg.GeminiAPIKey)).
		Str("openrouter_key", logutil.RedactKey(cfg.OpenRouterAPIKey)).
		Msg("configuration loaded")

	if opts.InitClipboard != nil {
		if err := opts.InitClipboard(); err != nil {
			logger.Warn().Err(err).Msg("clipboard unavailable")
		}
	}

	return &Runtime{Config: cfg, Logger: logger, closer: closer}, nil
}

// Credentials returns the environment API keys for the completion client.
func (r *Runtime) Credentials() llm.Credentials {
	return llm.Credentials{
		GeminiAPIKey:      r.Config.GeminiAPIKey,
		GeminiBaseURL:     r.Config.GeminiBaseURL,
		OpenRouterAPIKey:  r.Config.OpenRouterAPIKey,
		OpenRouterBaseURL: r.Config.OpenRouterBaseURL,
	}
}

// Deadline is the end-to-end bound for one request.
func (r *Runtime) Deadline() time.Duration {
	return time.Duration(r.Config.RequestDeadlineSec) * time.Second
}

// Close flushes the log file, if any.
func (r *Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
