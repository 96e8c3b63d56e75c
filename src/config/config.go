package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath  = "/run/secrets/api_keys/gemini"
	APIKeyPathEnvVar   = "GEMINI_API_KEY_FILE"
	AltEnvPathVar      = "AI_SHOT_ENV"
	DefaultModel       = "gemini-flash-latest"
	DefaultProvider    = "gemini"
	DefaultHotkey      = "Ctrl+Alt+X"
	DefaultDeadlineSec = 120
)

type LoadOptions struct {
	APIKeyPathOverride string
	ModelOverride      string
	ProviderOverride   string
}

type Config struct {
	GeminiAPIKey       string
	APIKeyPath         string
	GeminiBaseURL      string
	Model              string
	Provider           string
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	EnableFileLogging  bool
	LogLevel           string
	Hotkey             string
	PortStart          int
	PortEnd            int
	RequestDeadlineSec int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use AI_SHOT_ENV env var as a path to a config file
	// Variables already set in the process environment win over both.
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	deadline := DefaultDeadlineSec
	if v := os.Getenv("REQUEST_DEADLINE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deadline = n
		}
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		GeminiAPIKey:       resolveAPIKey(apiKeyPath),
		APIKeyPath:         apiKeyPath,
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		Model:              firstNonEmpty(opts.ModelOverride, os.Getenv("GEMINI_MODEL"), DefaultModel),
		Provider:           strings.ToLower(firstNonEmpty(opts.ProviderOverride, os.Getenv("AI_SHOT_PROVIDER"), DefaultProvider)),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:  os.Getenv("OPENROUTER_BASE_URL"),
		EnableFileLogging:  strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
		Hotkey:             getEnvWithDefault("HOTKEY", DefaultHotkey),
		PortStart:          getEnvInt("AI_SHOT_PORT_START", 0),
		PortEnd:            getEnvInt("AI_SHOT_PORT_END", 0),
		RequestDeadlineSec: deadline,
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(AltEnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

// resolveAPIKey prefers a secrets file over GEMINI_API_KEY.
func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("GEMINI_API_KEY")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
