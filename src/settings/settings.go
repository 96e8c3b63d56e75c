// Package settings holds the user preferences edited in the overlay's
// settings panel and persists them as JSON between sessions.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"

	DefaultModel = "gemini-flash-latest"
	appDir       = "ai-shot"
	fileName     = "settings.json"
)

// AvailableModels is the model catalog offered in the settings panel.
var AvailableModels = []string{
	"gemini-2.5-pro",
	"gemini-flash-latest",
	"gemini-flash-lite-latest",
}

// Settings are copied by value into every submission, so later edits never
// affect a request already in flight.
type Settings struct {
	Provider        string `json:"provider,omitempty"`
	Model           string `json:"model"`
	SystemPrompt    string `json:"system_prompt"`
	ThinkingEnabled bool   `json:"thinking_enabled"`
	SearchEnabled   bool   `json:"google_search"`
	// APIKey overrides the key from the environment when set.
	APIKey string `json:"api_key,omitempty"`
}

// Defaults returns settings for model with everything else off.
func Defaults(model string) Settings {
	if model == "" {
		model = DefaultModel
	}
	return Settings{Provider: ProviderGemini, Model: model}
}

// HasAPIKey reports whether the settings carry their own key.
func (s Settings) HasAPIKey() bool { return s.APIKey != "" }

// Store loads and saves settings. Load never fails; it falls back to defaults.
type Store interface {
	Load() Settings
	Save(Settings) error
}

// FileStore keeps settings in a JSON file.
type FileStore struct {
	path         string
	defaultModel string
	mu           sync.Mutex
}

// NewFileStore uses <user config dir>/ai-shot/settings.json.
func NewFileStore(defaultModel string) (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return NewFileStoreAt(filepath.Join(dir, appDir, fileName), defaultModel), nil
}

// NewFileStoreAt uses an explicit path.
func NewFileStoreAt(path, defaultModel string) *FileStore {
	return &FileStore{path: path, defaultModel: defaultModel}
}

// Path returns the settings file location.
func (f *FileStore) Path() string { return f.path }

// Load reads the file. A missing or malformed file yields defaults.
func (f *FileStore) Load() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()

	def := Defaults(f.defaultModel)
	data, err := os.ReadFile(f.path)
	if err != nil {
		return def
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return def
	}
	if s.Model == "" {
		s.Model = def.Model
	}
	if s.Provider == "" {
		s.Provider = def.Provider
	}
	return s
}

// Save writes the file, creating its directory when needed.
func (f *FileStore) Save(s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in memory; used by the headless CLI and tests.
type MemoryStore struct {
	mu      sync.Mutex
	current Settings
	saves   int
	err     error
}

func NewMemoryStore(initial Settings) *MemoryStore {
	return &MemoryStore{current: initial}
}

func (m *MemoryStore) Load() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MemoryStore) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.current = s
	return nil
}

// FailSaves makes subsequent saves return err.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
