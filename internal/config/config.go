// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/rexcorp1/rexpro-ai/internal/util"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config is the full application configuration.
type Config struct {
	// Version is the config schema version
	Version string `toml:"version"`

	API      APIConfig      `toml:"api"`
	Models   ModelsConfig   `toml:"models"`
	Thinking ThinkingConfig `toml:"thinking"`
	Chat     ChatConfig     `toml:"chat"`
	Image    ImageConfig    `toml:"image"`
	UI       UIConfig       `toml:"ui"`
	Storage  StorageConfig  `toml:"storage"`
}

// APIConfig contains generative API connection settings.
type APIConfig struct {
	// Key is the API key. Prefer the REXPRO_API_KEY env var over
	// writing it here.
	Key string `toml:"key"`
	// BaseURL overrides the API endpoint, mainly for testing.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the non-streaming request timeout.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `toml:"max_retries"`
}

// ModelsConfig contains model selection defaults.
type ModelsConfig struct {
	// Default is the chat model used for new sessions.
	Default string `toml:"default"`
	// LiveConversation is the model used for live voice mode.
	LiveConversation string `toml:"live_conversation"`
}

// ThinkingConfig is the reasoning budget table.
type ThinkingConfig struct {
	// DefaultBudget applies to reasoning models absent from Budgets.
	// -1 lets the model decide, 0 disables visible thinking.
	DefaultBudget int `toml:"default_budget"`
	// Budgets maps model ID to reasoning token budget.
	Budgets map[string]int `toml:"budgets"`
}

// ChatConfig contains per-send generation settings.
type ChatConfig struct {
	// SystemPrompt is prepended to every chat-mode send.
	SystemPrompt string `toml:"system_prompt"`
	// Temperature overrides the API default when set.
	Temperature float64 `toml:"temperature"`
	// TemperatureSet marks Temperature as intentionally configured,
	// since 0 is a meaningful value.
	TemperatureSet bool `toml:"temperature_set"`
	// MaxHistoryMessages caps how many prior messages ride with a send.
	// 0 means unlimited.
	MaxHistoryMessages int `toml:"max_history_messages"`
	// TypingIntervalMs throttles streaming display updates.
	TypingIntervalMs int `toml:"typing_interval_ms"`
}

// ImageConfig contains image-generation parameters sent with every
// image-mode request.
type ImageConfig struct {
	// Count is how many samples to request. 0 means one.
	Count int `toml:"count"`
	// AspectRatio is the output shape, e.g. "1:1" or "16:9". Empty
	// uses the API default.
	AspectRatio string `toml:"aspect_ratio"`
	// NegativePrompt steers generation away from its content.
	NegativePrompt string `toml:"negative_prompt"`
	// Seed fixes the noise seed when non-zero.
	Seed int64 `toml:"seed"`
	// PersonGeneration is the API's person policy, e.g. "allow_adult".
	PersonGeneration string `toml:"person_generation"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// ShowTokens displays token counts in the UI
	ShowTokens bool `toml:"show_tokens"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode"`
	// Markdown renders model output through the markdown renderer
	Markdown bool `toml:"markdown"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database location. Empty means
	// ~/.rexpro/rexpro.db.
	DBPath string `toml:"db_path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			TimeoutSecs: 60,
			MaxRetries:  3,
		},

		Models: ModelsConfig{
			Default:          "gemini-2.5-flash",
			LiveConversation: "gemini-2.5-flash",
		},

		Thinking: ThinkingConfig{
			DefaultBudget: -1,
			Budgets: map[string]int{
				"gemini-2.5-flash": 8192,
				"gemini-2.5-pro":   32768,
			},
		},

		Chat: ChatConfig{
			MaxHistoryMessages: 0,
			TypingIntervalMs:   50,
		},

		UI: UIConfig{
			Theme:      "dark",
			ShowTokens: true,
			Markdown:   true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rexpro configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rexpro"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rexpro.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, applies environment overrides, and
// validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its default location atomically, with
// owner-only permissions since the file may hold the API key.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(b.String()), 0o600)
}

// =============================================================================
// ENV OVERRIDES / DEFAULTS / VALIDATION
// =============================================================================

// ApplyEnvOverrides lets environment variables win over file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("REXPRO_API_KEY"); v != "" {
		c.API.Key = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.API.Key == "" {
		c.API.Key = v
	}
	if v := os.Getenv("REXPRO_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("REXPRO_MODEL"); v != "" {
		c.Models.Default = v
	}
	if v := os.Getenv("REXPRO_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("REXPRO_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
}

// SetDefaults fills zero values that decoding may have left behind.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = 60
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = 3
	}
	if c.Models.Default == "" {
		c.Models.Default = "gemini-2.5-flash"
	}
	if c.Models.LiveConversation == "" {
		c.Models.LiveConversation = c.Models.Default
	}
	if c.Thinking.Budgets == nil {
		c.Thinking.Budgets = map[string]int{}
	}
	if c.Chat.TypingIntervalMs == 0 {
		c.Chat.TypingIntervalMs = 50
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "dark"
	}
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks field ranges. Returns the first problem found.
func (c *Config) Validate() error {
	if c.API.TimeoutSecs <= 0 {
		return ValidationError{"api.timeout_secs", "must be positive"}
	}
	if c.API.MaxRetries < 0 {
		return ValidationError{"api.max_retries", "must not be negative"}
	}
	if c.Chat.TemperatureSet && (c.Chat.Temperature < 0 || c.Chat.Temperature > 2) {
		return ValidationError{"chat.temperature", "must be in [0, 2]"}
	}
	if c.Chat.MaxHistoryMessages < 0 {
		return ValidationError{"chat.max_history_messages", "must not be negative"}
	}
	if c.Chat.TypingIntervalMs < 0 {
		return ValidationError{"chat.typing_interval_ms", "must not be negative"}
	}
	if c.Image.Count < 0 || c.Image.Count > 4 {
		return ValidationError{"image.count", "must be in [0, 4]"}
	}
	if c.Thinking.DefaultBudget < -1 {
		return ValidationError{"thinking.default_budget", "must be >= -1"}
	}
	for id, budget := range c.Thinking.Budgets {
		if budget < -1 {
			return ValidationError{"thinking.budgets." + id, "must be >= -1"}
		}
	}
	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return ValidationError{"ui.theme", `must be "dark", "light", or "auto"`}
	}
	return nil
}

// BudgetFor resolves the thinking budget for a model ID.
func (c *Config) BudgetFor(modelID string) int {
	if b, ok := c.Thinking.Budgets[modelID]; ok {
		return b
	}
	return c.Thinking.DefaultBudget
}

// Temperature returns the configured temperature, or nil when unset.
func (c *Config) Temperature() *float64 {
	if !c.Chat.TemperatureSet {
		return nil
	}
	t := c.Chat.Temperature
	return &t
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Thinking.Budgets = make(map[string]int, len(c.Thinking.Budgets))
	for k, v := range c.Thinking.Budgets {
		cp.Thinking.Budgets[k] = v
	}
	return &cp
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Global returns the process-wide config, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalCfg = cfg
	}
	return globalCfg
}

// SetGlobal replaces the process-wide config.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}
