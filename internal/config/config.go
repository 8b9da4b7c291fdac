// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// the CodeBrain terminal client.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.codebrain/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete CodeBrain client configuration.
type Config struct {
	Version string `toml:"version"`

	// API configuration
	API APIConfig `toml:"api"`

	// Chat configuration
	Chat ChatConfig `toml:"chat"`

	// Typing animation configuration
	Typing TypingConfig `toml:"typing"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`
}

// APIConfig contains CodeBrain API transport configuration.
type APIConfig struct {
	// BaseURL is the CodeBrain API endpoint
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds non-streaming requests in seconds
	TimeoutSecs int `toml:"timeout_secs"`
	// IdleTimeoutSecs closes an answer stream after this many silent seconds.
	// 0 disables the watchdog.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// RequestsPerMinute is the client-side throttle
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ChatConfig contains model selection defaults.
type ChatConfig struct {
	// DefaultModel is the model used for single-model asks
	DefaultModel string `toml:"default_model"`
	// BlendModels are the models queried together in blend mode
	BlendModels []string `toml:"blend_models"`
	// Persona is an optional answer persona sent with each ask
	Persona string `toml:"persona"`
}

// TypingConfig controls the typewriter reveal of streamed answers.
type TypingConfig struct {
	// Enabled toggles the animation; when false, text appears as it arrives
	Enabled bool `toml:"enabled"`
	// MinSpeedMs is the per-character delay in milliseconds during normal flow
	MinSpeedMs int `toml:"min_speed_ms"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode"`
	// ShowRouting displays the server's routing reason under each answer
	ShowRouting bool `toml:"show_routing"`
	// SyntaxTheme is the chroma style used for code blocks
	SyntaxTheme string `toml:"syntax_theme"`
}

// StorageConfig contains local history cache configuration.
type StorageConfig struct {
	// Enabled toggles the local conversation cache
	Enabled bool `toml:"enabled"`
	// Path is the SQLite database path (empty = ~/.codebrain/history.db)
	Path string `toml:"path"`
	// MaxConversations caps locally cached conversations (0 = unlimited)
	MaxConversations int `toml:"max_conversations"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:           "https://api.codebrain.dev",
			TimeoutSecs:       30,
			IdleTimeoutSecs:   120,
			RequestsPerMinute: 60,
		},

		Chat: ChatConfig{
			DefaultModel: "gemini-2.0-flash",
			BlendModels:  []string{"gemini-2.5-flash", "gpt-4o"},
		},

		Typing: TypingConfig{
			Enabled:    true,
			MinSpeedMs: 20,
		},

		UI: UIConfig{
			Theme:       "dark",
			CompactMode: false,
			ShowRouting: true,
			SyntaxTheme: "monokai",
		},

		Storage: StorageConfig{
			Enabled:          true,
			MaxConversations: 500,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the CodeBrain configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".codebrain"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadFile(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from a TOML file into cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadFile(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# CodeBrain client configuration")
	fmt.Fprintln(file, "# Generated by codebrain - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}

	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.API.TimeoutSecs),
		})
	}

	if c.API.IdleTimeoutSecs < 0 || c.API.IdleTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.idle_timeout_secs",
			Message: fmt.Sprintf("must be 0-600, got %d", c.API.IdleTimeoutSecs),
		})
	}

	if c.API.RequestsPerMinute < 1 || c.API.RequestsPerMinute > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_minute",
			Message: fmt.Sprintf("must be 1-600, got %d", c.API.RequestsPerMinute),
		})
	}

	if c.Chat.DefaultModel == "" {
		errs = append(errs, ValidationError{
			Field:   "chat.default_model",
			Message: "must not be empty",
		})
	}

	if len(c.Chat.BlendModels) < 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.blend_models",
			Message: fmt.Sprintf("blend needs at least 2 models, got %d", len(c.Chat.BlendModels)),
		})
	}

	if c.Typing.MinSpeedMs < 1 || c.Typing.MinSpeedMs > 500 {
		errs = append(errs, ValidationError{
			Field:   "typing.min_speed_ms",
			Message: fmt.Sprintf("must be 1-500, got %d", c.Typing.MinSpeedMs),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.Storage.MaxConversations < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_conversations",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.API.RequestsPerMinute == 0 {
		c.API.RequestsPerMinute = defaults.API.RequestsPerMinute
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = defaults.Chat.DefaultModel
	}
	if len(c.Chat.BlendModels) == 0 {
		c.Chat.BlendModels = append([]string(nil), defaults.Chat.BlendModels...)
	}
	if c.Typing.MinSpeedMs == 0 {
		c.Typing.MinSpeedMs = defaults.Typing.MinSpeedMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SyntaxTheme == "" {
		c.UI.SyntaxTheme = defaults.UI.SyntaxTheme
	}
	if c.Storage.MaxConversations == 0 {
		c.Storage.MaxConversations = defaults.Storage.MaxConversations
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CODEBRAIN_API_BASE: overrides api.base_url
//   - CODEBRAIN_MODEL: overrides chat.default_model
//   - CODEBRAIN_PERSONA: overrides chat.persona
//   - CODEBRAIN_IDLE_TIMEOUT: overrides api.idle_timeout_secs
//   - CODEBRAIN_NO_TYPING: set to "1" or "true" to disable the typewriter reveal
//   - CODEBRAIN_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("CODEBRAIN_API_BASE"); base != "" {
		c.API.BaseURL = base
	}
	if model := os.Getenv("CODEBRAIN_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}
	if persona := os.Getenv("CODEBRAIN_PERSONA"); persona != "" {
		c.Chat.Persona = persona
	}
	if idle := os.Getenv("CODEBRAIN_IDLE_TIMEOUT"); idle != "" {
		if secs, err := strconv.Atoi(idle); err == nil {
			c.API.IdleTimeoutSecs = secs
		}
	}
	if noTyping := os.Getenv("CODEBRAIN_NO_TYPING"); noTyping != "" {
		c.Typing.Enabled = !(noTyping == "1" || strings.ToLower(noTyping) == "true")
	}
	if theme := os.Getenv("CODEBRAIN_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// HistoryPath returns the resolved local history database path.
func (c *Config) HistoryPath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Chat.BlendModels = append([]string(nil), c.Chat.BlendModels...)
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
