// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigmark/internal/util"
)

// Version is the configuration schema version written by Save.
const Version = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigmark configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Ollama  OllamaConfig  `toml:"ollama" json:"ollama"`
	Render  RenderConfig  `toml:"render" json:"render"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Export  ExportConfig  `toml:"export" json:"export"`
}

// ServerConfig contains HTTP service settings.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`

	MaxBodyBytes     int64    `toml:"max_body_bytes" json:"max_body_bytes"`
	CORSOrigins      []string `toml:"cors_origins" json:"cors_origins"`
	ReadTimeoutSecs  int      `toml:"read_timeout_secs" json:"read_timeout_secs"`
	WriteTimeoutSecs int      `toml:"write_timeout_secs" json:"write_timeout_secs"`

	// Strict validates every rendered document and fails the request when
	// the markup is malformed.
	Strict bool `toml:"strict" json:"strict"`
}

// OllamaConfig contains model backend settings.
type OllamaConfig struct {
	URL          string `toml:"url" json:"url"`
	Model        string `toml:"model" json:"model"`
	TimeoutSecs  int    `toml:"timeout_secs" json:"timeout_secs"`
	MaxRetries   int    `toml:"max_retries" json:"max_retries"`
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// RenderConfig controls how model output is turned into markup.
type RenderConfig struct {
	// StylesFile is an optional TOML style table overlaid on the defaults.
	StylesFile     string `toml:"styles_file" json:"styles_file"`
	WatchStyles    bool   `toml:"watch_styles" json:"watch_styles"`
	Highlight      bool   `toml:"highlight" json:"highlight"`
	HighlightStyle string `toml:"highlight_style" json:"highlight_style"`
	Sanitize       bool   `toml:"sanitize" json:"sanitize"`
}

// StorageConfig contains conversation history settings.
type StorageConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database file. Empty means ~/.rigmark/history.db.
	Path string `toml:"path" json:"path"`
}

// ExportConfig contains conversation export defaults.
type ExportConfig struct {
	OutputDir         string `toml:"output_dir" json:"output_dir"`
	Theme             string `toml:"theme" json:"theme"`
	IncludeMetadata   bool   `toml:"include_metadata" json:"include_metadata"`
	IncludeTimestamps bool   `toml:"include_timestamps" json:"include_timestamps"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Version: Version,
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8787,
			RateLimit:        10,
			RateBurst:        20,
			MaxBodyBytes:     1 << 20,
			CORSOrigins:      []string{"http://localhost:3000"},
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 300,
		},
		Ollama: OllamaConfig{
			URL:         "http://127.0.0.1:11434",
			Model:       "qwen2.5-coder:14b",
			TimeoutSecs: 300,
			MaxRetries:  3,
		},
		Render: RenderConfig{
			HighlightStyle: "monokai",
			Sanitize:       true,
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Export: ExportConfig{
			OutputDir:         ".",
			Theme:             "light",
			IncludeMetadata:   true,
			IncludeTimestamps: true,
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Timeout returns the backend request timeout.
func (o OllamaConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigmark configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigmark"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// StoragePath returns the history database path, resolving the default.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, anything else as TOML. Keys missing from the
// file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
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
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rigmark configuration file\n")
	buf.WriteString("# Environment variables (RIGMARK_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate limiting is enabled, got %d", c.Server.RateBurst)
	}
	if c.Server.MaxBodyBytes <= 0 {
		add("server.max_body_bytes", "must be positive, got %d", c.Server.MaxBodyBytes)
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			add("server.cors_origins", "invalid origin '%s'", origin)
		}
	}

	// Ollama
	if u, err := url.Parse(c.Ollama.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("ollama.url", "invalid URL '%s', must be http(s)://host[:port]", c.Ollama.URL)
	}
	if strings.TrimSpace(c.Ollama.Model) == "" {
		add("ollama.model", "must not be empty")
	}
	if c.Ollama.TimeoutSecs <= 0 {
		add("ollama.timeout_secs", "must be positive, got %d", c.Ollama.TimeoutSecs)
	}
	if c.Ollama.MaxRetries < 0 || c.Ollama.MaxRetries > 10 {
		add("ollama.max_retries", "must be between 0 and 10, got %d", c.Ollama.MaxRetries)
	}

	// Render
	if c.Render.WatchStyles && c.Render.StylesFile == "" {
		add("render.watch_styles", "requires render.styles_file")
	}

	// Export
	validThemes := map[string]bool{"light": true, "dark": true}
	if !validThemes[strings.ToLower(c.Export.Theme)] {
		add("export.theme", "invalid theme '%s', must be one of: light, dark", c.Export.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults replaces zero values that have no meaning with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = d.Server.ReadTimeoutSecs
	}
	if c.Server.WriteTimeoutSecs == 0 {
		c.Server.WriteTimeoutSecs = d.Server.WriteTimeoutSecs
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = d.Ollama.URL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = d.Ollama.Model
	}
	if c.Ollama.TimeoutSecs == 0 {
		c.Ollama.TimeoutSecs = d.Ollama.TimeoutSecs
	}
	if c.Render.HighlightStyle == "" {
		c.Render.HighlightStyle = d.Render.HighlightStyle
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = d.Export.OutputDir
	}
	if c.Export.Theme == "" {
		c.Export.Theme = d.Export.Theme
	}
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RIGMARK_HOST, RIGMARK_PORT: override server.host and server.port
//   - RIGMARK_OLLAMA_URL: overrides ollama.url
//   - RIGMARK_MODEL: overrides ollama.model
//   - RIGMARK_STYLES: overrides render.styles_file
//   - RIGMARK_HIGHLIGHT: overrides render.highlight
//   - RIGMARK_SANITIZE: overrides render.sanitize
//   - RIGMARK_STRICT: overrides server.strict
//   - RIGMARK_DB: overrides storage.path
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("RIGMARK_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("RIGMARK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if u := os.Getenv("RIGMARK_OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	}
	if model := os.Getenv("RIGMARK_MODEL"); model != "" {
		c.Ollama.Model = model
	}
	if styles := os.Getenv("RIGMARK_STYLES"); styles != "" {
		c.Render.StylesFile = styles
	}
	if v := os.Getenv("RIGMARK_HIGHLIGHT"); v != "" {
		c.Render.Highlight = parseBool(v)
	}
	if v := os.Getenv("RIGMARK_SANITIZE"); v != "" {
		c.Render.Sanitize = parseBool(v)
	}
	if v := os.Getenv("RIGMARK_STRICT"); v != "" {
		c.Server.Strict = parseBool(v)
	}
	if db := os.Getenv("RIGMARK_DB"); db != "" {
		c.Storage.Path = db
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.port").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation, derived from
// the TOML tags.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	return &clone
}

// String returns an indented JSON rendition for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
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
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
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
	SetGlobal(cfg)
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
