// Package config loads and persists studyplan settings.
//
// Settings come from ~/.studyplan/config.yaml, then a .env file, then the
// process environment. Later sources win.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

// Environment variables. The VITE_ names are accepted so an existing
// frontend .env file can be reused as is.
const (
	EnvHome       = "STUDYPLAN_HOME"
	EnvAPIURL     = "STUDYPLAN_API_URL"
	EnvEnableMock = "STUDYPLAN_ENABLE_MOCK"
	EnvLogLevel   = "STUDYPLAN_LOG_LEVEL"
	EnvOTLP       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvViteAPIURL = "VITE_API_URL"
	EnvViteMock   = "VITE_ENABLE_MOCK"
)

// DefaultAPIURL is used when nothing else is configured.
const DefaultAPIURL = "http://localhost:8000/api/v1"

// Config is the full settings tree.
type Config struct {
	API     APIConfig     `yaml:"api" json:"api"`
	Stream  StreamConfig  `yaml:"stream" json:"stream"`
	Display DisplayConfig `yaml:"display" json:"display"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Mock    MockConfig    `yaml:"mock" json:"mock"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	URL        string  `yaml:"url" json:"url"`
	EnableMock bool    `yaml:"enable_mock" json:"enable_mock"`
	TimeoutSec int     `yaml:"timeout_sec" json:"timeout_sec"`
	RateLimit  float64 `yaml:"rate_limit" json:"rate_limit"` // requests per second, 0 disables
	Burst      int     `yaml:"burst" json:"burst"`
	CacheSize  int     `yaml:"cache_size" json:"cache_size"`
}

// Timeout returns the request timeout for non-streaming calls.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// StreamConfig selects reducer merge policies.
type StreamConfig struct {
	MonthPolicy string `yaml:"month_policy" json:"month_policy"` // "replace" or "append"
	WeekPolicy  string `yaml:"week_policy" json:"week_policy"`   // "replace" or "append"
}

// DisplayConfig controls output.
type DisplayConfig struct {
	Format  string `yaml:"format" json:"format"` // "text", "json", "yaml"
	Theme   string `yaml:"theme" json:"theme"`   // "light", "dark", "system"
	NoColor bool   `yaml:"no_color" json:"no_color"`
	Plain   bool   `yaml:"plain" json:"plain"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MockConfig configures the built-in mock backend.
type MockConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	DelayMs int    `yaml:"delay_ms" json:"delay_ms"`
}

// Delay returns the pause between mock stream events.
func (m MockConfig) Delay() time.Duration {
	return time.Duration(m.DelayMs) * time.Millisecond
}

// TracingConfig controls OpenTelemetry spans for commands, requests and
// streams. Spans are exported over OTLP/HTTP when Endpoint is set.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	Endpoint   string  `yaml:"endpoint" json:"endpoint"` // host:port of the collector
	Insecure   bool    `yaml:"insecure" json:"insecure"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:        DefaultAPIURL,
			TimeoutSec: 30,
			RateLimit:  10,
			Burst:      20,
			CacheSize:  64,
		},
		Stream: StreamConfig{
			MonthPolicy: "replace",
			WeekPolicy:  "replace",
		},
		Display: DisplayConfig{
			Format: "text",
			Theme:  "system",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Mock: MockConfig{
			Addr:    "127.0.0.1:8787",
			DelayMs: 150,
		},
		Tracing: TracingConfig{
			SampleRate: 1,
		},
	}
}

// Dir returns the settings directory, $STUDYPLAN_HOME or ~/.studyplan.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".studyplan"), nil
}

// Path returns the location of config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the settings file at path over the defaults, then applies
// envFiles (./.env when none are given) and environment overrides. Missing
// files are not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// A missing .env is the common case.
	_ = godotenv.Load(envFiles...)

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the settings file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read config", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "YAML", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to create config directory", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write config", err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. getenv is os.Getenv in
// production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if url := firstNonEmpty(getenv(EnvAPIURL), getenv(EnvViteAPIURL)); url != "" {
		c.API.URL = strings.TrimSpace(url)
	}
	if raw := firstNonEmpty(getenv(EnvEnableMock), getenv(EnvViteMock)); raw != "" {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			c.API.EnableMock = v
		}
	}
	if level := strings.TrimSpace(getenv(EnvLogLevel)); level != "" {
		c.Logging.Level = level
	}
	if endpoint := strings.TrimSpace(getenv(EnvOTLP)); endpoint != "" {
		c.Tracing.Enabled = true
		c.Tracing.Endpoint = endpoint
	}
}

// Validate checks enumerated values and bounds.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...)).
			WithSuggestion("Run 'studyplan config view' to inspect the current settings")
	}

	if strings.TrimSpace(c.API.URL) == "" && !c.API.EnableMock {
		return invalid("api.url must not be empty")
	}
	if c.API.TimeoutSec < 0 || c.API.RateLimit < 0 || c.API.Burst < 0 || c.API.CacheSize < 0 {
		return invalid("api limits must not be negative")
	}
	if !oneOf(c.Stream.MonthPolicy, "", "replace", "append") {
		return invalid("stream.month_policy must be 'replace' or 'append', got %q", c.Stream.MonthPolicy)
	}
	if !oneOf(c.Stream.WeekPolicy, "", "replace", "append") {
		return invalid("stream.week_policy must be 'replace' or 'append', got %q", c.Stream.WeekPolicy)
	}
	if !oneOf(c.Display.Format, "", "text", "json", "yaml") {
		return invalid("display.format must be text, json or yaml, got %q", c.Display.Format)
	}
	if !oneOf(c.Display.Theme, "", "light", "dark", "system") {
		return invalid("display.theme must be light, dark or system, got %q", c.Display.Theme)
	}
	if c.Mock.DelayMs < 0 {
		return invalid("mock.delay_ms must not be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return invalid("tracing.sample_rate must be between 0 and 1, got %v", c.Tracing.SampleRate)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
