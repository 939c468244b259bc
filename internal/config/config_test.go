package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/errors"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.API.URL = "https://api.example.com/api/v1"
	cfg.Stream.MonthPolicy = "append"

	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  url: http://10.0.0.1/api/v1\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1/api/v1", cfg.API.URL)
	assert.Equal(t, 30, cfg.API.TimeoutSec)
	assert.Equal(t, "replace", cfg.Stream.WeekPolicy)
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))

	_, err := LoadFile(path)
	assert.Equal(t, errors.ErrCodeFileUnmarshal, errors.CodeOf(err))
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantURL  string
		wantMock bool
		wantLvl  string
	}{
		{name: "nothing set", env: nil, wantURL: DefaultAPIURL, wantLvl: "warn"},
		{
			name:     "studyplan variables",
			env:      map[string]string{EnvAPIURL: "http://a/api/v1", EnvEnableMock: "true", EnvLogLevel: "debug"},
			wantURL:  "http://a/api/v1",
			wantMock: true,
			wantLvl:  "debug",
		},
		{
			name:     "vite fallbacks",
			env:      map[string]string{EnvViteAPIURL: "http://b/api/v1", EnvViteMock: "1"},
			wantURL:  "http://b/api/v1",
			wantMock: true,
			wantLvl:  "warn",
		},
		{
			name:    "studyplan wins over vite",
			env:     map[string]string{EnvAPIURL: "http://a", EnvViteAPIURL: "http://b"},
			wantURL: "http://a",
			wantLvl: "warn",
		},
		{name: "unparsable bool ignored", env: map[string]string{EnvEnableMock: "maybe"}, wantURL: DefaultAPIURL, wantLvl: "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(env(tt.env))
			assert.Equal(t, tt.wantURL, cfg.API.URL)
			assert.Equal(t, tt.wantMock, cfg.API.EnableMock)
			assert.Equal(t, tt.wantLvl, cfg.Logging.Level)
		})
	}
}

func TestApplyEnv_TracingEndpoint(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Tracing.Enabled)

	cfg.ApplyEnv(env(map[string]string{EnvOTLP: "collector:4318"}))
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
}

func TestLoad_UsesEnvironment(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://from-env/api/v1")
	t.Setenv(EnvEnableMock, "false")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/api/v1", cfg.API.URL)
}

func TestDir_HonoursHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)

	got, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	for _, key := range Keys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}

	require.NoError(t, cfg.Set("api.enable_mock", "yes"))
	assert.True(t, cfg.API.EnableMock)

	require.NoError(t, cfg.Set("api.rate_limit", "2.5"))
	v, err := cfg.Get("api.rate_limit")
	require.NoError(t, err)
	assert.Equal(t, "2.5", v)

	require.NoError(t, cfg.Set("stream.month_policy", "append"))
	assert.Equal(t, "append", cfg.Stream.MonthPolicy)
}

func TestSet_Errors(t *testing.T) {
	cfg := Default()

	err := cfg.Set("api.nope", "x")
	assert.Equal(t, errors.ErrCodeConfigUnknownKey, errors.CodeOf(err))

	err = cfg.Set("api.burst", "lots")
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))

	err = cfg.Set("display.theme", "neon")
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))

	_, err = cfg.Get("missing.key")
	assert.ErrorIs(t, err, errors.Match(errors.ErrCodeConfigUnknownKey))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.API.URL = ""
	assert.Error(t, cfg.Validate())

	cfg.API.EnableMock = true
	assert.NoError(t, cfg.Validate(), "mock mode needs no url")

	cfg.Mock.DelayMs = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	require.NoError(t, cfg.Set("tracing.sample_rate", "0.25"))
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(cfg.Set("tracing.sample_rate", "2")))
}
