package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	assert.Equal(t, "http://localhost:8089", cfg.Defaults.APIURL)
	assert.Equal(t, "en", cfg.Defaults.Locale)
	assert.Equal(t, "mobile", cfg.Defaults.Platform)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, "file", cfg.Defaults.TokenStore.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, "http://localhost:8089", cfg.Defaults.APIURL)
	assert.Equal(t, "file", cfg.Defaults.TokenStore.Backend)
	assert.Equal(t, "tokens.yaml", filepath.Base(cfg.Defaults.TokenStore.Path))
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `current_profile: production
profiles:
  production:
    api_url: https://api.carryon.example.com
    locale: fr
defaults:
  api_url: http://localhost:9000
  timeout: 10s
  log_level: debug
  token_store:
    backend: redis
    redis_addr: localhost:6379
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "production")
	assert.Equal(t, "https://api.carryon.example.com", cfg.Profiles["production"].APIURL)
	assert.Equal(t, "http://localhost:9000", cfg.Defaults.APIURL)
	assert.Equal(t, 10*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, "debug", cfg.Defaults.LogLevel)
	assert.Equal(t, "mobile", cfg.Defaults.Platform, "unset keys keep defaults")
	assert.Equal(t, "redis", cfg.Defaults.TokenStore.Backend)
	assert.Equal(t, "localhost:6379", cfg.Defaults.TokenStore.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("defaults: [unclosed"), 0600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CARRYON_API_URL", "https://staging.carryon.example.com")
	t.Setenv("CARRYON_LOCALE", "es")
	t.Setenv("CARRYON_DEFAULTS_LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://staging.carryon.example.com", cfg.Defaults.APIURL)
	assert.Equal(t, "es", cfg.Defaults.Locale)
	assert.Equal(t, "json", cfg.Defaults.LogFormat)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad api url", mutate: func(c *Config) { c.Defaults.APIURL = "::nope" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Defaults.LogLevel = "loud" }, wantErr: true},
		{name: "bad backend", mutate: func(c *Config) { c.Defaults.TokenStore.Backend = "s3" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Defaults.TokenStore.Backend = "redis" }, wantErr: true},
		{name: "bad profile url", mutate: func(c *Config) { c.Profiles["x"] = &Profile{APIURL: "nope"} }, wantErr: true},
		{name: "bad profile locale", mutate: func(c *Config) { c.Profiles["x"] = &Profile{Locale: "??"} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveProfile_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NoError(t, cfg.SaveProfile("staging", "https://staging.example.com", "de"))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "staging", loaded.CurrentProfile)
	assert.Equal(t, "https://staging.example.com", loaded.APIURL(""))
	assert.Equal(t, "de", loaded.Locale("staging"))
	assert.Equal(t, 30*time.Second, loaded.Defaults.Timeout)
}

func TestSaveProfile_Invalid(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "config.yaml")

	err := cfg.SaveProfile("bad", "not a url", "")
	assert.Error(t, err)
	assert.NotContains(t, cfg.Profiles, "bad")
}

func TestGetProfile(t *testing.T) {
	cfg := Default()
	cfg.Profiles["default"] = &Profile{APIURL: "http://a.example.com"}

	p, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "http://a.example.com", p.APIURL)

	_, err = cfg.GetProfile("ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestRemoveProfile(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveProfile("work", "http://work.example.com", ""))

	require.NoError(t, cfg.RemoveProfile("work"))
	assert.Empty(t, cfg.CurrentProfile)
	assert.NotContains(t, cfg.Profiles, "work")

	assert.ErrorIs(t, cfg.RemoveProfile("work"), ErrProfileNotFound)
}

func TestAPIConfig_FallsBackToDefaults(t *testing.T) {
	cfg := Default()
	cfg.Profiles["eu"] = &Profile{Locale: "fr"}

	apiCfg := cfg.APIConfig("eu", "1.2.3")

	assert.Equal(t, "http://localhost:8089", apiCfg.BaseURL)
	assert.Equal(t, "fr", apiCfg.Locale)
	assert.Equal(t, "mobile", apiCfg.Platform)
	assert.Equal(t, "carryon-cli/1.2.3", apiCfg.UserAgent)
	assert.Equal(t, 30*time.Second, apiCfg.Timeout)
}
