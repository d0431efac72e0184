// Package config loads and saves the carryon CLI configuration: shared
// defaults plus named profiles pointing at different backends.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/carryon-app/carryon/internal/api"
)

// ErrProfileNotFound is returned for lookups of unknown profiles.
var ErrProfileNotFound = errors.New("profile not found")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	CurrentProfile string              `mapstructure:"current_profile" yaml:"current_profile"`
	Defaults       Defaults            `mapstructure:"defaults" yaml:"defaults"`
	Profiles       map[string]*Profile `mapstructure:"profiles" yaml:"profiles" validate:"dive"`
	path           string
}

// Defaults apply to every profile that does not override them.
type Defaults struct {
	APIURL     string           `mapstructure:"api_url" yaml:"api_url" validate:"required,url"`
	Locale     string           `mapstructure:"locale" yaml:"locale" validate:"omitempty,bcp47_language_tag"`
	Platform   string           `mapstructure:"platform" yaml:"platform" validate:"required"`
	Timeout    time.Duration    `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	LogLevel   string           `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat  string           `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=text json"`
	TokenStore TokenStoreConfig `mapstructure:"token_store" yaml:"token_store"`
}

// TokenStoreConfig selects where session tokens are kept.
type TokenStoreConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend" validate:"oneof=file redis memory"`
	Path      string `mapstructure:"path" yaml:"path,omitempty"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty" validate:"required_if=Backend redis"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db,omitempty" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
}

type Profile struct {
	APIURL string `mapstructure:"api_url" yaml:"api_url" validate:"omitempty,url"`
	Locale string `mapstructure:"locale" yaml:"locale,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// Dir returns the configuration directory: $CARRYON_CONFIG_DIR, or
// ~/.carryon.
func Dir() (string, error) {
	if dir := os.Getenv("CARRYON_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".carryon"), nil
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Defaults: Defaults{
			APIURL:    "http://localhost:8089",
			Locale:    "en",
			Platform:  api.DefaultPlatform,
			Timeout:   30 * time.Second,
			LogLevel:  "warn",
			LogFormat: "text",
			TokenStore: TokenStoreConfig{
				Backend:   "file",
				KeyPrefix: "carryon",
			},
		},
		Profiles: make(map[string]*Profile),
	}
}

// Load reads cfgFile (default <Dir>/config.yaml) and applies CARRYON_*
// environment overrides. A missing file yields the defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfgFile = filepath.Join(dir, "config.yaml")
	}

	v := viper.New()
	def := Default()
	v.SetDefault("current_profile", def.CurrentProfile)
	v.SetDefault("defaults.api_url", def.Defaults.APIURL)
	v.SetDefault("defaults.locale", def.Defaults.Locale)
	v.SetDefault("defaults.platform", def.Defaults.Platform)
	v.SetDefault("defaults.timeout", def.Defaults.Timeout)
	v.SetDefault("defaults.log_level", def.Defaults.LogLevel)
	v.SetDefault("defaults.log_format", def.Defaults.LogFormat)
	v.SetDefault("defaults.token_store.backend", def.Defaults.TokenStore.Backend)
	v.SetDefault("defaults.token_store.path", filepath.Join(filepath.Dir(cfgFile), "tokens.yaml"))
	v.SetDefault("defaults.token_store.redis_addr", "")
	v.SetDefault("defaults.token_store.redis_db", 0)
	v.SetDefault("defaults.token_store.key_prefix", def.Defaults.TokenStore.KeyPrefix)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CARRYON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names first; the long CARRYON_DEFAULTS_* forms also work.
	_ = v.BindEnv("defaults.api_url", "CARRYON_API_URL", "CARRYON_DEFAULTS_API_URL")
	_ = v.BindEnv("defaults.locale", "CARRYON_LOCALE", "CARRYON_DEFAULTS_LOCALE")
	_ = v.BindEnv("defaults.platform", "CARRYON_PLATFORM", "CARRYON_DEFAULTS_PLATFORM")
	_ = v.BindEnv("defaults.token_store.backend", "CARRYON_TOKEN_STORE", "CARRYON_DEFAULTS_TOKEN_STORE_BACKEND")
	_ = v.BindEnv("defaults.token_store.redis_addr", "CARRYON_REDIS_ADDR", "CARRYON_DEFAULTS_TOKEN_STORE_REDIS_ADDR")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	cfg.path = cfgFile

	return cfg, nil
}

// Validate checks field formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Path returns the file Save writes to.
func (c *Config) Path() string { return c.path }

func (c *Config) Save() error {
	if c.path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// SaveProfile stores a profile, makes it current and writes the file.
func (c *Config) SaveProfile(name, apiURL, locale string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}

	p := &Profile{APIURL: apiURL, Locale: locale}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %q: %w", name, err)
	}

	c.Profiles[name] = p
	c.CurrentProfile = name
	return c.Save()
}

// GetProfile returns the named profile, or the current one if name is empty.
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}

	return profile, nil
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.Save()
}

// APIURL returns the backend URL for a profile, falling back to defaults.
func (c *Config) APIURL(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.APIURL != "" {
		return p.APIURL
	}
	return c.Defaults.APIURL
}

// Locale returns the locale for a profile, falling back to defaults.
func (c *Config) Locale(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.Locale != "" {
		return p.Locale
	}
	return c.Defaults.Locale
}

// APIConfig builds the request pipeline configuration for a profile.
func (c *Config) APIConfig(profile, version string) api.Config {
	return api.Config{
		BaseURL:   c.APIURL(profile),
		Locale:    c.Locale(profile),
		Platform:  c.Defaults.Platform,
		UserAgent: "carryon-cli/" + version,
		Timeout:   c.Defaults.Timeout,
	}
}
