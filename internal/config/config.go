// Package config loads the vradmin configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no path is given and VRADMIN_CONFIG is unset.
const DefaultPath = "vradmin.yaml"

// Preference storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	API         APIConfig         `yaml:"api"`
	Grid        GridConfig        `yaml:"grid"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
}

type GridConfig struct {
	DefaultPageSize int           `yaml:"default_page_size" validate:"gte=1"`
	Debounce        time.Duration `yaml:"debounce" validate:"gte=0"`
}

type PreferencesConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory file postgres redis"`
	File        string `yaml:"file"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Backend postgres"`
	// Scope separates preference sets sharing one database, e.g. per admin user.
	Scope         string `yaml:"scope"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Grid: GridConfig{
			DefaultPageSize: 10,
			Debounce:        300 * time.Millisecond,
		},
		Preferences: PreferencesConfig{
			Backend: BackendFile,
			Scope:   "default",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration file at path on top of the defaults and applies
// environment overrides. An empty path falls back to VRADMIN_CONFIG and then to
// DefaultPath; only an explicitly named file is required to exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		if env := os.Getenv("VRADMIN_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath
		}
	}

	cfg := Default()
	if err := cfg.readFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides values from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.API.BaseURL, "VRADMIN_API_URL")
	str(&c.API.Token, "VRADMIN_TOKEN")
	str(&c.Preferences.Backend, "VRADMIN_PREFS_BACKEND")
	str(&c.Preferences.File, "VRADMIN_PREFS_FILE")
	str(&c.Preferences.DatabaseURL, "DATABASE_URL")
	str(&c.Preferences.RedisAddr, "REDIS_ADDR")
	str(&c.Preferences.RedisPassword, "REDIS_PASSWORD")
	str(&c.Logging.Level, "LOG_LEVEL")
	str(&c.Logging.Format, "LOG_FORMAT")

	if v, ok := lookup("VRADMIN_API_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid VRADMIN_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = d
	}
	if v, ok := lookup("VRADMIN_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid VRADMIN_PAGE_SIZE: %w", err)
		}
		c.Grid.DefaultPageSize = n
	}
	for _, key := range []string{"VRADMIN_PORT", "PORT"} {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			c.Server.Port = n
			break
		}
	}
	return nil
}

// Validate checks field ranges and backend requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		msgs = append(msgs, fmt.Sprintf("'%s' failed the '%s' rule", field, ruleName(fe)))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

func ruleName(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// MergeWithDefaults returns a copy of c with zero fields filled from defaults.
// Booleans are not merged since unset and false cannot be told apart.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.API.BaseURL == "" {
		result.API.BaseURL = defaults.API.BaseURL
	}
	if result.API.Token == "" {
		result.API.Token = defaults.API.Token
	}
	if result.API.Timeout == 0 {
		result.API.Timeout = defaults.API.Timeout
	}
	if result.API.Burst == 0 {
		result.API.Burst = defaults.API.Burst
	}
	if result.Grid.DefaultPageSize == 0 {
		result.Grid.DefaultPageSize = defaults.Grid.DefaultPageSize
	}
	if result.Grid.Debounce == 0 {
		result.Grid.Debounce = defaults.Grid.Debounce
	}
	if result.Preferences.Backend == "" {
		result.Preferences.Backend = defaults.Preferences.Backend
	}
	if result.Preferences.Scope == "" {
		result.Preferences.Scope = defaults.Preferences.Scope
	}
	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if len(result.Server.AllowedOrigins) == 0 {
		result.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	if result.Logging.Level == "" {
		result.Logging.Level = defaults.Logging.Level
	}
	if result.Logging.Format == "" {
		result.Logging.Format = defaults.Logging.Format
	}
	return result
}
