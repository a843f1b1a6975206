// Package config loads runtime settings from .flowdesk.yaml, FLOWDESK_* env
// vars and flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "FLOWDESK"
	configName = ".flowdesk"

	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db"`
	FileDir    string `mapstructure:"file_dir"`
}

type TemplatesConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AutosaveConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Config holds all runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Client    ClientConfig    `mapstructure:"client"`
	Autosave  AutosaveConfig  `mapstructure:"autosave"`
	Role      string          `mapstructure:"role"`
}

// ViewerRole returns the configured role.
func (c Config) ViewerRole() domain.Role {
	return domain.Role(strings.ToLower(c.Role))
}

// Init points v at the config file and the environment. cfgFile overrides
// the search for .flowdesk.yaml in the working and home directories. A
// missing default config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// SetDefaults registers the built-in value of every key.
func SetDefaults(v *viper.Viper) {
	home := dataDir()
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.sqlite_path", filepath.Join(home, "flowdesk.db"))
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.file_dir", filepath.Join(home, "documents"))
	v.SetDefault("templates.dir", defaultTemplateDir(home))
	v.SetDefault("templates.watch", false)
	v.SetDefault("client.base_url", "http://127.0.0.1:8080")
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("autosave.interval", 30*time.Second)
	v.SetDefault("role", string(domain.RoleStaff))
}

// Load applies defaults for anything not set by config file, environment or
// flags and returns the validated result.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendSQLite, BackendRedis, BackendFile:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be sqlite, redis or file, got %q", c.Store.Backend))
	}
	switch c.ViewerRole() {
	case domain.RoleStaff, domain.RoleCustomer:
	default:
		errs = append(errs, fmt.Errorf("role must be staff or customer, got %q", c.Role))
	}
	if c.Autosave.Interval <= 0 {
		errs = append(errs, fmt.Errorf("autosave.interval must be positive"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// dataDir is ~/.flowdesk, or .flowdesk when no home directory is known.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configName
	}
	return filepath.Join(home, configName)
}

// defaultTemplateDir prefers ./templates (development checkout) over the
// per-user catalog.
func defaultTemplateDir(home string) string {
	if stat, err := os.Stat("templates"); err == nil && stat.IsDir() {
		return "templates"
	}
	return filepath.Join(home, "templates")
}
