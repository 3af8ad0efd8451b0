package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPort                  = 8000
	DefaultAdminUsername         = "mudinho"
	DefaultAdminPassword         = "mudinho"
	defaultAdminFile             = "admin.json"
	defaultOrdersFile            = "orders.json"
	defaultStaticRoot            = "."
	defaultPrometheusMetricsPort = "9091"
)

type Config struct {
	Environment string `toml:"environment"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	// persisted data
	AdminFile  string `toml:"admin_file"`
	OrdersFile string `toml:"orders_file"`
	StaticRoot string `toml:"static_root"`
	// admin account created on first start
	DefaultAdminUsername string `toml:"default_admin_username"`
	DefaultAdminPassword string `toml:"default_admin_password"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`
	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// set from env only
	SentryDSN        string `toml:"-"`
	HoneycombEnabled bool   `toml:"-"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// envOverrides are read from the process environment and win over the file.
type envOverrides struct {
	Port             int    `env:"PORT"`
	SentryDSN        string `env:"SENTRY_DSN"`
	HoneycombEnabled bool   `env:"HONEYCOMB_ENABLED"`
}

// Load reads the TOML config for env from path and applies env overrides.
// A missing config file is not an error: defaults are used instead.
func Load(ctx context.Context, env, path string) (*Config, error) {
	return load(ctx, env, path, envconfig.OsLookuper())
}

func load(ctx context.Context, env, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg, err := fromFile(env, path)
	if err != nil {
		return nil, err
	}
	cfg.setDefaults(env)

	var overrides envOverrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &overrides,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	cfg.SentryDSN = overrides.SentryDSN
	cfg.HoneycombEnabled = overrides.HoneycombEnabled

	return cfg, nil
}

func fromFile(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warnf("config file [%s] not found, using defaults", path)
			return &Config{}, nil
		}
		return nil, fmt.Errorf("decode config file: %w", err)
	}
	return t.Get(env)
}

func (c *Config) setDefaults(env string) {
	if c.Environment == "" {
		c.Environment = env
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.AdminFile == "" {
		c.AdminFile = defaultAdminFile
	}
	if c.OrdersFile == "" {
		c.OrdersFile = defaultOrdersFile
	}
	if c.StaticRoot == "" {
		c.StaticRoot = defaultStaticRoot
	}
	if c.DefaultAdminUsername == "" {
		c.DefaultAdminUsername = DefaultAdminUsername
	}
	if c.DefaultAdminPassword == "" {
		c.DefaultAdminPassword = DefaultAdminPassword
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = defaultPrometheusMetricsPort
	}
}
