// Package config loads session configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes the environment variables read by Load, for example
// LOOM_DATABASE_DSN for database.dsn.
const EnvPrefix = "LOOM"

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Session  SessionConfig  `mapstructure:"session"`
}

type DatabaseConfig struct {
	// Dialect names the SQL dialect. It defaults to the dialect spoken by Driver.
	Dialect         string        `mapstructure:"dialect"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DialectName returns the configured dialect, or the driver name if none is set.
func (d DatabaseConfig) DialectName() string {
	if d.Dialect != "" {
		return d.Dialect
	}
	return d.Driver
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Build returns the logger described by the configuration.
func (c LogConfig) Build() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if c.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

type SessionConfig struct {
	// Debug logs every statement at debug level.
	Debug bool `mapstructure:"debug"`
	// SlowThreshold enables statement statistics; slower statements are
	// logged at warn level. Zero disables them.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

var defaults = map[string]any{
	"database.dialect":           "",
	"database.driver":            "sqlite",
	"database.dsn":               "file:loom.db",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    2,
	"database.conn_max_lifetime": time.Hour,
	"log.level":                  "info",
	"log.development":            false,
	"session.debug":              false,
	"session.slow_threshold":     time.Duration(0),
}

// Load reads the configuration. With no path, loom.yaml is looked up in the
// working directory and may be absent; a given path must exist. Environment
// variables override both the file and the defaults.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) > 0 {
		v.SetConfigFile(paths[0])
	} else {
		v.SetConfigName("loom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if len(paths) > 0 || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	switch {
	case c.Database.Driver == "":
		return errors.New("config: database.driver is required")
	case c.Database.DSN == "":
		return errors.New("config: database.dsn is required")
	case c.Database.MaxOpenConns < 0, c.Database.MaxIdleConns < 0:
		return errors.New("config: negative connection pool size")
	case c.Session.SlowThreshold < 0:
		return errors.New("config: negative session.slow_threshold")
	}
	return nil
}
