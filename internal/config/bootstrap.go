// Package config loads process configuration the way the teacher's
// config/bootstrap.go and config/config.go do: a minimal env-driven
// Bootstrap read before the database is available, and a richer Config
// unmarshalled from the app_settings key-value table once it is.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Bootstrap is the minimal configuration needed before the catalog store
// is open: where the sqlite file lives, the log level, and the task-chain
// default budget used until app_settings overrides it.
type Bootstrap struct {
	Version string `mapstructure:"version"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Scheduler struct {
		DefaultMaxRuntimeMinutes int `mapstructure:"default_max_runtime_minutes"`
	} `mapstructure:"scheduler"`
}

// NewBootstrap loads only what's needed to open the database and start
// logging. Environment variables win over the optional config file.
func NewBootstrap(version string) (*Bootstrap, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sqlite.path", "./data/archivist.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("scheduler.default_max_runtime_minutes", 120)

	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/archivist")
	v.SetConfigName("config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("bootstrap config load: %w", err)
		}
	}

	v.BindEnv("sqlite.path")
	v.BindEnv("log.level")
	v.BindEnv("scheduler.default_max_runtime_minutes")

	b := &Bootstrap{}
	if err := v.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("bootstrap config unmarshal: %w", err)
	}
	b.Version = version

	return b, nil
}
