package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds ledgerd's startup configuration, loaded from an optional
// YAML file, environment variables, and finally flag overrides, in that
// order of increasing precedence.
type Config struct {
	WAL     WALConfig     `mapstructure:"wal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WALConfig controls where and how the write-ahead log is stored.
type WALConfig struct {
	Path string `mapstructure:"path"`
	// CheckpointInterval is the number of write ops between automatic
	// checkpoints; see ledger.Config.CheckpointInterval.
	CheckpointInterval uint64 `mapstructure:"checkpoint_interval"`
	// DefaultCurrency is used for account creation when none is given on
	// the command line; see ledger.Config.DefaultCurrency.
	DefaultCurrency string `mapstructure:"default_currency"`
	// SyncMode is advisory; see ledger.Config.SyncMode.
	SyncMode string `mapstructure:"sync_mode"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig reads configPath (if non-empty) over a set of defaults, then
// layers in LEDGERD_-prefixed environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ledgerd")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wal.path", "./data/ledger.wal")
	v.SetDefault("wal.checkpoint_interval", 100)
	v.SetDefault("wal.default_currency", "USD")
	v.SetDefault("wal.sync_mode", "always")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

// parseLevel converts a textual level into the zerolog equivalent,
// defaulting to info for anything unrecognized.
func parseLevel(s string) string {
	switch s {
	case "debug", "info", "warn", "error", "fatal", "disabled":
		return s
	default:
		return "info"
	}
}
