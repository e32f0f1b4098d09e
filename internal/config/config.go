package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Poll     PollConfig     `mapstructure:"poll"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type StateConfig struct {
	Directory string `mapstructure:"directory"`
}

type PollConfig struct {
	DefaultIntervalSec int `mapstructure:"default_interval_sec"`
	MinIntervalSec     int `mapstructure:"min_interval_sec"`
	FetchTimeoutSec    int `mapstructure:"fetch_timeout_sec"`
	RetryCount         int `mapstructure:"retry_count"`
	RetryDelaySec      int `mapstructure:"retry_delay_sec"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.path", "data/bot.db")
	v.SetDefault("state.directory", "data/state")
	v.SetDefault("poll.default_interval_sec", 900)
	v.SetDefault("poll.min_interval_sec", 900)
	v.SetDefault("poll.fetch_timeout_sec", 30)
	v.SetDefault("poll.retry_count", 3)
	v.SetDefault("poll.retry_delay_sec", 2)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("AOCBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("telegram.token", "AOCBOT_TELEGRAM_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (set AOCBOT_TELEGRAM_TOKEN env var)")
	}
	if !strings.Contains(c.Telegram.Token, ":") {
		return fmt.Errorf("telegram token format should be 'ID:SECRET'")
	}
	if c.Poll.DefaultIntervalSec < 1 {
		return fmt.Errorf("poll.default_interval_sec must be >= 1")
	}
	if c.Poll.MinIntervalSec < 1 {
		return fmt.Errorf("poll.min_interval_sec must be >= 1")
	}
	return nil
}
