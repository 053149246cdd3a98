// Package config loads showcase configuration from files, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SHOWCASE_CHAT_ENDPOINT.
const EnvPrefix = "SHOWCASE"

// Config is the root configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Player  PlayerConfig  `mapstructure:"player"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Server  ServerConfig  `mapstructure:"server"`
	TUI     TUIConfig     `mapstructure:"tui"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// PlayerConfig controls the scripted conversation player.
type PlayerConfig struct {
	// Dwell is how long a finished script stays on screen.
	Dwell time.Duration `mapstructure:"dwell"`

	// Settle is the pause between hiding one script and starting the next.
	Settle time.Duration `mapstructure:"settle"`

	// ScriptsDir holds extra YAML scripts. Missing directories are ignored.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// ChatConfig controls the chat demo client.
type ChatConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Locale   string        `mapstructure:"locale"`
	// Language is sent with each question when set.
	Language string `mapstructure:"language"`
	// RateLimitNotice and FailedNotice replace the locale's notice copy when set.
	RateLimitNotice string `mapstructure:"rate_limit_notice"`
	FailedNotice    string `mapstructure:"failed_notice"`
}

// ServerConfig controls the demo chat server.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	GRPCPort          int           `mapstructure:"grpc_port"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimit         int           `mapstructure:"rate_limit"`
	RateWindow        time.Duration `mapstructure:"rate_window"`
	MaxQuestionLength int           `mapstructure:"max_question_length"`
	DatabasePath      string        `mapstructure:"database_path"`
	// EventRetention prunes older events. Zero keeps everything.
	EventRetention time.Duration `mapstructure:"event_retention"`
}

// TUIConfig controls the terminal UI.
type TUIConfig struct {
	Theme string `mapstructure:"theme"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Player: PlayerConfig{
			Dwell:  4 * time.Second,
			Settle: 500 * time.Millisecond,
		},
		Chat: ChatConfig{
			Endpoint: "http://127.0.0.1:8787/api/chat",
			Timeout:  30 * time.Second,
			Locale:   "es",
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8787,
			GRPCPort:          8788,
			RateLimitEnabled:  true,
			RateLimit:         10,
			RateWindow:        5 * time.Minute,
			MaxQuestionLength: 500,
			EventRetention:    30 * 24 * time.Hour,
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// Load reads configuration. An empty path searches the default locations;
// a missing default file is not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("showcase")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			v.AddConfigPath(filepath.Join(home, ".config", "showcase"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)

	v.SetDefault("player.dwell", d.Player.Dwell)
	v.SetDefault("player.settle", d.Player.Settle)
	v.SetDefault("player.scripts_dir", d.Player.ScriptsDir)

	v.SetDefault("chat.endpoint", d.Chat.Endpoint)
	v.SetDefault("chat.timeout", d.Chat.Timeout)
	v.SetDefault("chat.locale", d.Chat.Locale)
	v.SetDefault("chat.language", d.Chat.Language)
	v.SetDefault("chat.rate_limit_notice", d.Chat.RateLimitNotice)
	v.SetDefault("chat.failed_notice", d.Chat.FailedNotice)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.grpc_port", d.Server.GRPCPort)
	v.SetDefault("server.rate_limit_enabled", d.Server.RateLimitEnabled)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_window", d.Server.RateWindow)
	v.SetDefault("server.max_question_length", d.Server.MaxQuestionLength)
	v.SetDefault("server.database_path", d.Server.DatabasePath)
	v.SetDefault("server.event_retention", d.Server.EventRetention)

	v.SetDefault("tui.theme", d.TUI.Theme)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Player.Dwell < 0 {
		return fmt.Errorf("player.dwell must not be negative")
	}
	if c.Player.Settle < 0 {
		return fmt.Errorf("player.settle must not be negative")
	}
	if strings.TrimSpace(c.Chat.Endpoint) == "" {
		return fmt.Errorf("chat.endpoint is required")
	}
	if c.Chat.Timeout <= 0 {
		return fmt.Errorf("chat.timeout must be greater than 0")
	}
	switch c.Chat.Locale {
	case "es", "en":
	default:
		return fmt.Errorf("chat.locale must be es or en, got %q", c.Chat.Locale)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be greater than 0")
	}
	if c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rate_window must be greater than 0")
	}
	if c.Server.MaxQuestionLength <= 0 {
		return fmt.Errorf("server.max_question_length must be greater than 0")
	}
	if c.Server.EventRetention < 0 {
		return fmt.Errorf("server.event_retention must not be negative")
	}
	return nil
}
