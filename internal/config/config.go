package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config is the bot's startup configuration, read from config.toml in the
// data directory. Every field has a default so a minimal file only needs the
// server and credentials.
type Config struct {
	Server string `mapstructure:"server"`
	Port   int    `mapstructure:"port"`
	SSL    bool   `mapstructure:"ssl"`
	Pass   string `mapstructure:"pass"`

	Nick string `mapstructure:"nick"`
	User string `mapstructure:"user"`

	// StatusPrefix is the nick prefix of the remote service's pseudo-users
	// ("*status", "*controlpanel").
	StatusPrefix string `mapstructure:"status_prefix"`
	// CommandPrefix is the leading character that marks chat commands.
	CommandPrefix string `mapstructure:"command_prefix"`

	LogChannel  string   `mapstructure:"log_channel"`
	Admins      []string `mapstructure:"admins"`
	BindHostNet string   `mapstructure:"bind_host_net"`

	ResyncInterval time.Duration `mapstructure:"resync_interval"`
	// RequestTimeout bounds each correlated request/response round-trip.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Debug          bool          `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", "bnc.snoonet.org")
	v.SetDefault("port", 5457)
	v.SetDefault("ssl", true)
	v.SetDefault("pass", "")
	v.SetDefault("nick", "bnc")
	v.SetDefault("user", "BNCServ")
	v.SetDefault("status_prefix", "*")
	v.SetDefault("command_prefix", ".")
	v.SetDefault("log_channel", "")
	v.SetDefault("admins", []string{})
	v.SetDefault("bind_host_net", "127.0.0.0/16")
	v.SetDefault("resync_interval", 8*time.Hour)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("debug", false)
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// With an explicit config file viper surfaces a plain path error
		// for a missing file rather than ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server == "" {
		return errors.New("server is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Nick == "" {
		return errors.New("nick is required")
	}
	if len(c.CommandPrefix) != 1 {
		return fmt.Errorf("command_prefix must be a single character, got %q", c.CommandPrefix)
	}
	if c.ResyncInterval <= 0 {
		return errors.New("resync_interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
