// Package config loads the settings of repostats.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration of the CLI and the HTTP host.
type Config struct {
	Data   DataConfig   `mapstructure:"data" yaml:"data"`
	Views  ViewsConfig  `mapstructure:"views" yaml:"views"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// DataConfig names the dataset files: the primary file and an optional
// secondary file joined to it.
type DataConfig struct {
	Paths []string `mapstructure:"paths" yaml:"paths"`
}

// ViewsConfig holds the view defaults.
type ViewsConfig struct {
	TopN          int `mapstructure:"top_n" yaml:"top_n"`
	HistogramBins int `mapstructure:"histogram_bins" yaml:"histogram_bins"`
}

// ServerConfig holds the HTTP host settings.
type ServerConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
}

// ReadTimeout returns the read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSec) * time.Second
}

// Load loads configuration from defaults, the config file, a .env file and
// the environment. Precedence: env > config file > defaults.
// An empty cfgFile looks for an optional repostats.yaml in the working directory.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("REPOSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.paths", []string{})
	v.SetDefault("views.top_n", 10)
	v.SetDefault("views.histogram_bins", 20)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout_sec", 30)
	v.SetDefault("server.write_timeout_sec", 60)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("repostats")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &c, nil
}

// Validate checks the values that have no usable fallback.
func (c *Config) Validate() error {
	if len(c.Data.Paths) > 2 {
		return fmt.Errorf("data.paths: at most 2 files, got %d", len(c.Data.Paths))
	}
	if c.Views.TopN <= 0 {
		return fmt.Errorf("views.top_n must be positive, got %d", c.Views.TopN)
	}
	if c.Views.HistogramBins <= 0 {
		return fmt.Errorf("views.histogram_bins must be positive, got %d", c.Views.HistogramBins)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
