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

// Config is the top-level flowwatch configuration.
type Config struct {
	// Source is a snapshot file path or an http(s) base URL of a Jira
	// instance. Empty falls back to Jira.BaseURL.
	Source   string        `mapstructure:"source"`
	Board    string        `mapstructure:"board"`
	Jira     Jira          `mapstructure:"jira"`
	Defaults QueryDefaults `mapstructure:"defaults"`
	Output   Output        `mapstructure:"output"`
}

// Jira configures the upstream board API.
type Jira struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// QueryDefaults are the fallback metric query parameters.
type QueryDefaults struct {
	Resolution           string `mapstructure:"resolution"`
	Completion           string `mapstructure:"completion"`
	Percentiles          []int  `mapstructure:"percentiles"`
	WindowDays           int    `mapstructure:"window_days"`
	PredictabilityMonths int    `mapstructure:"predictability_months"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. Environment variables
// prefixed with FLOWWATCH_ override file values.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("source", "")
	v.SetDefault("board", "")
	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.token", "")
	v.SetDefault("jira.timeout", DefaultJira.Timeout)
	v.SetDefault("defaults.resolution", DefaultQuery.Resolution)
	v.SetDefault("defaults.completion", DefaultQuery.Completion)
	v.SetDefault("defaults.percentiles", DefaultQuery.Percentiles)
	v.SetDefault("defaults.window_days", DefaultQuery.WindowDays)
	v.SetDefault("defaults.predictability_months", DefaultQuery.PredictabilityMonths)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Source == "" {
		cfg.Source = cfg.Jira.BaseURL
	}
	cfg.Source = expandPath(cfg.Source)
	if len(cfg.Defaults.Percentiles) == 0 {
		cfg.Defaults.Percentiles = DefaultQuery.Percentiles
	}

	return &cfg, nil
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(ConfigDir(), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
