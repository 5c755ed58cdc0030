package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API        APIConfig        `yaml:"api"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"        env:"APOLLO_BASE_URL"`
	Key            string `yaml:"key"             env:"APOLLO_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"APOLLO_TIMEOUT_SECONDS"`
	Debug          bool   `yaml:"debug"           env:"APOLLO_DEBUG"`
}

type ClusteringConfig struct {
	Threshold        float64  `yaml:"threshold"`
	Language         string   `yaml:"language"           env:"APOLLO_LANGUAGE"`
	AbstractMaxChars int      `yaml:"abstract_max_chars"`
	Keywords         []string `yaml:"keywords"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"APOLLO_DB_PATH"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"APOLLO_LOG_LEVEL"`
}

type FeedsConfig struct {
	URLs []string `yaml:"urls" env:"APOLLO_FEEDS"`

	// MaxItems caps the items taken from each feed per run. 0 keeps all.
	MaxItems int `yaml:"max_items"`
}

type ScheduleConfig struct {
	// Spec is a cron expression, e.g. "*/15 * * * *".
	Spec string `yaml:"spec" env:"APOLLO_SCHEDULE"`
}

func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "https://api.apollo.ai",
			TimeoutSeconds: 300,
		},
		Clustering: ClusteringConfig{
			Threshold: 0.8,
			Language:  "de",
		},
		Database: DatabaseConfig{
			Path: "./apollo.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Feeds: FeedsConfig{
			MaxItems: 20,
		},
		Schedule: ScheduleConfig{
			Spec: "*/30 * * * *",
		},
	}
}

// Load reads a YAML config file, merges it over defaults and applies
// environment overrides. If the file does not exist, defaults are used.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Info("No config file found, using defaults", "path", path)
	default:
		return cfg, err
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the client cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("api key is required (set api.key or APOLLO_API_KEY)")
	}
	if c.Clustering.Language != "en" && c.Clustering.Language != "de" {
		return fmt.Errorf("clustering language must be en or de, got %q", c.Clustering.Language)
	}
	if math.IsNaN(c.Clustering.Threshold) || c.Clustering.Threshold < 0 || c.Clustering.Threshold > 1 {
		return fmt.Errorf("clustering threshold must be within [0,1], got %v", c.Clustering.Threshold)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api timeout must be positive, got %d", c.API.TimeoutSeconds)
	}
	return nil
}

// Timeout is the per-call transport timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// SlogLevel maps the configured level name to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
