package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stepper/journal"
	"github.com/rustyeddy/stepper/logging"
	"github.com/rustyeddy/stepper/market/indicators"
	"github.com/rustyeddy/stepper/risk"
	"github.com/rustyeddy/stepper/sim"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config represents the complete stepper configuration
type Config struct {
	Session SessionConfig  `json:"session" yaml:"session"`
	Data    DataConfig     `json:"data" yaml:"data"`
	Journal JournalConfig  `json:"journal" yaml:"journal"`
	Logging logging.Config `json:"logging" yaml:"logging"`
	Metrics MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// SessionConfig contains the game rules
type SessionConfig struct {
	ID            string  `json:"id,omitempty" yaml:"id,omitempty"` // resume this session instead of the active one
	Window        int     `json:"window" yaml:"window"`
	MaxTurns      int     `json:"max_turns" yaml:"max_turns"`
	Leverage      float64 `json:"leverage" yaml:"leverage"`
	PositionRatio float64 `json:"position_ratio" yaml:"position_ratio"`
	Seed          int64   `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 means time seeded

	// Indicators are chart overlays such as "ema:20" or "sma:50".
	Indicators []string `json:"indicators,omitempty" yaml:"indicators,omitempty"`
}

// DataConfig selects the candle feed. Without a path a random walk is
// generated.
type DataConfig struct {
	Path          string  `json:"path,omitempty" yaml:"path,omitempty"`
	RandomCandles int     `json:"random_candles" yaml:"random_candles"`
	RandomSeed    int64   `json:"random_seed" yaml:"random_seed"`
	StartPrice    float64 `json:"start_price" yaml:"start_price"`
	Volatility    float64 `json:"volatility" yaml:"volatility"`
	Interval      string  `json:"interval" yaml:"interval"` // e.g. "1h"
}

// ParseInterval converts the interval string to time.Duration
func (d DataConfig) ParseInterval() (time.Duration, error) {
	if d.Interval == "" {
		return time.Hour, nil
	}
	return time.ParseDuration(d.Interval)
}

// JournalConfig contains trade log parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // sqlite, csv, postgres, redis or memory
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSVPath       string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
	PostgresDSN   string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

func (j JournalConfig) Options() journal.Options {
	return journal.Options{
		Type:          j.Type,
		DBPath:        j.DBPath,
		CSVPath:       j.CSVPath,
		PostgresDSN:   j.PostgresDSN,
		RedisAddr:     j.RedisAddr,
		RedisPassword: j.RedisPassword,
		RedisDB:       j.RedisDB,
		RedisPrefix:   j.RedisPrefix,
	}
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Load reads path (or starts from Default when path is empty), overlays
// the environment and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseFile fills the defaults with whatever the file sets.
func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads envFile when it exists, then overrides fields from
// STEPPER_* variables.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("STEPPER_DATA_PATH", &c.Data.Path)
	str("STEPPER_JOURNAL_TYPE", &c.Journal.Type)
	str("STEPPER_DB_PATH", &c.Journal.DBPath)
	str("STEPPER_CSV_PATH", &c.Journal.CSVPath)
	str("STEPPER_PG_DSN", &c.Journal.PostgresDSN)
	str("STEPPER_REDIS_ADDR", &c.Journal.RedisAddr)
	str("STEPPER_REDIS_PASSWORD", &c.Journal.RedisPassword)
	str("STEPPER_LOG_LEVEL", &c.Logging.Level)
	str("STEPPER_METRICS_ADDR", &c.Metrics.Addr)
	str("STEPPER_SESSION_ID", &c.Session.ID)

	if v, ok := os.LookupEnv("STEPPER_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STEPPER_REDIS_DB: %w", err)
		}
		c.Journal.RedisDB = n
	}
	if v, ok := os.LookupEnv("STEPPER_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STEPPER_SEED: %w", err)
		}
		c.Session.Seed = n
	}
	return nil
}

// ParseIndicators builds the configured chart overlays.
func (s SessionConfig) ParseIndicators() ([]indicators.Indicator, error) {
	var out []indicators.Indicator
	for _, spec := range s.Indicators {
		ind, err := indicators.Parse(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Session.Window <= 0 {
		return fmt.Errorf("session.window must be positive")
	}
	if c.Session.MaxTurns <= 0 {
		return fmt.Errorf("session.max_turns must be positive")
	}
	if err := risk.ValidateLeverage(c.Session.Leverage); err != nil {
		return fmt.Errorf("session.leverage: %w", err)
	}
	if err := risk.ValidateRatio(c.Session.PositionRatio); err != nil {
		return fmt.Errorf("session.position_ratio: %w", err)
	}
	if _, err := c.Session.ParseIndicators(); err != nil {
		return fmt.Errorf("session.indicators: %w", err)
	}

	if c.Data.Path == "" {
		if need := c.Session.Window + c.Session.MaxTurns; c.Data.RandomCandles < need {
			return fmt.Errorf("data.random_candles must be at least %d", need)
		}
		if c.Data.StartPrice <= 0 {
			return fmt.Errorf("data.start_price must be positive")
		}
		if c.Data.Volatility <= 0 || c.Data.Volatility >= 1 {
			return fmt.Errorf("data.volatility must be between 0 and 1")
		}
	}
	if d, err := c.Data.ParseInterval(); err != nil || d <= 0 {
		return fmt.Errorf("data.interval %q is not a positive duration", c.Data.Interval)
	}

	switch c.Journal.Type {
	case "sqlite", "":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "csv":
		if c.Journal.CSVPath == "" {
			return fmt.Errorf("journal csv_path required for csv type")
		}
	case "postgres":
		if c.Journal.PostgresDSN == "" {
			return fmt.Errorf("journal postgres_dsn required for postgres type")
		}
	case "redis":
		if c.Journal.RedisAddr == "" {
			return fmt.Errorf("journal redis_addr required for redis type")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be one of sqlite, csv, postgres, redis, memory")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Window:        sim.DefaultWindow,
			MaxTurns:      sim.DefaultMaxTurns,
			Leverage:      sim.DefaultLeverage,
			PositionRatio: sim.DefaultPositionRatio,
		},
		Data: DataConfig{
			RandomCandles: 2000,
			RandomSeed:    1,
			StartPrice:    42000,
			Volatility:    0.01,
			Interval:      "1h",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./stepper.db",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}
