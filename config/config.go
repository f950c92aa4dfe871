// Package config loads the pm configuration.
//
// Values come, by increasing precedence, from the defaults, the YAML file,
// a .env file and the PM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Store struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"store"`
	Undo struct {
		Window time.Duration `yaml:"window"`
	} `yaml:"undo"`
	ExchangeRate string `yaml:"exchange_rate"` // KES per USD of a fresh ledger
	Log          struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Backup struct {
		Dir      string `yaml:"dir"`
		Schedule string `yaml:"schedule"`
	} `yaml:"backup"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	// Environment variable overrides
	if v := os.Getenv("PM_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("PM_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PM_UNDO_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PM_UNDO_WINDOW: %w", err)
		}
		cfg.Undo.Window = d
	}
	if v := os.Getenv("PM_EXCHANGE_RATE"); v != "" {
		cfg.ExchangeRate = v
	}
	if v := os.Getenv("PM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PM_BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}
	if v := os.Getenv("PM_BACKUP_SCHEDULE"); v != "" {
		cfg.Backup.Schedule = v
	}

	// Defaults
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverFile
	}
	if cfg.Store.Path == "" {
		if cfg.Store.Driver == DriverSQLite {
			cfg.Store.Path = "profit.db"
		} else {
			cfg.Store.Path = "profit.json"
		}
	}
	if cfg.Undo.Window == 0 {
		cfg.Undo.Window = 5 * time.Second
	}
	if cfg.ExchangeRate == "" {
		cfg.ExchangeRate = "130"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "backups"
	}
	if cfg.Backup.Schedule == "" {
		cfg.Backup.Schedule = "0 0 23 * * *"
	}

	return cfg, nil
}

// Rate returns the configured exchange rate.
func (c *Config) Rate() (decimal.Decimal, error) {
	return decimal.NewFromString(c.ExchangeRate)
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	var errs error
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	default:
		errs = errors.Join(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverFile, DriverSQLite, c.Store.Driver))
	}
	if c.Store.Path == "" {
		errs = errors.Join(errs, fmt.Errorf("store.path is required"))
	}
	if c.Undo.Window <= 0 {
		errs = errors.Join(errs, fmt.Errorf("undo.window must be positive"))
	}
	if r, err := c.Rate(); err != nil || !r.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("exchange_rate must be a positive number, got %q", c.ExchangeRate))
	}
	if _, err := cron.NewParser(cronFields).Parse(c.Backup.Schedule); err != nil {
		errs = errors.Join(errs, fmt.Errorf("backup.schedule: %w", err))
	}
	return errs
}

// cronFields is the schedule format: cron with seconds.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
