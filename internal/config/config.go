package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"SwingScout/internal/model"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	DataSource struct {
		Provider  string        `yaml:"provider"` // yahoo | rest | mock
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		RateLimit float64       `yaml:"rate_limit"` // requests per second
		Timeout   time.Duration `yaml:"timeout"`
		CacheTTL  time.Duration `yaml:"cache_ttl"`
	} `yaml:"data_source"`
	Schedule struct {
		UpdateFrequencyMinutes int `yaml:"update_frequency_minutes"`
	} `yaml:"schedule"`
	Scanner struct {
		Workers       int           `yaml:"workers"`
		TopN          int           `yaml:"top_n"`
		Seed          uint64        `yaml:"seed"` // 0 = entropy
		SymbolTimeout time.Duration `yaml:"symbol_timeout"`
		LookbackDays  int           `yaml:"lookback_days"`
	} `yaml:"scanner"`
	Markets struct {
		Indian []model.Stock `yaml:"indian"`
		US     []model.Stock `yaml:"us"`
	} `yaml:"markets"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level    string `yaml:"level"`
		Encoding string `yaml:"encoding"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
	// Timezone is the IANA zone that defines a trading day for date_added and
	// days_elapsed. "Local" uses the host zone.
	Timezone string `yaml:"timezone"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ResolvePath picks the config path: explicit flag, then CONFIG_PATH, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("UPDATE_FREQUENCY_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPDATE_FREQUENCY_MINUTES: %w", err)
		}
		c.Schedule.UpdateFrequencyMinutes = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/swingscout.db"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RateLimit == 0 {
		c.DataSource.RateLimit = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 15 * time.Second
	}
	if c.DataSource.CacheTTL == 0 {
		c.DataSource.CacheTTL = time.Minute
	}
	if c.Schedule.UpdateFrequencyMinutes == 0 {
		c.Schedule.UpdateFrequencyMinutes = 30
	}
	if c.Scanner.Workers == 0 {
		c.Scanner.Workers = 4
	}
	if c.Scanner.TopN == 0 {
		c.Scanner.TopN = 10
	}
	if c.Scanner.SymbolTimeout == 0 {
		c.Scanner.SymbolTimeout = 20 * time.Second
	}
	if c.Scanner.LookbackDays == 0 {
		c.Scanner.LookbackDays = 365
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Universe returns the configured symbols for a market.
func (c *Config) Universe(m model.Market) []model.Stock {
	if m == model.MarketIndian {
		return c.Markets.Indian
	}
	return c.Markets.US
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.DataSource.RateLimit < 0 {
		return fmt.Errorf("data_source.rate_limit must not be negative")
	}
	if c.Schedule.UpdateFrequencyMinutes <= 0 {
		return fmt.Errorf("schedule.update_frequency_minutes must be positive")
	}
	if c.Scanner.Workers <= 0 || c.Scanner.TopN <= 0 {
		return fmt.Errorf("scanner.workers and scanner.top_n must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Scanner.LookbackDays < 60 {
		return fmt.Errorf("scanner.lookback_days must be at least 60")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}
