package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FallScope/internal/model"
)

// DefaultSymbols is the Nifty 50 subset analyzed when no universe is configured.
var DefaultSymbols = []string{
	"RELIANCE.NS", "TCS.NS", "HDFCBANK.NS", "INFY.NS", "ICICIBANK.NS",
	"HINDUNILVR.NS", "HDFC.NS", "BHARTIARTL.NS", "KOTAKBANK.NS", "SBIN.NS",
}

// Providers accepted in data_source.provider.
const (
	ProviderYahoo     = "yahoo"
	ProviderFinanceGo = "financego"
	ProviderAlpaca    = "alpaca"
	ProviderMock      = "mock"
)

var ErrTelegramNotConfigured = errors.New("telegram.bot_token and telegram.chat_id are required")

// Config holds all application configuration.
type Config struct {
	Analysis struct {
		FallThresholdPct   float64 `yaml:"fall_threshold_pct" validate:"gt=0"`
		ForwardHorizonDays int     `yaml:"forward_horizon_days" validate:"min=1,max=30"`
		DisplayRangeDays   int     `yaml:"display_range_days" validate:"min=1,max=365"`
		Workers            int     `yaml:"workers" validate:"gte=0"`
	} `yaml:"analysis"`
	Universe struct {
		Symbols []string `yaml:"symbols" validate:"min=1,dive,required"`
		Start   string   `yaml:"start" validate:"required,datetime=2006-01-02"`
		End     string   `yaml:"end" validate:"required,datetime=2006-01-02"`
	} `yaml:"universe"`
	DataSource struct {
		Provider          string  `yaml:"provider" validate:"oneof=yahoo financego alpaca mock"`
		BaseURL           string  `yaml:"base_url" validate:"omitempty,url"`
		AlpacaAPIKey      string  `yaml:"alpaca_api_key"`
		AlpacaSecretKey   string  `yaml:"alpaca_secret_key"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
		MaxRetries        int     `yaml:"max_retries" validate:"gte=0,lte=10"`
		Workers           int     `yaml:"workers" validate:"gte=0"`
	} `yaml:"data_source"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		SQLitePath string        `yaml:"sqlite_path"`
		MaxAge     time.Duration `yaml:"max_age"`
	} `yaml:"cache"`
	Telegram struct {
		BotToken  string `yaml:"bot_token"`
		ChatID    int64  `yaml:"chat_id"`
		MaxCharts int    `yaml:"max_charts" validate:"gte=0,lte=10"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Output struct {
		CSVDir   string `yaml:"csv_dir"`
		ChartDir string `yaml:"chart_dir"`
	} `yaml:"output"`
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=console json"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file and the YAML config at path over the
// defaults, then applies environment variable overrides. Keys absent from the
// file keep their default; an explicit zero is kept. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
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

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.DataSource.AlpacaAPIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.DataSource.AlpacaSecretKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Cache.SQLitePath = v
		c.Cache.Enabled = true
	}
	if v := os.Getenv("FALLSCOPE_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("FALLSCOPE_SYMBOLS"); v != "" {
		c.Universe.Symbols = SplitSymbols(v)
	}
	if v := os.Getenv("FALLSCOPE_START"); v != "" {
		c.Universe.Start = v
	}
	if v := os.Getenv("FALLSCOPE_END"); v != "" {
		c.Universe.End = v
	}
	if v := os.Getenv("FALLSCOPE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FALLSCOPE_THRESHOLD: %w", err)
		}
		c.Analysis.FallThresholdPct = f
	}
	if v := os.Getenv("FALLSCOPE_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FALLSCOPE_HORIZON: %w", err)
		}
		c.Analysis.ForwardHorizonDays = n
	}
	if v := os.Getenv("FALLSCOPE_CRON"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("FALLSCOPE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	c := &Config{}
	c.Analysis.FallThresholdPct = 5.0
	c.Analysis.ForwardHorizonDays = 7
	c.Analysis.DisplayRangeDays = 30
	c.Universe.Symbols = append([]string(nil), DefaultSymbols...)
	c.Universe.Start = "2023-01-01"
	c.Universe.End = "2023-12-31"
	c.DataSource.Provider = ProviderYahoo
	c.DataSource.RequestsPerSecond = 2
	c.DataSource.MaxRetries = 2
	c.DataSource.Workers = 4
	c.Cache.SQLitePath = "data/fallscope.db"
	c.Telegram.MaxCharts = 3
	c.Schedule.Cron = "0 30 18 * * 1-5"
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}

// Validate checks field ranges and the date window.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	start, end, err := c.Window()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("invalid config: universe.start %s must be before universe.end %s",
			c.Universe.Start, c.Universe.End)
	}
	if c.DataSource.Provider == ProviderAlpaca &&
		(c.DataSource.AlpacaAPIKey == "" || c.DataSource.AlpacaSecretKey == "") {
		return fmt.Errorf("invalid config: alpaca provider needs ALPACA_API_KEY and ALPACA_SECRET_KEY")
	}
	return nil
}

// ValidateTelegram checks the settings needed to deliver to Telegram.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" || c.Telegram.ChatID == 0 {
		return ErrTelegramNotConfigured
	}
	return nil
}

// Window parses the universe date range.
func (c *Config) Window() (start, end time.Time, err error) {
	start, err = time.Parse(model.DateLayout, c.Universe.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("universe.start: %w", err)
	}
	end, err = time.Parse(model.DateLayout, c.Universe.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("universe.end: %w", err)
	}
	return start, end, nil
}

// SplitSymbols parses a comma or whitespace separated symbol list.
func SplitSymbols(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Universe.Symbols = append([]string(nil), c.Universe.Symbols...)
	cp.Telegram.BotToken = mask(c.Telegram.BotToken)
	cp.DataSource.AlpacaAPIKey = mask(c.DataSource.AlpacaAPIKey)
	cp.DataSource.AlpacaSecretKey = mask(c.DataSource.AlpacaSecretKey)
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
