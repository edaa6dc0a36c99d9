// Package config loads the agent configuration from a YAML (or JSON) file,
// a .env file and environment overrides, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/spotbot/market"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete agent configuration
type Config struct {
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Notify   NotifyConfig   `json:"notify" yaml:"notify"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Recovery RecoveryConfig `json:"recovery" yaml:"recovery"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// ExchangeConfig selects the venue and instrument
type ExchangeConfig struct {
	Name         string      `json:"name" yaml:"name"` // "binance" or "paper"
	Symbol       string      `json:"symbol" yaml:"symbol"`
	BaseURL      string      `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey       string      `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret    string      `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	RecvWindowMS int64       `json:"recv_window_ms,omitempty" yaml:"recv_window_ms,omitempty"`
	Paper        PaperConfig `json:"paper" yaml:"paper"`
}

// PaperConfig seeds the in-memory exchange
type PaperConfig struct {
	Price        decimal.Decimal `json:"price" yaml:"price"`
	QuoteBalance decimal.Decimal `json:"quote_balance" yaml:"quote_balance"`
	BaseBalance  decimal.Decimal `json:"base_balance" yaml:"base_balance"`
}

// TradingConfig contains the strategy and loop parameters
type TradingConfig struct {
	TradeAmountQuote decimal.Decimal `json:"trade_amount_quote" yaml:"trade_amount_quote"`
	BuyDipFraction   decimal.Decimal `json:"buy_dip_fraction" yaml:"buy_dip_fraction"`
	SellPumpFraction decimal.Decimal `json:"sell_pump_fraction" yaml:"sell_pump_fraction"`
	PollInterval     time.Duration   `json:"poll_interval" yaml:"poll_interval"`
	BackoffMax       time.Duration   `json:"backoff_max,omitempty" yaml:"backoff_max,omitempty"` // 0 disables backoff
}

type LogConfig struct {
	File  string `json:"file" yaml:"file"`
	Level string `json:"level" yaml:"level"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token,omitempty" yaml:"bot_token,omitempty"`
	ChatID   string `json:"chat_id,omitempty" yaml:"chat_id,omitempty"`
	Proxy    string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type RecoveryConfig struct {
	Source    string `json:"source" yaml:"source"` // "log" or "journal"
	Reconcile bool   `json:"reconcile" yaml:"reconcile"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns a configuration with the classic 1% dip / 5% pump setup
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Name:         "binance",
			Symbol:       "BTCUSDT",
			RecvWindowMS: 5000,
			Paper: PaperConfig{
				Price:        decimal.NewFromInt(50000),
				QuoteBalance: decimal.NewFromInt(1000),
				BaseBalance:  decimal.Zero,
			},
		},
		Trading: TradingConfig{
			TradeAmountQuote: decimal.NewFromInt(20),
			BuyDipFraction:   decimal.New(1, -2),
			SellPumpFraction: decimal.New(5, -2),
			PollInterval:     60 * time.Second,
		},
		Log: LogConfig{
			File:  "spotbot.log",
			Level: "info",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Recovery: RecoveryConfig{
			Source:    "log",
			Reconcile: true,
		},
	}
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return cfg, nil
}

// Load reads path (when set), the .env file and the environment, then
// validates the result.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dec := func(key string, dst *decimal.Decimal) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("EXCHANGE", &c.Exchange.Name)
	str("SYMBOL", &c.Exchange.Symbol)
	str("BINANCE_API_KEY", &c.Exchange.APIKey)
	str("BINANCE_API_SECRET", &c.Exchange.APISecret)
	str("BINANCE_API_BASE", &c.Exchange.BaseURL)
	str("TELEGRAM_BOT_TOKEN", &c.Notify.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID)
	str("HTTPS_PROXY", &c.Notify.Telegram.Proxy)
	str("LOG_FILE", &c.Log.File)
	str("LOG_LEVEL", &c.Log.Level)

	if err := dec("TRADE_AMOUNT_QUOTE", &c.Trading.TradeAmountQuote); err != nil {
		return err
	}
	if err := dec("BUY_DIP_FRACTION", &c.Trading.BuyDipFraction); err != nil {
		return err
	}
	if err := dec("SELL_PUMP_FRACTION", &c.Trading.SellPumpFraction); err != nil {
		return err
	}
	return dur("POLL_INTERVAL", &c.Trading.PollInterval)
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Exchange.Name {
	case "binance":
	case "paper":
		if _, ok := market.Instruments[c.Exchange.Symbol]; !ok {
			return fmt.Errorf("unknown paper instrument: %s", c.Exchange.Symbol)
		}
		if !c.Exchange.Paper.Price.IsPositive() {
			return fmt.Errorf("exchange.paper.price must be positive")
		}
		if c.Exchange.Paper.QuoteBalance.IsNegative() || c.Exchange.Paper.BaseBalance.IsNegative() {
			return fmt.Errorf("exchange.paper balances must not be negative")
		}
	default:
		return fmt.Errorf("exchange.name must be 'binance' or 'paper'")
	}
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange.symbol is required")
	}
	if c.Exchange.RecvWindowMS < 0 || c.Exchange.RecvWindowMS > 60000 {
		return fmt.Errorf("exchange.recv_window_ms must be between 0 and 60000")
	}

	t := c.Trading
	if !t.TradeAmountQuote.IsPositive() {
		return fmt.Errorf("trading.trade_amount_quote must be positive")
	}
	if t.BuyDipFraction.IsNegative() || t.BuyDipFraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("trading.buy_dip_fraction must be in [0, 1)")
	}
	if t.SellPumpFraction.IsNegative() {
		return fmt.Errorf("trading.sell_pump_fraction must not be negative")
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be positive")
	}
	if t.BackoffMax < 0 {
		return fmt.Errorf("trading.backoff_max must not be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" {
			return fmt.Errorf("journal trades_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch c.Recovery.Source {
	case "", "log":
		if c.Log.File == "" {
			return fmt.Errorf("recovery from the log requires log.file")
		}
	case "journal":
		if c.Journal.Type != "sqlite" {
			return fmt.Errorf("recovery.source 'journal' requires the sqlite journal")
		}
	default:
		return fmt.Errorf("recovery.source must be 'log' or 'journal'")
	}
	return nil
}

// CheckCredentials reports missing exchange credentials for live trading.
func (c *Config) CheckCredentials() error {
	if c.Exchange.Name != "binance" {
		return nil
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("binance api_key and api_secret are required (BINANCE_API_KEY, BINANCE_API_SECRET)")
	}
	return nil
}
