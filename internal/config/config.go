package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/berserkkv/traderrs/internal/model"
)

// Duration accepts Go duration notation ("60s", "2s") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all application configuration.
type Config struct {
	Trading struct {
		InitialCapital              float64 `yaml:"initial_capital"`
		DeactivationFloor           float64 `yaml:"deactivation_floor"`
		Leverage                    float64 `yaml:"leverage"`
		TakeProfitRatio             float64 `yaml:"take_profit_ratio"`
		StopLossRatio               float64 `yaml:"stop_loss_ratio"`
		TrailingStopActivationPoint float64 `yaml:"trailing_stop_activation_point"`
	} `yaml:"trading"`
	Fleet struct {
		Timeframes []model.Timeframe `yaml:"timeframes"`
		Strategies []string          `yaml:"strategies"`
		Symbols    []model.Symbol    `yaml:"symbols"`
	} `yaml:"fleet"`
	Market struct {
		Connector   string `yaml:"connector"`
		APIKey      string `yaml:"api_key"`
		SecretKey   string `yaml:"secret_key"`
		CandleLimit int    `yaml:"candle_limit"`
		MaxInFlight int    `yaml:"max_in_flight"`
	} `yaml:"market"`
	Schedule struct {
		EntryInterval   Duration `yaml:"entry_interval"`
		SettleDelay     Duration `yaml:"settle_delay"`
		MonitorInterval Duration `yaml:"monitor_interval"`
		RolloverCron    string   `yaml:"rollover_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	LogFile string `yaml:"log_file"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		cfg.Market.SecretKey = v
	}
	if v := os.Getenv("CONNECTOR"); v != "" {
		cfg.Market.Connector = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("INITIAL_CAPITAL"); v != "" {
		var capital float64
		if _, err := fmt.Sscanf(v, "%f", &capital); err == nil {
			cfg.Trading.InitialCapital = capital
		}
	}
	if v := os.Getenv("LEVERAGE"); v != "" {
		var leverage float64
		if _, err := fmt.Sscanf(v, "%f", &leverage); err == nil {
			cfg.Trading.Leverage = leverage
		}
	}

	// Defaults
	if cfg.Trading.InitialCapital == 0 {
		cfg.Trading.InitialCapital = 100
	}
	if cfg.Trading.DeactivationFloor == 0 {
		cfg.Trading.DeactivationFloor = 85
	}
	if cfg.Trading.Leverage == 0 {
		cfg.Trading.Leverage = 10
	}
	if cfg.Trading.TakeProfitRatio == 0 {
		cfg.Trading.TakeProfitRatio = 0.8
	}
	if cfg.Trading.StopLossRatio == 0 {
		cfg.Trading.StopLossRatio = 0.4
	}
	if cfg.Trading.TrailingStopActivationPoint == 0 {
		cfg.Trading.TrailingStopActivationPoint = 0.1
	}
	if len(cfg.Fleet.Timeframes) == 0 {
		cfg.Fleet.Timeframes = []model.Timeframe{
			model.Timeframe1m, model.Timeframe5m, model.Timeframe15m,
			model.Timeframe30m, model.Timeframe1h,
		}
	}
	if len(cfg.Fleet.Strategies) == 0 {
		cfg.Fleet.Strategies = []string{"EmaMacd", "EmaMacd2", "EmaBounce"}
	}
	if len(cfg.Fleet.Symbols) == 0 {
		cfg.Fleet.Symbols = []model.Symbol{
			model.SymbolSol, model.SymbolBtc, model.SymbolEth, model.SymbolBnb,
		}
	}
	if cfg.Market.Connector == "" {
		cfg.Market.Connector = "binance"
	}
	if cfg.Market.CandleLimit == 0 {
		cfg.Market.CandleLimit = 202
	}
	if cfg.Market.MaxInFlight == 0 {
		cfg.Market.MaxInFlight = 20
	}
	if cfg.Schedule.EntryInterval == 0 {
		cfg.Schedule.EntryInterval = Duration(60 * time.Second)
	}
	if cfg.Schedule.SettleDelay == 0 {
		cfg.Schedule.SettleDelay = Duration(3 * time.Second)
	}
	if cfg.Schedule.MonitorInterval == 0 {
		cfg.Schedule.MonitorInterval = Duration(2 * time.Second)
	}
	if cfg.Schedule.RolloverCron == "" {
		cfg.Schedule.RolloverCron = "0 0 0 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/traderrs.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	return cfg, nil
}

// Validate checks that all required fields are consistent.
func (c *Config) Validate() error {
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("trading.initial_capital must be positive")
	}
	if c.Trading.DeactivationFloor < 0 || c.Trading.DeactivationFloor >= c.Trading.InitialCapital {
		return fmt.Errorf("trading.deactivation_floor must be in [0, initial_capital)")
	}
	if c.Trading.Leverage <= 0 {
		return fmt.Errorf("trading.leverage must be positive")
	}
	if c.Trading.TakeProfitRatio <= 0 || c.Trading.StopLossRatio <= 0 {
		return fmt.Errorf("trading take-profit and stop-loss ratios must be positive")
	}
	for _, tf := range c.Fleet.Timeframes {
		if tf.Minutes() == 0 {
			return fmt.Errorf("fleet.timeframes: unknown timeframe %q", tf)
		}
	}
	if len(c.Fleet.Strategies) == 0 || len(c.Fleet.Symbols) == 0 {
		return fmt.Errorf("fleet.strategies and fleet.symbols must not be empty")
	}
	if c.Market.Connector != "binance" && c.Market.Connector != "mock" {
		return fmt.Errorf("market.connector must be binance or mock, got %q", c.Market.Connector)
	}
	// EMA200 plus the MACD warm-up needs a deep history window.
	if c.Market.CandleLimit < 202 {
		return fmt.Errorf("market.candle_limit must be at least 202")
	}
	if c.Market.MaxInFlight <= 0 {
		return fmt.Errorf("market.max_in_flight must be positive")
	}
	if c.Schedule.EntryInterval <= 0 || c.Schedule.MonitorInterval <= 0 {
		return fmt.Errorf("schedule intervals must be positive")
	}
	return nil
}
