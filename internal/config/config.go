// Package config loads the bot configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Modes of trade execution.
const (
	ModeSimulate = "simulate"
	ModeLive     = "live"
)

// Config is the top-level configuration.
type Config struct {
	Mode string `yaml:"mode"`

	ScanInterval    time.Duration `yaml:"scan_interval"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
	AdapterTimeout  time.Duration `yaml:"adapter_timeout"`

	PositionSizeSOL    float64 `yaml:"position_size_sol"`
	MaxPositionSizeSOL float64 `yaml:"max_position_size_sol"`
	MaxPositions       int     `yaml:"max_positions"`

	Entry    EntryConfig    `yaml:"entry"`
	Exits    ExitsConfig    `yaml:"exits"`
	Cooldown CooldownConfig `yaml:"cooldown"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Storage  StorageConfig  `yaml:"storage"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// EntryConfig holds the filter pipeline thresholds.
type EntryConfig struct {
	MinSignals            int           `yaml:"min_signals"`
	StrongTrendPct        float64       `yaml:"strong_trend_pct"`
	StrongPumpPct         float64       `yaml:"strong_pump_pct"`
	MinBuySellRatio       float64       `yaml:"min_buy_sell_ratio"`
	MinPumpPct            float64       `yaml:"min_pump_pct"`
	MaxPumpPct            float64       `yaml:"max_pump_pct"`
	MinLiquidityUSD       float64       `yaml:"min_liquidity_usd"`
	LaunchpadLiquidityUSD float64       `yaml:"launchpad_liquidity_usd"`
	MaxAge                time.Duration `yaml:"max_age"`
	DumpFloorPct          float64       `yaml:"dump_floor_pct"`
	LaunchTopK            int           `yaml:"launch_top_k"`
	SocialTopK            int           `yaml:"social_top_k"`
	GenericTopK           int           `yaml:"generic_top_k"`
}

// RungConfig is one take-profit ladder step.
type RungConfig struct {
	ThresholdPct float64 `yaml:"threshold_pct"`
	SellPct      float64 `yaml:"sell_pct"`
}

// ExitsConfig holds the exit trigger thresholds.
type ExitsConfig struct {
	FlashCrashPct    float64       `yaml:"flash_crash_pct"`
	StopLossPct      float64       `yaml:"stop_loss_pct"`
	TakeProfitLadder []RungConfig  `yaml:"take_profit_ladder"`
	TrailingStopPct  float64       `yaml:"trailing_stop_pct"`
	MaxHold          time.Duration `yaml:"max_hold"`
	MinPnlToHoldPct  float64       `yaml:"min_pnl_to_hold_pct"`
}

// CooldownConfig holds the re-entry blackout windows.
type CooldownConfig struct {
	ProfitExit time.Duration `yaml:"profit_exit"`
	LossExit   time.Duration `yaml:"loss_exit"`
}

// BreakerConfig holds the session risk limits.
type BreakerConfig struct {
	MaxDrawdownSOL      float64 `yaml:"max_drawdown_sol"`
	SessionLossLimitSOL float64 `yaml:"session_loss_limit_sol"`
}

// FeedsConfig holds external feed endpoints.
type FeedsConfig struct {
	ScreenerURL      string        `yaml:"screener_url"`
	ScreenerRPS      float64       `yaml:"screener_rps"`
	ScreenerBurst    int           `yaml:"screener_burst"`
	LaunchStreamURL  string        `yaml:"launch_stream_url"` // empty disables the launch adapter
	ExecutionURL     string        `yaml:"execution_url"`     // live mode swap service
	SimSlippagePct   float64       `yaml:"sim_slippage_pct"`
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`
}

// StorageConfig selects the state store backend.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // "memory" or "postgres"
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional trade analytics sink
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:               ModeSimulate,
		ScanInterval:       30 * time.Second,
		MonitorInterval:    2 * time.Second,
		AdapterTimeout:     10 * time.Second,
		PositionSizeSOL:    0.1,
		MaxPositionSizeSOL: 0.5,
		MaxPositions:       3,
		Entry: EntryConfig{
			MinSignals:            2,
			StrongTrendPct:        25,
			StrongPumpPct:         10,
			MinBuySellRatio:       1.5,
			MinPumpPct:            2,
			MaxPumpPct:            50,
			MinLiquidityUSD:       10000,
			LaunchpadLiquidityUSD: 4000,
			MaxAge:                24 * time.Hour,
			DumpFloorPct:          -2,
			LaunchTopK:            10,
			SocialTopK:            8,
			GenericTopK:           10,
		},
		Exits: ExitsConfig{
			FlashCrashPct: 5,
			StopLossPct:   15,
			TakeProfitLadder: []RungConfig{
				{ThresholdPct: 20, SellPct: 50},
				{ThresholdPct: 40, SellPct: 30},
				{ThresholdPct: 100, SellPct: 20},
			},
			TrailingStopPct: 12,
			MaxHold:         30 * time.Minute,
			MinPnlToHoldPct: 5,
		},
		Cooldown: CooldownConfig{
			ProfitExit: 2 * time.Hour,
			LossExit:   30 * time.Minute,
		},
		Breaker: BreakerConfig{
			MaxDrawdownSOL:      0.5,
			SessionLossLimitSOL: 1.0,
		},
		Feeds: FeedsConfig{
			ScreenerURL:      "https://api.dexscreener.com",
			ScreenerRPS:      4,
			ScreenerBurst:    8,
			SimSlippagePct:   0.5,
			ExecutionTimeout: 20 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		MetricsAddr: ":9109",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations that would break engine invariants.
func (c Config) Validate() error {
	if c.Mode != ModeSimulate && c.Mode != ModeLive {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSimulate, ModeLive, c.Mode)
	}
	if c.Mode == ModeLive && c.Feeds.ExecutionURL == "" {
		return fmt.Errorf("live mode requires feeds.execution_url")
	}
	if c.PositionSizeSOL <= 0 {
		return fmt.Errorf("position_size_sol must be positive")
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive")
	}
	if c.Cooldown.ProfitExit <= c.Cooldown.LossExit {
		return fmt.Errorf("cooldown.profit_exit (%v) must exceed cooldown.loss_exit (%v)",
			c.Cooldown.ProfitExit, c.Cooldown.LossExit)
	}
	if c.Breaker.MaxDrawdownSOL <= 0 {
		return fmt.Errorf("breaker.max_drawdown_sol must be positive")
	}
	if c.Storage.Backend != "memory" && c.Storage.Backend != "postgres" {
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.backend postgres requires storage.postgres_dsn")
	}
	prev := -1.0
	for i, r := range c.Exits.TakeProfitLadder {
		if r.ThresholdPct <= prev {
			return fmt.Errorf("exits.take_profit_ladder must ascend (rung %d)", i)
		}
		if r.SellPct <= 0 || r.SellPct > 100 {
			return fmt.Errorf("exits.take_profit_ladder rung %d sell_pct out of (0,100]", i)
		}
		prev = r.ThresholdPct
	}
	return nil
}
