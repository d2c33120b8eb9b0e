// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBBOT_* environment variables.
type Config struct {
	Telegram   TelegramConfig   `toml:"telegram"`
	Binance    VenueConfig      `toml:"binance"`
	Bybit      VenueConfig      `toml:"bybit"`
	BestChange BestChangeConfig `toml:"bestchange"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Poll       PollConfig       `toml:"poll"`
	Notify     NotifyConfig     `toml:"notify"`
	Currencies []string         `toml:"currencies"`
	LogLevel   string           `toml:"log_level"`
}

// TelegramConfig holds the bot token and chat access control.
type TelegramConfig struct {
	Token string `toml:"token"`
	// ChatIDs is an allow-list of chats the bot answers in. Empty means the
	// bot answers everyone.
	ChatIDs []int64 `toml:"chat_ids"`
	// AlertChatID receives push alerts for fresh top opportunities. Zero
	// disables push alerts.
	AlertChatID int64 `toml:"alert_chat_id"`
}

// VenueConfig holds credentials and the enable flag for one centralized
// exchange. The API key pair is only needed for the signed fee-schedule
// endpoints.
type VenueConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// BestChangeConfig holds the bulk rate dump source parameters.
type BestChangeConfig struct {
	ZipURL  string `toml:"zip_url"`
	DataDir string `toml:"data_dir"`
}

// ArbitrageConfig holds the engine parameters.
type ArbitrageConfig struct {
	// Volume is the fixed USDT amount pushed through leg 1.
	Volume float64 `toml:"volume"`
	// MinSpread is the inclusion threshold for the ranking metric.
	MinSpread float64 `toml:"min_spread"`
	// Ranking selects the metric candidates are filtered and sorted by:
	// "spread" (percent) or "profit" (absolute USDT).
	Ranking string `toml:"ranking"`
	// AlertThreshold is the ranking-metric value above which a fresh best
	// opportunity triggers a push notification.
	AlertThreshold float64 `toml:"alert_threshold"`
}

// PollConfig holds refresh scheduling parameters.
type PollConfig struct {
	// Interval between full rate+ticker refresh cycles.
	Interval duration `toml:"interval"`
	// ResyncCron re-fetches the symbol universe and fee schedules.
	ResyncCron string `toml:"resync_cron"`
}

// NotifyConfig controls push alert dispatch.
type NotifyConfig struct {
	// Events is an allow-list of event types forwarded to senders. Empty
	// forwards everything.
	Events []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// defaultCurrencies is the tracked asset universe when the config file does
// not override it. These are the assets BestChange quotes against USDT with
// enough volume to matter.
var defaultCurrencies = []string{
	"BTC", "ETH", "USDC", "XRP", "SOL", "LTC", "BCH", "DOGE", "ADA",
	"TRX", "DOT", "MATIC", "AVAX", "XLM", "ETC", "XMR", "DASH", "ZEC",
	"TON", "NOT", "SHIB", "ATOM", "LINK", "UNI", "NEAR",
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Binance: VenueConfig{Enabled: true},
		Bybit:   VenueConfig{Enabled: false},
		BestChange: BestChangeConfig{
			ZipURL:  "http://api.bestchange.ru/info.zip",
			DataDir: "bestchange-data",
		},
		Arbitrage: ArbitrageConfig{
			Volume:         2000,
			MinSpread:      0.4,
			Ranking:        "spread",
			AlertThreshold: 1.0,
		},
		Poll: PollConfig{
			Interval:   duration{60 * time.Second},
			ResyncCron: "0 3 * * *",
		},
		Currencies: defaultCurrencies,
		LogLevel:   "info",
	}
}

// validRankings enumerates the accepted values for Arbitrage.Ranking.
var validRankings = map[string]bool{
	"spread": true,
	"profit": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Telegram.Token) == "" {
		problems = append(problems, "telegram.token is required")
	}
	if !c.Binance.Enabled && !c.Bybit.Enabled {
		problems = append(problems, "at least one venue must be enabled")
	}
	if c.Binance.Enabled && (c.Binance.APIKey == "" || c.Binance.APISecret == "") {
		problems = append(problems, "binance.api_key and binance.api_secret are required when binance is enabled")
	}
	if c.Bybit.Enabled && (c.Bybit.APIKey == "" || c.Bybit.APISecret == "") {
		problems = append(problems, "bybit.api_key and bybit.api_secret are required when bybit is enabled")
	}
	if c.BestChange.ZipURL == "" {
		problems = append(problems, "bestchange.zip_url is required")
	}
	if c.Arbitrage.Volume <= 0 {
		problems = append(problems, "arbitrage.volume must be positive")
	}
	if !validRankings[c.Arbitrage.Ranking] {
		problems = append(problems, fmt.Sprintf("arbitrage.ranking %q is not one of: spread, profit", c.Arbitrage.Ranking))
	}
	if c.Poll.Interval.Duration < 5*time.Second {
		problems = append(problems, "poll.interval must be at least 5s")
	}
	if strings.TrimSpace(c.Poll.ResyncCron) == "" {
		problems = append(problems, "poll.resync_cron is required")
	}
	if len(c.Currencies) == 0 {
		problems = append(problems, "currencies must not be empty")
	}
	if !validLogLevels[c.LogLevel] {
		problems = append(problems, fmt.Sprintf("log_level %q is not one of: debug, info, warn, error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ChatAllowed reports whether the bot should answer in the given chat.
func (c *TelegramConfig) ChatAllowed(chatID int64) bool {
	if len(c.ChatIDs) == 0 {
		return true
	}
	for _, id := range c.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}
