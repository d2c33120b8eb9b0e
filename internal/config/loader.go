package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBBOT_* environment variable overrides, and
// returns the final Config. A missing config file is not an error: defaults
// plus environment variables are enough to run. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.Token, "ARBBOT_TELEGRAM_TOKEN")
	setStr(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN") // compatibility alias
	setInt64Slice(&cfg.Telegram.ChatIDs, "ARBBOT_TELEGRAM_CHAT_IDS")
	setInt64(&cfg.Telegram.AlertChatID, "ARBBOT_TELEGRAM_ALERT_CHAT_ID")

	// ── Binance ──
	setBool(&cfg.Binance.Enabled, "ARBBOT_BINANCE_ENABLED")
	setStr(&cfg.Binance.APIKey, "ARBBOT_BINANCE_API_KEY")
	setStr(&cfg.Binance.APIKey, "BINANCE_API_KEY") // compatibility alias
	setStr(&cfg.Binance.APISecret, "ARBBOT_BINANCE_API_SECRET")
	setStr(&cfg.Binance.APISecret, "BINANCE_API_SECRET") // compatibility alias

	// ── Bybit ──
	setBool(&cfg.Bybit.Enabled, "ARBBOT_BYBIT_ENABLED")
	setStr(&cfg.Bybit.APIKey, "ARBBOT_BYBIT_API_KEY")
	setStr(&cfg.Bybit.APIKey, "BYBIT_API_KEY") // compatibility alias
	setStr(&cfg.Bybit.APISecret, "ARBBOT_BYBIT_API_SECRET")
	setStr(&cfg.Bybit.APISecret, "BYBIT_API_SECRET") // compatibility alias

	// ── BestChange ──
	setStr(&cfg.BestChange.ZipURL, "ARBBOT_BESTCHANGE_ZIP_URL")
	setStr(&cfg.BestChange.DataDir, "ARBBOT_BESTCHANGE_DATA_DIR")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.Volume, "ARBBOT_ARBITRAGE_VOLUME")
	setFloat64(&cfg.Arbitrage.MinSpread, "ARBBOT_ARBITRAGE_MIN_SPREAD")
	setStr(&cfg.Arbitrage.Ranking, "ARBBOT_ARBITRAGE_RANKING")
	setFloat64(&cfg.Arbitrage.AlertThreshold, "ARBBOT_ARBITRAGE_ALERT_THRESHOLD")

	// ── Poll ──
	setDuration(&cfg.Poll.Interval, "ARBBOT_POLL_INTERVAL")
	setStr(&cfg.Poll.ResyncCron, "ARBBOT_POLL_RESYNC_CRON")

	// ── Notify ──
	setStringSlice(&cfg.Notify.Events, "ARBBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStringSlice(&cfg.Currencies, "ARBBOT_CURRENCIES")
	setStr(&cfg.LogLevel, "ARBBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setInt64Slice(dst *[]int64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]int64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if n, err := strconv.ParseInt(p, 10, 64); err == nil {
				cleaned = append(cleaned, n)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
