package app

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/bot"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/cache"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/config"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/engine"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/notify"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/pipeline"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/platform/bestchange"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/platform/binance"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/platform/bybit"
)

// Dependencies bundles the long-running pieces the application starts. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Refresher *pipeline.Refresher
	Bot       *bot.Bot
}

// Wire constructs every concrete dependency from the configuration: the
// Telegram API client (shared by the bot and the alert sender), the enabled
// venue clients, the rate dump client, engine, cache, and refresher.
func Wire(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: telegram: %w", err)
	}

	var venues []domain.Exchange
	if cfg.Binance.Enabled {
		venues = append(venues, binance.New(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Currencies))
	}
	if cfg.Bybit.Enabled {
		venues = append(venues, bybit.New(cfg.Bybit.APIKey, cfg.Bybit.APISecret, cfg.Currencies))
	}

	rates := bestchange.New(cfg.BestChange.ZipURL, cfg.BestChange.DataDir, cfg.Currencies)

	eng := engine.New(engine.Params{
		Volume:       cfg.Arbitrage.Volume,
		MinThreshold: cfg.Arbitrage.MinSpread,
		Ranking:      engine.Ranking(cfg.Arbitrage.Ranking),
	}, logger)

	store := cache.New()

	// Push alerts only when an alert chat is configured.
	var alerter pipeline.Alerter
	if cfg.Telegram.AlertChatID != 0 {
		senders := []notify.Sender{notify.NewTelegramSender(api, cfg.Telegram.AlertChatID)}
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		alerter = notify.NewAlert(notifier, eng.Rank, cfg.Arbitrage.AlertThreshold)
	}

	refresher, err := pipeline.New(pipeline.Config{
		Rates:      rates,
		Venues:     venues,
		Engine:     eng,
		Cache:      store,
		Alerter:    alerter,
		Interval:   cfg.Poll.Interval.Duration,
		ResyncCron: cfg.Poll.ResyncCron,
		Logger:     logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: pipeline: %w", err)
	}

	deps := &Dependencies{
		Refresher: refresher,
		Bot:       bot.New(api, cfg.Telegram, store, eng, logger),
	}
	return deps, cleanup, nil
}
