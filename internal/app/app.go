// Package app provides the top-level application lifecycle. It wires together
// the venue clients, rate source, engine, cache, refresher, and Telegram bot,
// and runs the two long-lived loops until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks running the refresh loop and the bot
// until the context is cancelled or either loop fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Float64("volume", a.cfg.Arbitrage.Volume),
		slog.Float64("min_spread", a.cfg.Arbitrage.MinSpread),
		slog.String("ranking", a.cfg.Arbitrage.Ranking),
		slog.Bool("binance", a.cfg.Binance.Enabled),
		slog.Bool("bybit", a.cfg.Bybit.Enabled),
	)

	deps, cleanup, err := Wire(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Refresher.Run(ctx) })
	g.Go(func() error { return deps.Bot.Run(ctx) })
	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
