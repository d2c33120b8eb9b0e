// Package pipeline runs the refresh loop: on a fixed interval it pulls a
// fresh peer rate dump and venue tickers, recomputes the ranked opportunity
// list, and publishes it to the cache wholesale. A failed cycle leaves the
// previous snapshot untouched; the loop self-heals on the next tick.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/cache"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/engine"
)

// RateSource fetches the peer rate table.
type RateSource interface {
	GetRateTable(ctx context.Context) (domain.RateTable, error)
}

// Alerter is notified when a refresh produces a different best opportunity
// than the previous one. Implementations decide whether it is worth a push.
type Alerter interface {
	AlertBestOpportunity(ctx context.Context, opp domain.Opportunity)
}

// Refresher owns the market state for every venue and drives the cycle.
// All mutation happens on the Run goroutine; readers only ever touch the
// published cache.
type Refresher struct {
	rates    RateSource
	venues   []venueState
	engine   *engine.Engine
	cache    *cache.OpportunityCache
	alerter  Alerter
	interval time.Duration
	resync   cron.Schedule
	logger   *slog.Logger

	lastBestID string
}

// venueState is one venue's symbol universe and fee schedules, refreshed
// daily and mutated in place by the ticker pass each cycle.
type venueState struct {
	venue  domain.Exchange
	market map[string]*domain.AssetQuote
	fees   map[string][]domain.FeeOption
}

// Config bundles the Refresher inputs.
type Config struct {
	Rates      RateSource
	Venues     []domain.Exchange
	Engine     *engine.Engine
	Cache      *cache.OpportunityCache
	Alerter    Alerter // optional
	Interval   time.Duration
	ResyncCron string
	Logger     *slog.Logger
}

// New creates a Refresher. The resync cron spec is validated here.
func New(cfg Config) (*Refresher, error) {
	schedule, err := cron.ParseStandard(cfg.ResyncCron)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse resync cron %q: %w", cfg.ResyncCron, err)
	}

	venues := make([]venueState, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venues = append(venues, venueState{venue: v})
	}

	return &Refresher{
		rates:    cfg.Rates,
		venues:   venues,
		engine:   cfg.Engine,
		cache:    cfg.Cache,
		alerter:  cfg.Alerter,
		interval: cfg.Interval,
		resync:   schedule,
		logger:   cfg.Logger.With(slog.String("component", "refresher")),
	}, nil
}

// Run blocks until ctx is cancelled. The initial symbol/fee sync is fatal
// (there is nothing to serve without it); everything after that is logged
// and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.resyncVenues(ctx); err != nil {
		return fmt.Errorf("pipeline: initial venue sync: %w", err)
	}

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	nextResync := r.resync.Next(time.Now())
	r.logger.Info("refresh loop started",
		slog.Duration("interval", r.interval),
		slog.Time("next_resync", nextResync),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if now.After(nextResync) {
				if err := r.resyncVenues(ctx); err != nil {
					r.logger.Error("venue resync failed, keeping previous universe",
						slog.String("error", err.Error()),
					)
				}
				nextResync = r.resync.Next(now)
			}
			r.refresh(ctx)
		}
	}
}

// resyncVenues re-fetches every venue's symbol universe and fee schedules in
// parallel. Any failure aborts the sync as a whole; the previous state (if
// any) stays in place.
func (r *Refresher) resyncVenues(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range r.venues {
		state := &r.venues[i]
		g.Go(func() error {
			market, err := state.venue.GetMarketData(ctx)
			if err != nil {
				return err
			}
			fees, err := state.venue.GetCurrenciesFees(ctx)
			if err != nil {
				return err
			}
			state.market = market
			state.fees = fees
			r.logger.Info("venue universe synced",
				slog.String("venue", state.venue.Name()),
				slog.Int("pairs", len(market)),
				slog.Int("assets_with_fees", len(fees)),
			)
			return nil
		})
	}
	return g.Wait()
}

// refresh runs one full cycle: rate dump + tickers, engine pass per venue,
// wholesale publish. Failures abort the cycle, keeping the previous snapshot.
func (r *Refresher) refresh(ctx context.Context) {
	started := time.Now()
	logger := r.logger.With(slog.String("cycle", uuid.NewString()))
	logger.Debug("refresh cycle started")

	var table domain.RateTable
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		table, err = r.rates.GetRateTable(gctx)
		return err
	})
	for i := range r.venues {
		state := &r.venues[i]
		g.Go(func() error {
			tickers, err := state.venue.GetTickersData(gctx)
			if err != nil {
				return fmt.Errorf("%s tickers: %w", state.venue.Name(), err)
			}
			state.applyTickers(tickers)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("refresh cycle aborted, previous snapshot retained",
			slog.String("error", err.Error()),
		)
		return
	}

	var combined []domain.Opportunity
	for i := range r.venues {
		state := &r.venues[i]
		opps := r.engine.ComputeOpportunities(state.venue.Name(), state.market, table, state.fees)
		combined = append(combined, opps...)
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return r.engine.Rank(combined[i]) > r.engine.Rank(combined[j])
	})

	r.cache.Publish(combined, time.Now())
	logger.Info("refresh cycle complete",
		slog.Int("opportunities", len(combined)),
		slog.Int("pair_keys", len(table)),
		slog.Duration("took", time.Since(started)),
	)

	r.maybeAlert(ctx, combined)
}

// maybeAlert pushes the new best opportunity when it differs from the one
// announced last. The alerter applies its own threshold.
func (r *Refresher) maybeAlert(ctx context.Context, opportunities []domain.Opportunity) {
	if r.alerter == nil || len(opportunities) == 0 {
		return
	}
	best := opportunities[0]
	if best.ID == r.lastBestID {
		return
	}
	r.lastBestID = best.ID
	r.alerter.AlertBestOpportunity(ctx, best)
}

// applyTickers resets the cycle's quotes and fills them from a fresh ticker
// batch. Symbols missing from the batch stay unobserved and are skipped by
// the engine.
func (s *venueState) applyTickers(tickers []domain.TickerData) {
	for _, quote := range s.market {
		quote.BidPrice, quote.AskPrice = 0, 0
	}
	for _, t := range tickers {
		if quote, ok := s.market[t.Symbol]; ok {
			quote.BidPrice = t.BidPrice
			quote.AskPrice = t.AskPrice
		}
	}
}
