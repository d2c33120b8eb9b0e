package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/cache"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/engine"
)

type fakeRates struct {
	table domain.RateTable
	err   error
}

func (f *fakeRates) GetRateTable(ctx context.Context) (domain.RateTable, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

type fakeVenue struct {
	name    string
	tickers []domain.TickerData
	tickErr error
}

func (f *fakeVenue) Name() string { return f.name }

func (f *fakeVenue) GetMarketData(ctx context.Context) (map[string]*domain.AssetQuote, error) {
	return map[string]*domain.AssetQuote{
		"ABCUSDT": {Symbol: "ABCUSDT", Asset: "ABC"},
	}, nil
}

func (f *fakeVenue) GetCurrenciesFees(ctx context.Context) (map[string][]domain.FeeOption, error) {
	return map[string][]domain.FeeOption{}, nil
}

func (f *fakeVenue) GetTickersData(ctx context.Context) ([]domain.TickerData, error) {
	if f.tickErr != nil {
		return nil, f.tickErr
	}
	return f.tickers, nil
}

type fakeAlerter struct {
	alerts []domain.Opportunity
}

func (f *fakeAlerter) AlertBestOpportunity(ctx context.Context, opp domain.Opportunity) {
	f.alerts = append(f.alerts, opp)
}

func profitableRates() domain.RateTable {
	return domain.RateTable{
		"ABCUSDT": {{
			ExchangeName: "Peer",
			GiveCurrency: "ABC",
			GetCurrency:  "USDT",
			GivePrice:    0.099,
			GetPrice:     1,
			MinSum:       1,
		}},
	}
}

func newTestRefresher(t *testing.T, rates RateSource, venue domain.Exchange, alerter Alerter) (*Refresher, *cache.OpportunityCache) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.New()
	eng := engine.New(engine.Params{Volume: 2000, MinThreshold: 0.4, Ranking: engine.RankingSpread}, logger)

	r, err := New(Config{
		Rates:      rates,
		Venues:     []domain.Exchange{venue},
		Engine:     eng,
		Cache:      store,
		Alerter:    alerter,
		Interval:   time.Minute,
		ResyncCron: "0 3 * * *",
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("new refresher: %v", err)
	}
	return r, store
}

func TestRefreshPublishesOpportunities(t *testing.T) {
	venue := &fakeVenue{
		name:    "Binance",
		tickers: []domain.TickerData{{Symbol: "ABCUSDT", BidPrice: 9.9, AskPrice: 10}},
	}
	r, store := newTestRefresher(t, &fakeRates{table: profitableRates()}, venue, nil)

	ctx := context.Background()
	if err := r.resyncVenues(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	r.refresh(ctx)

	list := store.List()
	if len(list) != 1 {
		t.Fatalf("published opportunities=%d want=1", len(list))
	}
	if list[0].VenueName != "Binance" || list[0].Asset != "ABC" {
		t.Fatalf("unexpected opportunity: %+v", list[0])
	}
}

func TestFailedCycleKeepsPreviousSnapshot(t *testing.T) {
	venue := &fakeVenue{
		name:    "Binance",
		tickers: []domain.TickerData{{Symbol: "ABCUSDT", BidPrice: 9.9, AskPrice: 10}},
	}
	rates := &fakeRates{table: profitableRates()}
	r, store := newTestRefresher(t, rates, venue, nil)

	ctx := context.Background()
	if err := r.resyncVenues(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	r.refresh(ctx)
	if len(store.List()) != 1 {
		t.Fatalf("first cycle should publish")
	}
	publishedAt := store.RefreshedAt()

	// The rate source goes down; the previous snapshot must survive.
	rates.err = errors.New("dump unavailable")
	r.refresh(ctx)

	if len(store.List()) != 1 {
		t.Fatalf("failed cycle must retain previous snapshot")
	}
	if !store.RefreshedAt().Equal(publishedAt) {
		t.Fatalf("failed cycle must not bump the refresh time")
	}
}

func TestTickerFailureAbortsCycle(t *testing.T) {
	venue := &fakeVenue{name: "Binance", tickErr: errors.New("HTTP 502")}
	r, store := newTestRefresher(t, &fakeRates{table: profitableRates()}, venue, nil)

	ctx := context.Background()
	if err := r.resyncVenues(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	r.refresh(ctx)

	if len(store.List()) != 0 {
		t.Fatalf("aborted cycle must not publish")
	}
}

func TestAlertFiresOncePerDistinctBest(t *testing.T) {
	venue := &fakeVenue{
		name:    "Binance",
		tickers: []domain.TickerData{{Symbol: "ABCUSDT", BidPrice: 9.9, AskPrice: 10}},
	}
	alerter := &fakeAlerter{}
	r, _ := newTestRefresher(t, &fakeRates{table: profitableRates()}, venue, alerter)

	ctx := context.Background()
	if err := r.resyncVenues(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	r.refresh(ctx)
	r.refresh(ctx) // same best, no second alert

	if len(alerter.alerts) != 1 {
		t.Fatalf("alerts=%d want=1", len(alerter.alerts))
	}
	if alerter.alerts[0].Asset != "ABC" {
		t.Fatalf("unexpected alert payload: %+v", alerter.alerts[0])
	}
}

func TestInvalidResyncCronRejected(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(Config{
		Rates:      &fakeRates{},
		Engine:     engine.New(engine.Params{Volume: 1}, logger),
		Cache:      cache.New(),
		Interval:   time.Minute,
		ResyncCron: "not a cron spec",
		Logger:     logger,
	})
	if err == nil {
		t.Fatalf("invalid cron spec must be rejected")
	}
}
