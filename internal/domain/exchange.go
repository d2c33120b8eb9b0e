package domain

import "context"

// Exchange is the capability interface every centralized-exchange venue
// implements. GetMarketData returns the tradable USDT pairs for the tracked
// currency list with zeroed quotes; GetTickersData returns the current best
// bid/ask per symbol; GetCurrenciesFees returns the per-asset
// withdrawal/deposit network schedules.
type Exchange interface {
	Name() string
	GetMarketData(ctx context.Context) (map[string]*AssetQuote, error)
	GetCurrenciesFees(ctx context.Context) (map[string][]FeeOption, error)
	GetTickersData(ctx context.Context) ([]TickerData, error)
}
