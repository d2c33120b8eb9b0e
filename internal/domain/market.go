package domain

// AssetQuote is the centralized-exchange view of one USDT spot pair: the base
// asset plus the best bid/ask observed in the current poll cycle. Bid and ask
// are zero until the first ticker refresh of the cycle lands.
type AssetQuote struct {
	Symbol   string // e.g. "BTCUSDT"
	Asset    string // base asset, e.g. "BTC"
	BidPrice float64
	AskPrice float64
	SpotLink string // venue spot trading page for the pair
}

// Observed reports whether both sides of the book have been seen this cycle.
func (q *AssetQuote) Observed() bool {
	return q.BidPrice > 0 && q.AskPrice > 0
}

// TickerData is one best bid/ask quote from a venue ticker endpoint.
type TickerData struct {
	Symbol   string
	BidPrice float64
	AskPrice float64
}

// FeeOption is a single withdrawal/deposit network for an asset on a
// centralized exchange. Fee is denominated in asset units.
type FeeOption struct {
	NetworkName     string // human-readable chain name, e.g. "BNB Smart Chain (BEP20)"
	Network         string // chain identifier, e.g. "BSC"
	Fee             float64
	WithdrawEnabled bool
	DepositEnabled  bool
}
