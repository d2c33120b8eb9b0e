package domain

import "strings"

// Direction says which leg of the two-leg trade runs on the centralized
// exchange first.
type Direction string

const (
	// DirectionCEXToPeer buys the asset on the centralized exchange,
	// withdraws it, and sells it back to USDT on the peer exchange.
	DirectionCEXToPeer Direction = "cex_to_peer"
	// DirectionPeerToCEX buys the asset with USDT on the peer exchange,
	// deposits it, and sells it at the bid on the centralized exchange.
	DirectionPeerToCEX Direction = "peer_to_cex"
)

// Opportunity is one computed, ranked arbitrage candidate. The list is
// rebuilt from scratch every refresh cycle; only the deterministic ID ties a
// button press back to the entry that produced it.
type Opportunity struct {
	ID           string
	PairKey      string // "BTCUSDT" for forward, "USDTBTC" for reverse
	Asset        string
	Direction    Direction
	VenueName    string // centralized exchange, e.g. "Binance"
	PeerExchange string
	Spread       float64 // percent, rounded to 2 decimals
	Profit       float64 // absolute USDT gain over the input volume
	Total        float64 // final USDT output
	TradePath    string  // human-readable two-leg narrative
}

// OpportunityID builds the deterministic identifier used as Telegram callback
// data. The peer exchange name is stripped to alphanumerics so the id stays a
// single dash-separated token.
func OpportunityID(pairKey, venueName, peerExchange string) string {
	var peer strings.Builder
	for _, r := range peerExchange {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			peer.WriteRune(r)
		}
	}
	return pairKey + "-" + strings.ToLower(venueName) + "-" + peer.String()
}
