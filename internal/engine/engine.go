// Package engine computes ranked two-leg arbitrage opportunities from one
// centralized exchange's market data, the peer rate table, and the venue's
// fee schedules. The computation is pure and stateless: every call produces a
// fresh list from scratch.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// takerFeePct approximates the venue's spot taker fee, in percent.
const takerFeePct = 0.1

// Ranking selects the metric candidates are filtered and sorted by.
type Ranking string

const (
	RankingSpread Ranking = "spread"
	RankingProfit Ranking = "profit"
)

// Params are the fixed inputs of the computation.
type Params struct {
	// Volume is the USDT amount pushed into leg 1.
	Volume float64
	// MinThreshold is the inclusion floor for the ranking metric: percent
	// for spread ranking, USDT for profit ranking.
	MinThreshold float64
	Ranking      Ranking
}

// Engine evaluates arbitrage candidates for one set of params.
type Engine struct {
	params Params
	logger *slog.Logger
}

// New creates an Engine.
func New(params Params, logger *slog.Logger) *Engine {
	if params.Ranking == "" {
		params.Ranking = RankingSpread
	}
	return &Engine{
		params: params,
		logger: logger.With(slog.String("component", "engine")),
	}
}

// ComputeOpportunities evaluates every symbol with both bid and ask observed,
// in both trade directions, and returns the candidates that clear the
// threshold, sorted descending by the ranking metric. The result sort is
// stable and the symbol scan order is fixed, so identical inputs produce an
// identical list.
func (e *Engine) ComputeOpportunities(
	venue string,
	market map[string]*domain.AssetQuote,
	rates domain.RateTable,
	fees map[string][]domain.FeeOption,
) []domain.Opportunity {
	symbols := make([]string, 0, len(market))
	for symbol := range market {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var opportunities []domain.Opportunity
	for _, symbol := range symbols {
		quote := market[symbol]
		if !quote.Observed() {
			continue
		}

		if opp, ok := e.evaluateForward(venue, quote, rates[symbol], fees[quote.Asset]); ok {
			opportunities = append(opportunities, opp)
		}
		if opp, ok := e.evaluateReverse(venue, quote, rates["USDT"+quote.Asset], fees[quote.Asset]); ok {
			opportunities = append(opportunities, opp)
		}
	}

	kept := opportunities[:0]
	for _, opp := range opportunities {
		if e.metric(opp) >= e.params.MinThreshold && opp.Total > e.params.Volume {
			kept = append(kept, opp)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return e.metric(kept[i]) > e.metric(kept[j])
	})
	return kept
}

// evaluateForward prices the CEX-first path: buy the asset with USDT at the
// ask, withdraw it, and sell it back to USDT on the best peer option.
func (e *Engine) evaluateForward(
	venue string,
	quote *domain.AssetQuote,
	options []domain.PeerRateOption,
	feeOptions []domain.FeeOption,
) (domain.Opportunity, bool) {
	best, ok := bestPeerOption(options)
	if !ok {
		return domain.Opportunity{}, false
	}
	unitPrice := best.UnitPrice()
	if unitPrice <= 0 {
		return domain.Opportunity{}, false
	}

	withdrawFee, ok := selectFee(feeOptions, true, quote.AskPrice)
	if !ok {
		return domain.Opportunity{}, false
	}

	gross := e.params.Volume / quote.AskPrice
	tradingFee := gross / 100 * takerFeePct
	received := gross - tradingFee - withdrawFee.Fee
	if received <= 0 {
		return domain.Opportunity{}, false
	}
	// The peer option's limits are in its give currency, i.e. the asset.
	if received < best.MinSum {
		return domain.Opportunity{}, false
	}
	if best.MaxSum > 0 && received > best.MaxSum {
		return domain.Opportunity{}, false
	}

	total := received / unitPrice
	profit := total - e.params.Volume
	spread := round2(((1/quote.AskPrice)*(1/unitPrice)-1)*100 - takerFeePct)

	leg1 := Leg{
		Venue: venue,
		Give:  "USDT",
		Get:   quote.Asset,
		Price: quote.AskPrice,
		In:    e.params.Volume,
		Out:   received,
		Fee:   feeNote("Network", withdrawFee, quote.Asset, quote.AskPrice),
		Link:  quote.SpotLink,
	}
	leg2 := Leg{
		Venue:  best.ExchangeName,
		Give:   quote.Asset,
		Get:    "USDT",
		Price:  unitPrice,
		In:     received,
		Out:    total,
		Limits: peerLimits(best, unitPrice),
		Link:   best.Link,
	}

	return domain.Opportunity{
		ID:           domain.OpportunityID(quote.Symbol, venue, best.ExchangeName),
		PairKey:      quote.Symbol,
		Asset:        quote.Asset,
		Direction:    domain.DirectionCEXToPeer,
		VenueName:    venue,
		PeerExchange: best.ExchangeName,
		Spread:       spread,
		Profit:       profit,
		Total:        total,
		TradePath:    TradePath(leg1, leg2),
	}, true
}

// evaluateReverse prices the peer-first path: buy the asset with USDT on the
// best peer option, deposit it, and sell it at the bid on the centralized
// exchange. The peer option's limits gate the USDT input here, and the
// deposit fee direction applies instead of withdrawal.
func (e *Engine) evaluateReverse(
	venue string,
	quote *domain.AssetQuote,
	options []domain.PeerRateOption,
	feeOptions []domain.FeeOption,
) (domain.Opportunity, bool) {
	best, ok := bestPeerOption(options)
	if !ok {
		return domain.Opportunity{}, false
	}
	unitPrice := best.UnitPrice() // USDT per asset unit
	if unitPrice <= 0 {
		return domain.Opportunity{}, false
	}

	if e.params.Volume < best.MinSum {
		return domain.Opportunity{}, false
	}
	if best.MaxSum > 0 && e.params.Volume > best.MaxSum {
		return domain.Opportunity{}, false
	}

	depositFee, ok := selectFee(feeOptions, false, quote.BidPrice)
	if !ok {
		return domain.Opportunity{}, false
	}

	received := e.params.Volume/unitPrice - depositFee.Fee
	if received <= 0 {
		return domain.Opportunity{}, false
	}

	gross := received * quote.BidPrice
	tradingFee := gross / 100 * takerFeePct
	total := gross - tradingFee
	profit := total - e.params.Volume
	spread := round2(((1/unitPrice)*quote.BidPrice-1)*100 - takerFeePct)

	pairKey := "USDT" + quote.Asset

	leg1 := Leg{
		Venue:  best.ExchangeName,
		Give:   "USDT",
		Get:    quote.Asset,
		Price:  unitPrice,
		In:     e.params.Volume,
		Out:    received,
		Limits: peerLimits(best, unitPrice),
		Link:   best.Link,
	}
	leg2 := Leg{
		Venue: venue,
		Give:  quote.Asset,
		Get:   "USDT",
		Price: quote.BidPrice,
		In:    received,
		Out:   total,
		Fee:   feeNote("Deposit network", depositFee, quote.Asset, quote.BidPrice),
		Link:  quote.SpotLink,
	}

	return domain.Opportunity{
		ID:           domain.OpportunityID(pairKey, venue, best.ExchangeName),
		PairKey:      pairKey,
		Asset:        quote.Asset,
		Direction:    domain.DirectionPeerToCEX,
		VenueName:    venue,
		PeerExchange: best.ExchangeName,
		Spread:       spread,
		Profit:       profit,
		Total:        total,
		TradePath:    TradePath(leg1, leg2),
	}, true
}

// Rank exposes the configured ranking metric so a caller merging per-venue
// lists can keep the combined set in the same order.
func (e *Engine) Rank(o domain.Opportunity) float64 {
	return e.metric(o)
}

// MetricLabel renders the ranking metric for display: percent for spread,
// USDT for profit.
func (e *Engine) MetricLabel(o domain.Opportunity) string {
	if e.params.Ranking == RankingProfit {
		return fmt.Sprintf("%.2f USDT", o.Profit)
	}
	return fmt.Sprintf("%.2f%%", o.Spread)
}

// metric returns the configured ranking value of an opportunity.
func (e *Engine) metric(o domain.Opportunity) float64 {
	if e.params.Ranking == RankingProfit {
		return o.Profit
	}
	return o.Spread
}

// bestPeerOption picks the cheapest quote for the conversion. Quotes in the
// inverted form (give-price exactly 1) win over direct ones and rank by the
// highest get-price; among direct quotes the lowest give-price wins. Ties
// keep the earlier option.
func bestPeerOption(options []domain.PeerRateOption) (domain.PeerRateOption, bool) {
	if len(options) == 0 {
		return domain.PeerRateOption{}, false
	}

	var best domain.PeerRateOption
	bestInverted := false
	found := false
	for _, option := range options {
		inverted := option.GivePrice == 1
		switch {
		case !found:
			best, bestInverted, found = option, inverted, true
		case inverted && !bestInverted:
			best, bestInverted = option, true
		case inverted && bestInverted && option.GetPrice > best.GetPrice:
			best = option
		case !inverted && !bestInverted && option.GivePrice < best.GivePrice:
			best = option
		}
	}
	return best, true
}

// selectFee returns the network option minimizing the fee cost in quote
// currency (fee * marketPrice) among options enabled for the direction.
// An asset with no fee data at all passes with a zero fee; an asset whose
// networks are all disabled for the direction disqualifies the candidate.
func selectFee(options []domain.FeeOption, withdraw bool, marketPrice float64) (domain.FeeOption, bool) {
	if len(options) == 0 {
		return domain.FeeOption{}, true
	}

	bestIdx := -1
	for i, option := range options {
		enabled := option.WithdrawEnabled
		if !withdraw {
			enabled = option.DepositEnabled
		}
		if !enabled {
			continue
		}
		if bestIdx < 0 || option.Fee*marketPrice < options[bestIdx].Fee*marketPrice {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return domain.FeeOption{}, false
	}
	return options[bestIdx], true
}

// round2 rounds to two decimals. Applied to spread only: the threshold
// comparison historically ran on the rounded value and the behavior is kept.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
