package engine

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(ranking Ranking, threshold float64) *Engine {
	return New(Params{Volume: 2000, MinThreshold: threshold, Ranking: ranking}, testLogger())
}

// quoteABC is a pair priced so the forward path yields a positive spread:
// buy at 10 on the venue, sell at 0.099 ABC per USDT on the peer.
func quoteABC() map[string]*domain.AssetQuote {
	return map[string]*domain.AssetQuote{
		"ABCUSDT": {
			Symbol:   "ABCUSDT",
			Asset:    "ABC",
			BidPrice: 9.99,
			AskPrice: 10,
			SpotLink: "https://venue.example/ABC_USDT",
		},
	}
}

func forwardOption(minSum, maxSum float64) domain.PeerRateOption {
	return domain.PeerRateOption{
		ExchangeName: "NiceChange",
		GiveCurrency: "ABC",
		GetCurrency:  "USDT",
		GivePrice:    0.099,
		GetPrice:     1,
		MinSum:       minSum,
		MaxSum:       maxSum,
		Link:         "https://www.bestchange.ru/click.php?id=55&from=91&to=93&city=0",
	}
}

func TestForwardArithmetic(t *testing.T) {
	e := newTestEngine(RankingSpread, 0.4)
	rates := domain.RateTable{"ABCUSDT": {forwardOption(1, 0)}}

	opps := e.ComputeOpportunities("Binance", quoteABC(), rates, nil)
	if len(opps) != 1 {
		t.Fatalf("opportunities=%d want=1", len(opps))
	}
	opp := opps[0]

	// received = 2000/10 - (2000/10/100)*0.1 - 0 = 200 - 0.2 = 199.8
	// total = 199.8 / 0.099
	wantTotal := 199.8 / 0.099
	if math.Abs(opp.Total-wantTotal) > 1e-9 {
		t.Fatalf("total=%v want=%v", opp.Total, wantTotal)
	}
	if math.Abs(opp.Profit-(wantTotal-2000)) > 1e-9 {
		t.Fatalf("profit=%v want=%v", opp.Profit, wantTotal-2000)
	}
	// spread = ((1/10)*(1/0.099) - 1)*100 - 0.1, rounded to 2 decimals
	if opp.Spread != 0.91 {
		t.Fatalf("spread=%v want=0.91", opp.Spread)
	}
	if opp.Direction != domain.DirectionCEXToPeer {
		t.Fatalf("direction=%s want=%s", opp.Direction, domain.DirectionCEXToPeer)
	}
	if opp.ID != "ABCUSDT-binance-NiceChange" {
		t.Fatalf("id=%q want=%q", opp.ID, "ABCUSDT-binance-NiceChange")
	}
}

func TestForwardWithdrawFeeReducesReceived(t *testing.T) {
	e := newTestEngine(RankingSpread, 0)
	rates := domain.RateTable{"ABCUSDT": {forwardOption(1, 0)}}
	fees := map[string][]domain.FeeOption{
		"ABC": {{NetworkName: "BEP20", Network: "BSC", Fee: 0.5, WithdrawEnabled: true, DepositEnabled: true}},
	}

	opps := e.ComputeOpportunities("Binance", quoteABC(), rates, fees)
	if len(opps) != 1 {
		t.Fatalf("opportunities=%d want=1", len(opps))
	}

	wantTotal := (200 - 0.2 - 0.5) / 0.099
	if math.Abs(opps[0].Total-wantTotal) > 1e-9 {
		t.Fatalf("total=%v want=%v", opps[0].Total, wantTotal)
	}
	if !strings.Contains(opps[0].TradePath, "BEP20") {
		t.Fatalf("fee network missing from trade path:\n%s", opps[0].TradePath)
	}
}

func TestMinSumBoundary(t *testing.T) {
	e := newTestEngine(RankingSpread, 0)
	received := 2000.0/10 - (2000.0 / 10 / 100 * 0.1)

	// Exactly at the minimum: qualifies.
	rates := domain.RateTable{"ABCUSDT": {forwardOption(received, 0)}}
	if opps := e.ComputeOpportunities("Binance", quoteABC(), rates, nil); len(opps) != 1 {
		t.Fatalf("amount equal to minSum must qualify, got %d opportunities", len(opps))
	}

	// Just below the minimum: disqualified.
	rates = domain.RateTable{"ABCUSDT": {forwardOption(received+0.0001, 0)}}
	if opps := e.ComputeOpportunities("Binance", quoteABC(), rates, nil); len(opps) != 0 {
		t.Fatalf("amount below minSum must disqualify, got %d opportunities", len(opps))
	}
}

func TestMaxSumBoundary(t *testing.T) {
	e := newTestEngine(RankingSpread, 0)
	received := 2000.0/10 - (2000.0 / 10 / 100 * 0.1)

	rates := domain.RateTable{"ABCUSDT": {forwardOption(1, received)}}
	if opps := e.ComputeOpportunities("Binance", quoteABC(), rates, nil); len(opps) != 1 {
		t.Fatalf("amount equal to maxSum must qualify, got %d opportunities", len(opps))
	}

	rates = domain.RateTable{"ABCUSDT": {forwardOption(1, received-0.0001)}}
	if opps := e.ComputeOpportunities("Binance", quoteABC(), rates, nil); len(opps) != 0 {
		t.Fatalf("amount above maxSum must disqualify, got %d opportunities", len(opps))
	}
}

func TestReverseArithmetic(t *testing.T) {
	e := newTestEngine(RankingSpread, 0.4)
	market := quoteABC()
	market["ABCUSDT"].BidPrice = 10
	rates := domain.RateTable{
		"USDTABC": {{
			ExchangeName: "CoinSwap",
			GiveCurrency: "USDT",
			GetCurrency:  "ABC",
			GivePrice:    9.9, // 9.9 USDT per ABC
			GetPrice:     1,
			MinSum:       100,
			MaxSum:       25000,
			Link:         "https://www.bestchange.ru/click.php?id=82&from=93&to=91&city=0",
		}},
	}

	opps := e.ComputeOpportunities("Bybit", market, rates, nil)
	if len(opps) != 1 {
		t.Fatalf("opportunities=%d want=1", len(opps))
	}
	opp := opps[0]

	// received = 2000/9.9 ABC, gross = received*10, taker 0.1%
	received := 2000 / 9.9
	gross := received * 10
	wantTotal := gross - gross/100*0.1
	if math.Abs(opp.Total-wantTotal) > 1e-9 {
		t.Fatalf("total=%v want=%v", opp.Total, wantTotal)
	}
	if opp.Spread != 0.91 {
		t.Fatalf("spread=%v want=0.91", opp.Spread)
	}
	if opp.Direction != domain.DirectionPeerToCEX {
		t.Fatalf("direction=%s want=%s", opp.Direction, domain.DirectionPeerToCEX)
	}
	if opp.PairKey != "USDTABC" {
		t.Fatalf("pair key=%q want=USDTABC", opp.PairKey)
	}
}

func TestReverseVolumeGatedByPeerLimits(t *testing.T) {
	e := newTestEngine(RankingSpread, 0)
	market := quoteABC()
	option := domain.PeerRateOption{
		ExchangeName: "CoinSwap",
		GiveCurrency: "USDT",
		GetCurrency:  "ABC",
		GivePrice:    9.9,
		GetPrice:     1,
		MinSum:       2000.01, // just above the configured volume
	}
	rates := domain.RateTable{"USDTABC": {option}}

	if opps := e.ComputeOpportunities("Bybit", market, rates, nil); len(opps) != 0 {
		t.Fatalf("volume below peer minSum must disqualify, got %d", len(opps))
	}

	option.MinSum = 2000 // exactly the volume qualifies
	rates = domain.RateTable{"USDTABC": {option}}
	if opps := e.ComputeOpportunities("Bybit", market, rates, nil); len(opps) != 1 {
		t.Fatalf("volume equal to peer minSum must qualify, got %d", len(opps))
	}
}

func TestBestPeerOptionSelection(t *testing.T) {
	direct := func(givePrice float64) domain.PeerRateOption {
		return domain.PeerRateOption{ExchangeName: "direct", GivePrice: givePrice, GetPrice: 1}
	}
	inverted := func(getPrice float64) domain.PeerRateOption {
		return domain.PeerRateOption{ExchangeName: "inverted", GivePrice: 1, GetPrice: getPrice}
	}

	// Inverted quotes win over direct ones and rank by highest get-price.
	best, ok := bestPeerOption([]domain.PeerRateOption{direct(0.0001), inverted(8000), inverted(8500)})
	if !ok || best.GetPrice != 8500 {
		t.Fatalf("best=%+v want inverted with getPrice=8500", best)
	}

	// All direct: lowest give-price wins.
	best, ok = bestPeerOption([]domain.PeerRateOption{direct(0.00012), direct(0.00010), direct(0.00011)})
	if !ok || best.GivePrice != 0.00010 {
		t.Fatalf("best=%+v want direct with givePrice=0.0001", best)
	}

	if _, ok := bestPeerOption(nil); ok {
		t.Fatalf("empty option list must not select anything")
	}
}

func TestSelectFeePolicy(t *testing.T) {
	options := []domain.FeeOption{
		{NetworkName: "Cheap but disabled", Fee: 0.01, WithdrawEnabled: false},
		{NetworkName: "Expensive", Fee: 5, WithdrawEnabled: true},
		{NetworkName: "Best", Fee: 2, WithdrawEnabled: true},
	}

	fee, ok := selectFee(options, true, 10)
	if !ok || fee.NetworkName != "Best" {
		t.Fatalf("fee=%+v want the cheapest enabled network", fee)
	}

	// No fee data at all: zero-fee default.
	fee, ok = selectFee(nil, true, 10)
	if !ok || fee.Fee != 0 {
		t.Fatalf("missing fee data must default to zero fee, got %+v ok=%v", fee, ok)
	}

	// Entries exist but none enabled for the direction: disqualify.
	disabled := []domain.FeeOption{{NetworkName: "X", Fee: 1, WithdrawEnabled: false, DepositEnabled: true}}
	if _, ok := selectFee(disabled, true, 10); ok {
		t.Fatalf("all-disabled networks must disqualify the candidate")
	}
	// The same entries are fine for the deposit direction.
	if _, ok := selectFee(disabled, false, 10); !ok {
		t.Fatalf("deposit-enabled network must qualify for the deposit direction")
	}
}

func TestFilterAndRankingInvariants(t *testing.T) {
	e := newTestEngine(RankingSpread, 0.4)

	market := map[string]*domain.AssetQuote{
		"AAAUSDT": {Symbol: "AAAUSDT", Asset: "AAA", BidPrice: 9.9, AskPrice: 10},
		"BBBUSDT": {Symbol: "BBBUSDT", Asset: "BBB", BidPrice: 4.9, AskPrice: 5},
		"CCCUSDT": {Symbol: "CCCUSDT", Asset: "CCC", BidPrice: 1.9, AskPrice: 2},
		"DDDUSDT": {Symbol: "DDDUSDT", Asset: "DDD", BidPrice: 0, AskPrice: 2}, // unobserved
	}
	peer := func(give, get string, givePrice float64) domain.PeerRateOption {
		return domain.PeerRateOption{
			ExchangeName: "Peer", GiveCurrency: give, GetCurrency: get,
			GivePrice: givePrice, GetPrice: 1, MinSum: 1,
		}
	}
	rates := domain.RateTable{
		"AAAUSDT": {peer("AAA", "USDT", 0.099)},  // profitable
		"BBBUSDT": {peer("BBB", "USDT", 0.1985)}, // profitable, smaller spread
		"CCCUSDT": {peer("CCC", "USDT", 0.51)},   // losing trade, filtered
		"DDDUSDT": {peer("DDD", "USDT", 0.4)},    // unobserved quote, skipped
	}

	opps := e.ComputeOpportunities("Binance", market, rates, nil)
	if len(opps) == 0 {
		t.Fatalf("expected profitable opportunities")
	}
	for i, opp := range opps {
		if opp.Total <= 2000 {
			t.Fatalf("opportunity %d: total=%v must exceed volume", i, opp.Total)
		}
		if opp.Spread < 0.4 {
			t.Fatalf("opportunity %d: spread=%v below threshold", i, opp.Spread)
		}
		if i > 0 && opps[i-1].Spread < opp.Spread {
			t.Fatalf("ranking not non-increasing: %v before %v", opps[i-1].Spread, opp.Spread)
		}
	}
	for _, opp := range opps {
		if opp.Asset == "CCC" || opp.Asset == "DDD" {
			t.Fatalf("filtered candidate leaked: %+v", opp)
		}
	}
}

func TestProfitRanking(t *testing.T) {
	e := newTestEngine(RankingProfit, 10)

	market := map[string]*domain.AssetQuote{
		"AAAUSDT": {Symbol: "AAAUSDT", Asset: "AAA", BidPrice: 9.9, AskPrice: 10},
		"BBBUSDT": {Symbol: "BBBUSDT", Asset: "BBB", BidPrice: 4.9, AskPrice: 5},
	}
	peer := func(give string, givePrice float64) domain.PeerRateOption {
		return domain.PeerRateOption{
			ExchangeName: "Peer", GiveCurrency: give, GetCurrency: "USDT",
			GivePrice: givePrice, GetPrice: 1, MinSum: 1,
		}
	}
	rates := domain.RateTable{
		"AAAUSDT": {peer("AAA", 0.095)}, // bigger profit
		"BBBUSDT": {peer("BBB", 0.197)}, // smaller profit
	}

	opps := e.ComputeOpportunities("Binance", market, rates, nil)
	if len(opps) != 2 {
		t.Fatalf("opportunities=%d want=2", len(opps))
	}
	if opps[0].Asset != "AAA" {
		t.Fatalf("profit ranking should put AAA first, got %s", opps[0].Asset)
	}
	if opps[0].Profit < opps[1].Profit {
		t.Fatalf("profit ordering violated: %v < %v", opps[0].Profit, opps[1].Profit)
	}
	for _, opp := range opps {
		if opp.Profit < 10 {
			t.Fatalf("profit threshold violated: %v", opp.Profit)
		}
	}
}
