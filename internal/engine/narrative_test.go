package engine

import (
	"strings"
	"testing"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

func TestTradePathOrdering(t *testing.T) {
	leg1 := Leg{
		Venue: "Binance",
		Give:  "USDT",
		Get:   "BTC",
		Price: 97000,
		In:    2000,
		Out:   0.0205,
		Fee:   "Network: BEP20, fee: 0.000005 BTC (0.49 USDT)",
		Link:  "https://www.binance.com/ru/trade/BTC_USDT?type=spot",
	}
	leg2 := Leg{
		Venue:  "NiceChange",
		Give:   "BTC",
		Get:    "USDT",
		Price:  0.0000102,
		In:     0.0205,
		Out:    2009.8,
		Limits: " (min 0.001 BTC/98.04 USDT)",
		Link:   "https://www.bestchange.ru/click.php?id=55&from=91&to=93&city=0",
	}

	path := TradePath(leg1, leg2)

	// Ordering contract: leg-1 summary, fee line, link, then leg-2 summary,
	// limits, link.
	markers := []string{
		"Trade 1 on Binance: USDT to BTC at 97000",
		"Give: 2000.00 USDT",
		"Receive: ≈0.0205 BTC",
		"Network: BEP20",
		"https://www.binance.com/ru/trade/BTC_USDT?type=spot",
		"Trade 2 on NiceChange: BTC to USDT at 0.0000102 (min 0.001 BTC/98.04 USDT)",
		"Give: 0.0205 BTC",
		"Receive: ≈2009.80 USDT",
		"https://www.bestchange.ru/click.php?id=55&from=91&to=93&city=0",
	}
	pos := -1
	for _, marker := range markers {
		idx := strings.Index(path, marker)
		if idx < 0 {
			t.Fatalf("marker %q missing from trade path:\n%s", marker, path)
		}
		if idx <= pos {
			t.Fatalf("marker %q out of order in trade path:\n%s", marker, path)
		}
		pos = idx
	}
}

func TestTradePathOmitsEmptyFeeLine(t *testing.T) {
	leg := Leg{Venue: "Binance", Give: "USDT", Get: "BTC", Price: 97000, In: 2000, Out: 0.02}
	path := TradePath(leg, leg)
	if strings.Contains(path, "fee:") {
		t.Fatalf("unexpected fee line in trade path:\n%s", path)
	}
}

func TestFeeNote(t *testing.T) {
	fee := domain.FeeOption{NetworkName: "BNB Smart Chain (BEP20)", Network: "BSC", Fee: 0.5}
	note := feeNote("Network", fee, "ABC", 10)
	if want := "Network: BNB Smart Chain (BEP20), fee: 0.5 ABC (5.00 USDT)"; note != want {
		t.Fatalf("fee note=%q want=%q", note, want)
	}

	// No fee schedule: no line at all.
	if note := feeNote("Network", domain.FeeOption{}, "ABC", 10); note != "" {
		t.Fatalf("zero-value fee option must render nothing, got %q", note)
	}
}

func TestPeerLimits(t *testing.T) {
	option := domain.PeerRateOption{GiveCurrency: "BTC", MinSum: 0.001, MaxSum: 0.5}
	got := peerLimits(option, 0.00001) // 0.00001 BTC per USDT

	if want := " (min 0.001 BTC/100.00 USDT, max 0.5 BTC/50000.00 USDT)"; got != want {
		t.Fatalf("limits=%q want=%q", got, want)
	}

	// USDT give side renders the bound as-is.
	option = domain.PeerRateOption{GiveCurrency: "USDT", MinSum: 50}
	if got := peerLimits(option, 9.9); got != " (min 50 USDT/50.00 USDT)" {
		t.Fatalf("limits=%q", got)
	}

	if got := peerLimits(domain.PeerRateOption{}, 1); got != "" {
		t.Fatalf("no limits must render nothing, got %q", got)
	}
}
