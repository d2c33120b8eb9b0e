package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// Leg holds the computed figures for one half of a trade path. The narrative
// builder only formats; all amounts arrive fully computed.
type Leg struct {
	Venue  string
	Give   string  // currency given
	Get    string  // currency received
	Price  float64 // displayed unit price (give units per get unit, or quote price)
	In     float64 // amount given
	Out    float64 // amount received
	Fee    string  // optional pre-rendered fee breakdown line
	Limits string  // optional limits annotation appended to the header
	Link   string  // reference link for the venue
}

// TradePath renders the two-leg narrative. Line ordering per leg is fixed:
// summary, fee line (if any), reference link.
func TradePath(leg1, leg2 Leg) string {
	var b strings.Builder
	writeLeg(&b, 1, leg1)
	b.WriteString("\n")
	writeLeg(&b, 2, leg2)
	return b.String()
}

func writeLeg(b *strings.Builder, n int, leg Leg) {
	fmt.Fprintf(b, "Trade %d on %s: %s to %s at %s%s\n",
		n, leg.Venue, leg.Give, leg.Get, formatPrice(leg.Price), leg.Limits)
	fmt.Fprintf(b, "Give: %s %s\n", formatAmount(leg.In, leg.Give), leg.Give)
	fmt.Fprintf(b, "Receive: ≈%s %s\n", formatAmount(leg.Out, leg.Get), leg.Get)
	if leg.Fee != "" {
		b.WriteString(leg.Fee)
		b.WriteString("\n")
	}
	if leg.Link != "" {
		b.WriteString(leg.Link)
		b.WriteString("\n")
	}
}

// feeNote renders the fee breakdown line for a selected network, or "" when
// the asset had no fee schedule and the zero-fee default applied.
func feeNote(label string, fee domain.FeeOption, asset string, marketPrice float64) string {
	if fee.NetworkName == "" && fee.Network == "" {
		return ""
	}
	name := fee.NetworkName
	if name == "" {
		name = fee.Network
	}
	return fmt.Sprintf("%s: %s, fee: %s %s (%.2f USDT)",
		label, name, formatPrice(fee.Fee), asset, fee.Fee*marketPrice)
}

// peerLimits renders the min/max annotation for a peer option header, showing
// the bound in the give currency and its USDT equivalent.
func peerLimits(option domain.PeerRateOption, unitPrice float64) string {
	if option.MinSum <= 0 && option.MaxSum <= 0 {
		return ""
	}

	equivalent := func(sum float64) float64 {
		if option.GiveCurrency == "USDT" {
			return sum
		}
		return sum / unitPrice
	}

	parts := make([]string, 0, 2)
	if option.MinSum > 0 {
		parts = append(parts, fmt.Sprintf("min %s %s/%.2f USDT",
			formatPrice(option.MinSum), option.GiveCurrency, equivalent(option.MinSum)))
	}
	if option.MaxSum > 0 {
		parts = append(parts, fmt.Sprintf("max %s %s/%.2f USDT",
			formatPrice(option.MaxSum), option.GiveCurrency, equivalent(option.MaxSum)))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// formatAmount renders a currency amount: USDT with two decimals, asset
// amounts at full precision. Rounding happens here and nowhere upstream.
func formatAmount(amount float64, currency string) string {
	if currency == "USDT" {
		return strconv.FormatFloat(amount, 'f', 2, 64)
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// formatPrice renders a unit price at full precision.
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
