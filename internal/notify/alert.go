package notify

import (
	"context"
	"fmt"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// EventBestOpportunity is emitted when a refresh cycle produces a new top
// opportunity clearing the alert threshold.
const EventBestOpportunity = "best_opportunity"

// Alert turns a fresh best opportunity into a push notification. The refresher
// already deduplicates by opportunity id; Alert only applies the value
// threshold so quiet markets do not generate noise.
type Alert struct {
	notifier  *Notifier
	rank      func(domain.Opportunity) float64
	threshold float64
}

// NewAlert creates an Alert. rank must return the same metric the opportunity
// list is ordered by.
func NewAlert(notifier *Notifier, rank func(domain.Opportunity) float64, threshold float64) *Alert {
	return &Alert{notifier: notifier, rank: rank, threshold: threshold}
}

// AlertBestOpportunity pushes the opportunity to all senders when its ranking
// metric reaches the threshold. Delivery failures are logged by the notifier
// and do not propagate: an undelivered alert must never stall a refresh.
func (a *Alert) AlertBestOpportunity(ctx context.Context, opp domain.Opportunity) {
	if a.rank(opp) < a.threshold {
		return
	}
	title := fmt.Sprintf("New top opportunity: %s via %s (%.2f%%)",
		opp.PairKey, opp.PeerExchange, opp.Spread)
	_ = a.notifier.Notify(ctx, EventBestOpportunity, title, opp.TradePath)
}
