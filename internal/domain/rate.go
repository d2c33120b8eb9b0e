package domain

// PeerRateOption is one quoted conversion rate from a peer (BestChange-style)
// exchange for converting GiveCurrency into GetCurrency. Options are immutable
// within a refresh cycle; a new table replaces the old one wholesale.
type PeerRateOption struct {
	ExchangeName string
	GiveCurrency string
	GetCurrency  string
	GivePrice    float64
	GetPrice     float64
	MinSum       float64 // minimum trade amount, in GiveCurrency units
	MaxSum       float64 // maximum trade amount; <= 0 means unbounded
	Link         string  // referral link to the quoting service
}

// UnitPrice returns the normalized conversion price in give-units per one
// get-unit. BestChange quotes either "X give per 1 get" (GivePrice=X,
// GetPrice=1) or the inverted "1 give per Y get" (GivePrice=1, GetPrice=Y);
// the second form is normalized by taking the reciprocal.
func (o PeerRateOption) UnitPrice() float64 {
	if o.GivePrice == 1 && o.GetPrice > 0 {
		return 1 / o.GetPrice
	}
	return o.GivePrice
}

// RateTable maps a trade-pair key ("{giveCode}{getCode}", e.g. "BTCUSDT") to
// the quoted options for that conversion, in source order.
type RateTable map[string][]PeerRateOption
