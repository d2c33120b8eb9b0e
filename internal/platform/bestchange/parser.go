package bestchange

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// Currency is one entry of the currency-id lookup built from bm_cy.dat.
type Currency struct {
	Code string // ticker extracted from the display name, e.g. "BTC"
	Name string // full display name, e.g. "Bitcoin (BTC)"
}

// codeRe extracts the parenthesized ticker from a currency display name.
var codeRe = regexp.MustCompile(`\(([^)]+)\)`)

// ParseCurrencies reads the bm_cy.dat listing ("id;position;name" per line)
// and returns the id lookup for currencies whose ticker is in the tracked
// set. USDT is always tracked: it is the quote side of every trade pair, and
// BestChange lists it once per network (TRC20, ERC20, ...), all mapping to
// the same code.
func ParseCurrencies(r io.Reader, tracked []string) (map[string]Currency, error) {
	want := make(map[string]bool, len(tracked)+1)
	for _, code := range tracked {
		want[code] = true
	}
	want["USDT"] = true

	currencies := make(map[string]Currency)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ";")
		if len(parts) < 3 {
			continue
		}
		id, name := parts[0], parts[len(parts)-1]
		m := codeRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		code := strings.ToUpper(m[1])
		if !want[code] {
			continue
		}
		currencies[id] = Currency{Code: code, Name: name}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bestchange: scan currencies: %w", err)
	}
	return currencies, nil
}

// ParseExchangers reads the bm_exch.dat listing ("id;name" per line) and
// returns the exchanger-id lookup.
func ParseExchangers(r io.Reader) (map[string]string, error) {
	exchangers := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ";")
		if len(parts) < 2 {
			continue
		}
		id, name := parts[0], parts[1]
		if id == "" || name == "" {
			continue
		}
		exchangers[id] = name
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bestchange: scan exchangers: %w", err)
	}
	return exchangers, nil
}

// BuildRateTable reads the bm_rates.dat record stream and produces the
// pair-key → options table. Record layout (semicolon-delimited):
//
//	0 give-currency-id
//	1 get-currency-id
//	2 exchanger-id
//	3 give-price
//	4 get-price
//	5 reserve
//	6 reviews
//	7 (unused)
//	8 min-trade-sum
//	9 max-trade-sum
//
// Records with give == get, an unknown currency or exchanger id, or
// unparseable numeric fields are silently dropped. Options for the same pair
// key keep their source order; selection of the best option is the engine's
// job, not the parser's.
func BuildRateTable(r io.Reader, currencies map[string]Currency, exchangers map[string]string) (domain.RateTable, error) {
	table := make(domain.RateTable)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ";")
		if len(parts) < 10 {
			continue
		}
		giveID, getID, exchangerID := parts[0], parts[1], parts[2]
		if giveID == getID {
			continue
		}
		give, ok := currencies[giveID]
		if !ok {
			continue
		}
		get, ok := currencies[getID]
		if !ok {
			continue
		}
		exchanger, ok := exchangers[exchangerID]
		if !ok {
			continue
		}

		givePrice, err := strconv.ParseFloat(parts[3], 64)
		if err != nil || givePrice <= 0 {
			continue
		}
		getPrice, err := strconv.ParseFloat(parts[4], 64)
		if err != nil || getPrice <= 0 {
			continue
		}
		minSum, err := strconv.ParseFloat(parts[8], 64)
		if err != nil {
			continue
		}
		maxSum, err := strconv.ParseFloat(parts[9], 64)
		if err != nil {
			continue
		}

		key := give.Code + get.Code
		table[key] = append(table[key], domain.PeerRateOption{
			ExchangeName: exchanger,
			GiveCurrency: give.Code,
			GetCurrency:  get.Code,
			GivePrice:    givePrice,
			GetPrice:     getPrice,
			MinSum:       minSum,
			MaxSum:       maxSum,
			Link:         ExchangeLink(exchangerID, giveID, getID),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bestchange: scan rates: %w", err)
	}
	return table, nil
}

// ExchangeLink returns the BestChange referral link for one exchanger and
// conversion direction.
func ExchangeLink(exchangerID, giveID, getID string) string {
	return fmt.Sprintf("https://www.bestchange.ru/click.php?id=%s&from=%s&to=%s&city=0", exchangerID, giveID, getID)
}
