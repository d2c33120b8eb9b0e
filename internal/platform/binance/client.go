// Package binance implements the Binance venue on top of the official REST
// API via go-binance. Market discovery and tickers are public; the per-asset
// fee schedule endpoint is signed with the configured API key pair.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gbinance "github.com/adshao/go-binance/v2"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// Client is the Binance implementation of domain.Exchange.
type Client struct {
	client  *gbinance.Client
	tracked map[string]bool
}

// New creates a Binance client. The key pair is required only for
// GetCurrenciesFees; the public endpoints work without it. currencies is the
// tracked base-asset universe used to filter the symbol listing.
func New(apiKey, apiSecret string, currencies []string) *Client {
	client := gbinance.NewClient(apiKey, apiSecret)
	client.HTTPClient = &http.Client{Timeout: 10 * time.Second}

	tracked := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		tracked[c] = true
	}
	return &Client{client: client, tracked: tracked}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return "Binance" }

// GetMarketData returns the tradable USDT spot pairs for the tracked asset
// universe, with zeroed bid/ask quotes to be filled by the ticker refresh.
func (c *Client) GetMarketData(ctx context.Context) (map[string]*domain.AssetQuote, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: get exchange info: %w", err)
	}

	pairs := make(map[string]*domain.AssetQuote)
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.QuoteAsset != "USDT" {
			continue
		}
		if !c.tracked[s.BaseAsset] {
			continue
		}
		pairs[s.Symbol] = &domain.AssetQuote{
			Symbol:   s.Symbol,
			Asset:    s.BaseAsset,
			SpotLink: SpotTradeLink(s.BaseAsset),
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("binance: %w: no tracked USDT pairs in listing", domain.ErrNoMarketData)
	}
	return pairs, nil
}

// GetTickersData returns the current best bid/ask for every spot symbol.
func (c *Client) GetTickersData(ctx context.Context) ([]domain.TickerData, error) {
	book, err := c.client.NewListBookTickersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: get book tickers: %w", err)
	}

	tickers := make([]domain.TickerData, 0, len(book))
	for _, t := range book {
		bid, errBid := strconv.ParseFloat(t.BidPrice, 64)
		ask, errAsk := strconv.ParseFloat(t.AskPrice, 64)
		if errBid != nil || errAsk != nil {
			continue
		}
		tickers = append(tickers, domain.TickerData{
			Symbol:   t.Symbol,
			BidPrice: bid,
			AskPrice: ask,
		})
	}
	return tickers, nil
}

// GetCurrenciesFees returns every asset's withdrawal/deposit network options.
// This hits the signed capital config endpoint; go-binance handles the HMAC
// query signature and the X-MBX-APIKEY header.
func (c *Client) GetCurrenciesFees(ctx context.Context) (map[string][]domain.FeeOption, error) {
	coins, err := c.client.NewGetAllCoinsInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: get coins info: %w", err)
	}

	fees := make(map[string][]domain.FeeOption, len(coins))
	for _, coin := range coins {
		options := make([]domain.FeeOption, 0, len(coin.NetworkList))
		for _, network := range coin.NetworkList {
			fee, err := strconv.ParseFloat(network.WithdrawFee, 64)
			if err != nil {
				continue
			}
			options = append(options, domain.FeeOption{
				NetworkName:     network.Name,
				Network:         network.Network,
				Fee:             fee,
				WithdrawEnabled: network.WithdrawEnable,
				DepositEnabled:  network.DepositEnable,
			})
		}
		if len(options) > 0 {
			fees[coin.Coin] = options
		}
	}
	return fees, nil
}

// SpotTradeLink returns the spot trading page for an asset's USDT pair.
func SpotTradeLink(asset string) string {
	return fmt.Sprintf("https://www.binance.com/ru/trade/%s_USDT?type=spot", asset)
}
