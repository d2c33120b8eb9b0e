// Package bybit implements the Bybit venue against the v5 REST API. Market
// discovery and tickers are public; the coin-info endpoint (fee schedules) is
// signed with X-BAPI-* headers.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/crypto"
	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

const recvWindow = 5000

// Client is the Bybit implementation of domain.Exchange.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	tracked    map[string]bool
	httpClient *http.Client
}

// New creates a Bybit client. The key pair is required only for
// GetCurrenciesFees. currencies is the tracked base-asset universe used to
// filter the symbol listing.
func New(apiKey, apiSecret string, currencies []string) *Client {
	tracked := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		tracked[c] = true
	}
	return &Client{
		baseURL: "https://api.bybit.com",
		auth:    &crypto.HMACAuth{Key: apiKey, Secret: apiSecret},
		tracked: tracked,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return "Bybit" }

// envelope is the common Bybit v5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// doGet performs a GET against path, optionally attaching signed headers, and
// returns the raw result payload after unwrapping the v5 envelope.
func (c *Client) doGet(ctx context.Context, path string, signed bool) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if signed {
		for k, v := range c.auth.BybitHeaders(recvWindow) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body[:min(len(body), 256)]))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.RetCode != 0 {
		return nil, fmt.Errorf("api error %d: %s", env.RetCode, env.RetMsg)
	}
	return env.Result, nil
}

type instrumentsResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		Status    string `json:"status"`
		BaseCoin  string `json:"baseCoin"`
		QuoteCoin string `json:"quoteCoin"`
	} `json:"list"`
}

// GetMarketData returns the tradable USDT spot pairs for the tracked asset
// universe, with zeroed bid/ask quotes to be filled by the ticker refresh.
func (c *Client) GetMarketData(ctx context.Context) (map[string]*domain.AssetQuote, error) {
	result, err := c.doGet(ctx, "/v5/market/instruments-info?category=spot", false)
	if err != nil {
		return nil, fmt.Errorf("bybit: get instruments: %w", err)
	}

	var instruments instrumentsResult
	if err := json.Unmarshal(result, &instruments); err != nil {
		return nil, fmt.Errorf("bybit: decode instruments: %w", err)
	}

	pairs := make(map[string]*domain.AssetQuote)
	for _, inst := range instruments.List {
		if inst.Status != "Trading" || inst.QuoteCoin != "USDT" {
			continue
		}
		if !c.tracked[inst.BaseCoin] {
			continue
		}
		pairs[inst.Symbol] = &domain.AssetQuote{
			Symbol:   inst.Symbol,
			Asset:    inst.BaseCoin,
			SpotLink: SpotTradeLink(inst.BaseCoin),
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("bybit: %w: no tracked USDT pairs in listing", domain.ErrNoMarketData)
	}
	return pairs, nil
}

type tickersResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		Bid1Price string `json:"bid1Price"`
		Ask1Price string `json:"ask1Price"`
	} `json:"list"`
}

// GetTickersData returns the current best bid/ask for every spot symbol.
func (c *Client) GetTickersData(ctx context.Context) ([]domain.TickerData, error) {
	result, err := c.doGet(ctx, "/v5/market/tickers?category=spot", false)
	if err != nil {
		return nil, fmt.Errorf("bybit: get tickers: %w", err)
	}

	var parsed tickersResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("bybit: decode tickers: %w", err)
	}

	tickers := make([]domain.TickerData, 0, len(parsed.List))
	for _, t := range parsed.List {
		bid, errBid := strconv.ParseFloat(t.Bid1Price, 64)
		ask, errAsk := strconv.ParseFloat(t.Ask1Price, 64)
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

type coinInfoResult struct {
	Rows []struct {
		Coin   string `json:"coin"`
		Chains []struct {
			Chain        string `json:"chain"`
			ChainType    string `json:"chainType"`
			WithdrawFee  string `json:"withdrawFee"`
			ChainDeposit string `json:"chainDeposit"`
			ChainWith    string `json:"chainWithdraw"`
		} `json:"chains"`
	} `json:"rows"`
}

// GetCurrenciesFees returns every asset's withdrawal/deposit network options
// via the signed coin-info endpoint.
func (c *Client) GetCurrenciesFees(ctx context.Context) (map[string][]domain.FeeOption, error) {
	result, err := c.doGet(ctx, "/v5/asset/coin/query-info", true)
	if err != nil {
		return nil, fmt.Errorf("bybit: get coin info: %w", err)
	}

	var parsed coinInfoResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("bybit: decode coin info: %w", err)
	}

	fees := make(map[string][]domain.FeeOption, len(parsed.Rows))
	for _, row := range parsed.Rows {
		options := make([]domain.FeeOption, 0, len(row.Chains))
		for _, chain := range row.Chains {
			fee, err := strconv.ParseFloat(chain.WithdrawFee, 64)
			if err != nil {
				// An empty withdrawFee means withdrawals are off for the chain.
				fee = 0
			}
			options = append(options, domain.FeeOption{
				NetworkName:     chain.ChainType,
				Network:         chain.Chain,
				Fee:             fee,
				WithdrawEnabled: chain.ChainWith == "1",
				DepositEnabled:  chain.ChainDeposit == "1",
			})
		}
		if len(options) > 0 {
			fees[row.Coin] = options
		}
	}
	return fees, nil
}

// SpotTradeLink returns the spot trading page for an asset's USDT pair.
func SpotTradeLink(asset string) string {
	return fmt.Sprintf("https://www.bybit.com/ru-RU/trade/spot/%s/USDT", asset)
}
