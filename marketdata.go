package schwab

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// MarketDataService handles quote and price-history lookups. These
// endpoints are symbol-scoped, not account-scoped, so they never touch
// the account resolver.
type MarketDataService struct {
	client *Client
}

// Quote represents market data for one symbol.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Description      string          `json:"description,omitempty"`
	BidPrice         decimal.Decimal `json:"bidPrice"`
	BidSize          int64           `json:"bidSize,omitempty"`
	AskPrice         decimal.Decimal `json:"askPrice"`
	AskSize          int64           `json:"askSize,omitempty"`
	LastPrice        decimal.Decimal `json:"lastPrice"`
	OpenPrice        decimal.Decimal `json:"openPrice"`
	HighPrice        decimal.Decimal `json:"highPrice"`
	LowPrice         decimal.Decimal `json:"lowPrice"`
	ClosePrice       decimal.Decimal `json:"closePrice"`
	NetChange        decimal.Decimal `json:"netChange"`
	NetPercentChange decimal.Decimal `json:"netPercentChange,omitempty"`
	TotalVolume      int64           `json:"totalVolume"`
	Exchange         string          `json:"exchangeName,omitempty"`
	QuoteTime        int64           `json:"quoteTime,omitempty"`
}

// Quotes retrieves quotes for one or more symbols, keyed by symbol.
func (s *MarketDataService) Quotes(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ErrInvalidRequest)
	}

	v := url.Values{}
	v.Set("symbols", strings.Join(symbols, ","))

	var quotes map[string]Quote
	if err := s.client.get(ctx, "quotes?"+v.Encode(), &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// Quote retrieves the quote for a single symbol.
func (s *MarketDataService) Quote(ctx context.Context, symbol string) (*Quote, error) {
	quotes, err := s.Quotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: no quote for symbol %q", ErrNotFound, symbol)
	}
	return &q, nil
}

// Candle is one bar of price history.
type Candle struct {
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   int64           `json:"volume"`
	Datetime int64           `json:"datetime"`
}

// PriceHistoryParams selects the period and granularity of price
// history. Zero values fall back to the API defaults.
type PriceHistoryParams struct {
	PeriodType    string // day, month, year, ytd
	Period        int
	FrequencyType string // minute, daily, weekly, monthly
	Frequency     int
}

func (p *PriceHistoryParams) query(symbol string) string {
	v := url.Values{}
	v.Set("symbol", symbol)
	if p != nil {
		if p.PeriodType != "" {
			v.Set("periodType", p.PeriodType)
		}
		if p.Period > 0 {
			v.Set("period", fmt.Sprint(p.Period))
		}
		if p.FrequencyType != "" {
			v.Set("frequencyType", p.FrequencyType)
		}
		if p.Frequency > 0 {
			v.Set("frequency", fmt.Sprint(p.Frequency))
		}
	}
	return v.Encode()
}

// PriceHistory retrieves historical candles for a symbol.
func (s *MarketDataService) PriceHistory(ctx context.Context, symbol string, params *PriceHistoryParams) ([]Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}

	var resp struct {
		Symbol  string   `json:"symbol"`
		Candles []Candle `json:"candles"`
		Empty   bool     `json:"empty"`
	}
	if err := s.client.get(ctx, "pricehistory?"+params.query(symbol), &resp); err != nil {
		return nil, err
	}
	return resp.Candles, nil
}
