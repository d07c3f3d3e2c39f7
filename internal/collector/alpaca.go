package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"FallScope/internal/model"
)

// BarsClient is the part of the Alpaca market data client the fetcher uses.
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFetcher implements Fetcher using Alpaca's historical bars endpoint.
// Only US equities are available there.
type AlpacaFetcher struct {
	client BarsClient
	loc    *time.Location
}

// NewAlpacaFetcher creates a fetcher authenticated with the given keys.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return NewAlpacaFetcherWithClient(marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}))
}

// NewAlpacaFetcherWithClient wraps an existing client.
func NewAlpacaFetcherWithClient(client BarsClient) *AlpacaFetcher {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &AlpacaFetcher{client: client, loc: loc}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Split,
		Start:      model.Day(start, time.UTC),
		End:        model.Day(end, time.UTC).AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars %s: %w", symbol, err)
	}

	bars := make([]model.PriceBar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, model.PriceBar{
			Date:   model.Day(b.Timestamp, f.loc),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}

	bars = clip(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}
