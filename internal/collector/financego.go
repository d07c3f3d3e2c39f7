package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"FallScope/internal/model"
)

// FinanceGoFetcher implements Fetcher on top of the finance-go chart client.
// The client does not take a context, so cancellation is only checked
// before the request starts.
type FinanceGoFetcher struct{}

func NewFinanceGoFetcher() *FinanceGoFetcher { return &FinanceGoFetcher{} }

func (f *FinanceGoFetcher) Name() string { return "financego" }

func (f *FinanceGoFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	from := model.Day(start, time.UTC)
	to := model.Day(end, time.UTC).AddDate(0, 0, 1)

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})

	var bars []model.PriceBar
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, model.PriceBar{
			Date:   model.Day(time.Unix(int64(bar.Timestamp), 0), time.UTC),
			Open:   toFloat(bar.Open),
			High:   toFloat(bar.High),
			Low:    toFloat(bar.Low),
			Close:  toFloat(bar.Close),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("finance-go chart %s: %w", symbol, err)
	}

	bars = clip(bars, start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("finance-go %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func toFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
