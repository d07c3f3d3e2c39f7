package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"FallScope/internal/barstore"
	"FallScope/internal/model"
)

// Collector fetches the daily bars of a symbol universe through a Fetcher,
// consulting the bar cache first.
type Collector struct {
	fetcher    Fetcher
	store      barstore.Store
	limiter    *rate.Limiter
	workers    int
	maxRetries int
	baseDelay  time.Duration
	log        *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

func WithStore(s barstore.Store) Option {
	return func(c *Collector) { c.store = s }
}

// WithRateLimit caps provider requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Collector) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRetry sets how many times a failed fetch is retried and the first
// backoff delay, which doubles on each attempt.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Collector) {
		c.maxRetries = max(maxRetries, 0)
		c.baseDelay = baseDelay
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// NewCollector creates a Collector with a no-op cache, 2 requests/second,
// 4 workers and 2 retries unless overridden.
func NewCollector(fetcher Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher:    fetcher,
		store:      barstore.NewNoopStore(),
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		workers:    4,
		maxRetries: 2,
		baseDelay:  time.Second,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches every symbol over [start, end]. Symbols that fail or have
// no bars are left out of the map and reported as DataUnavailable warnings.
// The error is non-nil only when ctx is done.
func (c *Collector) Collect(ctx context.Context, symbols []string, start, end time.Time) (map[string]*model.PriceSeries, []model.Warning, error) {
	var (
		mu       sync.Mutex
		series   = make(map[string]*model.PriceSeries)
		warnings []model.Warning
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, sym := range normalizeSymbols(symbols) {
		g.Go(func() error {
			bars, err := c.fetchOne(gctx, sym, start, end)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Warn("no data, skipping", zap.String("symbol", sym), zap.Error(err))
				warnings = append(warnings, model.Warning{
					Symbol: sym,
					Kind:   model.WarnDataUnavailable,
					Stage:  model.StageFetch,
					Err:    err,
				})
				return nil
			}
			series[sym] = model.NewPriceSeries(sym, bars)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Symbol < warnings[j].Symbol })
	c.log.Info("collection finished",
		zap.String("provider", c.fetcher.Name()),
		zap.Int("symbols", len(series)),
		zap.Int("skipped", len(warnings)))
	return series, warnings, nil
}

func (c *Collector) fetchOne(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	bars, hit, err := c.store.Load(ctx, symbol, start, end)
	if err != nil {
		c.log.Warn("bar cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}
	if hit && len(bars) > 0 {
		c.log.Debug("bar cache hit", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
		return bars, nil
	}

	bars, err = c.fetchWithRetry(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	if err := c.store.Save(ctx, symbol, start, end, bars); err != nil {
		c.log.Warn("bar cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return bars, nil
}

// fetchWithRetry retries transient failures with exponential backoff.
// ErrNoData is final.
func (c *Collector) fetchWithRetry(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		bars, err := c.fetcher.FetchDailyBars(ctx, symbol, start, end)
		if err == nil {
			return bars, nil
		}
		if errors.Is(err, ErrNoData) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if i == c.maxRetries {
			break
		}
		backoff := c.baseDelay * time.Duration(1<<uint(i))
		c.log.Warn("fetch failed, retrying",
			zap.String("symbol", symbol),
			zap.Int("attempt", i+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries+1, lastErr)
}

// normalizeSymbols trims, upper-cases and de-duplicates symbols, keeping
// their first-seen order.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
