// Package barstore caches fetched daily bars so repeated runs over the same
// range do not hit the provider again. Analysis results are never stored.
package barstore

import (
	"context"
	"time"

	"FallScope/internal/model"
)

// Store caches the bars of one (symbol, start, end) fetch.
type Store interface {
	// Load returns the cached bars and true on a hit.
	Load(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, bool, error)
	Save(ctx context.Context, symbol string, start, end time.Time, bars []model.PriceBar) error
	Close() error
}

// NoopStore is used when caching is disabled; every lookup misses.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (NoopStore) Load(context.Context, string, time.Time, time.Time) ([]model.PriceBar, bool, error) {
	return nil, false, nil
}

func (NoopStore) Save(context.Context, string, time.Time, time.Time, []model.PriceBar) error {
	return nil
}

func (NoopStore) Close() error { return nil }
