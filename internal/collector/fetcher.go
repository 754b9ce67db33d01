package collector

import (
	"context"

	"SwingScout/internal/model"
)

// Interval is a bar size understood by every fetcher.
type Interval string

const (
	Daily  Interval = "1d"
	Weekly Interval = "1wk"
)

// Fetcher is the price-data collaborator. Failures are per-symbol soft errors
// and wrap model.ErrDataUnavailable.
type Fetcher interface {
	// GetHistory returns bars ascending by time covering lookbackDays calendar days.
	GetHistory(ctx context.Context, market model.Market, symbol string, lookbackDays int, interval Interval) ([]model.PriceBar, error)
	GetLatestPrice(ctx context.Context, market model.Market, symbol string) (float64, error)
	Name() string
}
