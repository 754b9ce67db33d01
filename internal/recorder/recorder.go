package recorder

import (
	"context"
	"time"

	"SwingScout/internal/model"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status model.Status
	Market model.Market
	Limit  int
}

// PriceUpdate carries the mutable tracking fields of one row. It is applied
// atomically and only while the row is still Active.
type PriceUpdate struct {
	ID               int64
	CurrentPrice     float64
	MaxPrice         float64
	MinPrice         float64
	DaysElapsed      int
	CurrentReturnPct float64
	Status           model.Status
	HitDate          *time.Time
	ExitPrice        float64
	At               time.Time
}

// Recorder is the row store behind the recommendation tracker.
type Recorder interface {
	// Insert appends rec unless an Active row with the same identity exists.
	// It reports false for a suppressed duplicate and sets rec.ID on insert.
	Insert(ctx context.Context, rec *model.Recommendation) (bool, error)
	List(ctx context.Context, f Filter) ([]model.Recommendation, error)
	// ApplyUpdate reports false when the row is no longer Active.
	ApplyUpdate(ctx context.Context, u PriceUpdate) (bool, error)
	ArchiveCompleted(ctx context.Context, at time.Time) (int, error)
	// DeleteResolvedBefore removes Archived and terminal rows added before cutoff.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
	RecordScan(ctx context.Context, run *model.ScanRun) error
	ListScans(ctx context.Context, limit int) ([]model.ScanRun, error)
	Close() error
}

func identity(r *model.Recommendation) string {
	return string(r.Market) + "|" + r.Symbol + "|" + r.DateAdded.Format(model.DateLayout)
}

func resolved(s model.Status) bool {
	return s == model.StatusArchived || s.Terminal()
}
