package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwingScout/internal/model"
)

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func newRec(symbol string, market model.Market, added time.Time) *model.Recommendation {
	return &model.Recommendation{
		Market:        market,
		Symbol:        symbol,
		DateAdded:     added,
		EntryPrice:    100,
		TargetPrice:   110,
		StopLoss:      95,
		TargetPct:     10,
		SLPct:         5,
		EstimatedDays: 12,
		RiskReward:    2,
		CurrentPrice:  100,
		MaxPrice:      100,
		MinPrice:      100,
		Status:        model.StatusActive,
		Sector:        "Technology",
		CreatedAt:     added,
		LastUpdated:   added,
	}
}

// forEachRecorder runs the same contract against every implementation.
func forEachRecorder(t *testing.T, fn func(t *testing.T, r Recorder)) {
	t.Run("sqlite", func(t *testing.T) {
		r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "test.db"), nil)
		require.NoError(t, err)
		defer r.Close()
		fn(t, r)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRecorder())
	})
}

func TestInsert_SuppressesActiveDuplicates(t *testing.T) {
	forEachRecorder(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()

		a := newRec("AAPL", model.MarketUS, day)
		ok, err := r.Insert(ctx, a)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotZero(t, a.ID)

		ok, err = r.Insert(ctx, newRec("AAPL", model.MarketUS, day))
		require.NoError(t, err)
		assert.False(t, ok, "same identity while Active")

		ok, err = r.Insert(ctx, newRec("AAPL", model.MarketIndian, day))
		require.NoError(t, err)
		assert.True(t, ok, "different market")

		ok, err = r.Insert(ctx, newRec("AAPL", model.MarketUS, day.AddDate(0, 0, 1)))
		require.NoError(t, err)
		assert.True(t, ok, "different day")

		// Once resolved, the identity is free again.
		hit := day
		_, err = r.ApplyUpdate(ctx, PriceUpdate{ID: a.ID, CurrentPrice: 111, MaxPrice: 111, MinPrice: 100,
			Status: model.StatusTargetHit, HitDate: &hit, ExitPrice: 111, At: day})
		require.NoError(t, err)
		ok, err = r.Insert(ctx, newRec("AAPL", model.MarketUS, day))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestApplyUpdate_OnlyActive(t *testing.T) {
	forEachRecorder(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		rec := newRec("INFY", model.MarketIndian, day)
		_, err := r.Insert(ctx, rec)
		require.NoError(t, err)

		hit := day.AddDate(0, 0, 2)
		ok, err := r.ApplyUpdate(ctx, PriceUpdate{ID: rec.ID, CurrentPrice: 94, MaxPrice: 100, MinPrice: 94,
			DaysElapsed: 2, CurrentReturnPct: -6, Status: model.StatusSLHit, HitDate: &hit, ExitPrice: 94, At: hit})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.ApplyUpdate(ctx, PriceUpdate{ID: rec.ID, CurrentPrice: 200, MaxPrice: 200, MinPrice: 94,
			Status: model.StatusActive, At: hit})
		require.NoError(t, err)
		assert.False(t, ok, "terminal rows are never updated")

		rows, err := r.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		got := rows[0]
		assert.Equal(t, model.StatusSLHit, got.Status)
		assert.Equal(t, model.StatusSLHit, got.Outcome)
		assert.Equal(t, 94.0, got.CurrentPrice)
		assert.Equal(t, 94.0, got.ExitPrice)
		require.NotNil(t, got.HitDate)
		assert.Equal(t, "2024-06-05", got.HitDate.Format(model.DateLayout))
	})
}

func TestArchiveAndCleanup(t *testing.T) {
	forEachRecorder(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		old := newRec("OLD", model.MarketUS, day.AddDate(0, 0, -60))
		recent := newRec("NEW", model.MarketUS, day)
		open := newRec("OPEN", model.MarketUS, day.AddDate(0, 0, -60))
		for _, rec := range []*model.Recommendation{old, recent, open} {
			_, err := r.Insert(ctx, rec)
			require.NoError(t, err)
		}
		for _, rec := range []*model.Recommendation{old, recent} {
			_, err := r.ApplyUpdate(ctx, PriceUpdate{ID: rec.ID, CurrentPrice: 111, MaxPrice: 111, MinPrice: 100,
				Status: model.StatusTargetHit, ExitPrice: 111, At: day})
			require.NoError(t, err)
		}

		n, err := r.ArchiveCompleted(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = r.ArchiveCompleted(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, 0, n, "archive is idempotent")

		archived, err := r.List(ctx, Filter{Status: model.StatusArchived})
		require.NoError(t, err)
		require.Len(t, archived, 2)
		for _, a := range archived {
			assert.Equal(t, model.StatusTargetHit, a.Outcome)
		}

		n, err = r.DeleteResolvedBefore(ctx, day.AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.Equal(t, 1, n, "only the old archived row goes")

		rest, err := r.List(ctx, Filter{})
		require.NoError(t, err)
		symbols := []string{}
		for _, x := range rest {
			symbols = append(symbols, x.Symbol)
		}
		assert.ElementsMatch(t, []string{"NEW", "OPEN"}, symbols)
	})
}

func TestList_Filters(t *testing.T) {
	forEachRecorder(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		for i, sym := range []string{"A", "B", "C"} {
			_, err := r.Insert(ctx, newRec(sym, model.MarketUS, day.AddDate(0, 0, i)))
			require.NoError(t, err)
		}
		_, err := r.Insert(ctx, newRec("TCS", model.MarketIndian, day))
		require.NoError(t, err)

		us, err := r.List(ctx, Filter{Market: model.MarketUS})
		require.NoError(t, err)
		require.Len(t, us, 3)
		assert.Equal(t, "C", us[0].Symbol, "newest first")

		limited, err := r.List(ctx, Filter{Status: model.StatusActive, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})
}

func TestScanHistory(t *testing.T) {
	forEachRecorder(t, func(t *testing.T, r Recorder) {
		ctx := context.Background()
		first := &model.ScanRun{ID: "run-1", Market: model.MarketUS, StartedAt: day, Duration: 1500 * time.Millisecond,
			Scanned: 10, Qualified: 3, Inserted: 2, Duplicates: 1, Top: "AAPL,MSFT"}
		second := &model.ScanRun{ID: "run-2", Market: model.MarketIndian, StartedAt: day.Add(time.Hour), Scanned: 5, Failures: 1}
		require.NoError(t, r.RecordScan(ctx, first))
		require.NoError(t, r.RecordScan(ctx, second))

		runs, err := r.ListScans(ctx, 0)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].ID)
		assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
		assert.Equal(t, "AAPL,MSFT", runs[1].Top)

		runs, err = r.ListScans(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})
}
