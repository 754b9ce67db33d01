package tracker

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwingScout/internal/model"
	"SwingScout/internal/recorder"
)

var monday = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

func candidate(symbol string) model.Candidate {
	return model.Candidate{
		Symbol:        symbol,
		Sector:        "Technology",
		EntryPrice:    100,
		TargetPrice:   110,
		StopLoss:      95,
		TargetPct:     10,
		SLPct:         5,
		EstimatedDays: 10,
		RiskReward:    2,
		Strength:      4,
		Rationale:     []string{"EMA alignment", "RSI 55.0 in 45-70"},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTracker(t *testing.T) (*Tracker, *clock) {
	t.Helper()
	clk := &clock{now: monday}
	return New(recorder.NewMemoryRecorder(), nil, WithClock(clk.Now)), clk
}

func fixedPrice(prices map[string]float64) PriceLookup {
	return func(_ context.Context, _ model.Market, symbol string) (float64, error) {
		p, ok := prices[symbol]
		if !ok {
			return 0, model.ErrDataUnavailable
		}
		return p, nil
	}
}

func active(t *testing.T, tr *Tracker) []model.Recommendation {
	t.Helper()
	rows, err := tr.List(context.Background(), recorder.Filter{Status: model.StatusActive})
	require.NoError(t, err)
	return rows
}

func bySymbol(t *testing.T, tr *Tracker, symbol string) model.Recommendation {
	t.Helper()
	rows, err := tr.List(context.Background(), recorder.Filter{})
	require.NoError(t, err)
	for _, r := range rows {
		if r.Symbol == symbol {
			return r
		}
	}
	t.Fatalf("no row for %s", symbol)
	return model.Recommendation{}
}

func TestUpdatePrices_Scenario(t *testing.T) {
	tr, clk := newTracker(t)
	ctx := context.Background()

	res, err := tr.Add(ctx, []model.Candidate{candidate("HIT"), candidate("STOP"), candidate("HOLD")}, model.MarketUS)
	require.NoError(t, err)
	require.Equal(t, 3, res.Inserted)

	clk.Advance(48 * time.Hour)
	up, err := tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"HIT": 111, "STOP": 94, "HOLD": 102}))
	require.NoError(t, err)

	assert.Equal(t, 3, up.Updated)
	assert.Equal(t, 1, up.TargetHits)
	assert.Equal(t, 1, up.SLHits)
	assert.Equal(t, 0, up.Failures)
	assert.Len(t, up.Transitions, 2)

	hit := bySymbol(t, tr, "HIT")
	assert.Equal(t, model.StatusTargetHit, hit.Status)
	require.NotNil(t, hit.HitDate)
	assert.Equal(t, "2024-06-05", hit.HitDate.Format(model.DateLayout))
	assert.Equal(t, 111.0, hit.ExitPrice)

	stop := bySymbol(t, tr, "STOP")
	assert.Equal(t, model.StatusSLHit, stop.Status)
	assert.Equal(t, 94.0, stop.MinPrice)

	hold := bySymbol(t, tr, "HOLD")
	assert.Equal(t, model.StatusActive, hold.Status)
	assert.Equal(t, 2.0, hold.CurrentReturnPct)
	assert.Equal(t, 2, hold.DaysElapsed)
	assert.Nil(t, hold.HitDate)
}

func TestAdd_Idempotent(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	batch := []model.Candidate{candidate("AAPL"), candidate("MSFT")}

	first, err := tr.Add(ctx, batch, model.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, AddResult{Inserted: 2}, first)

	second, err := tr.Add(ctx, batch, model.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, AddResult{Duplicates: 2}, second)

	assert.Len(t, active(t, tr), 2)
}

func TestAdd_Empty(t *testing.T) {
	tr, _ := newTracker(t)
	res, err := tr.Add(context.Background(), nil, model.MarketIndian)
	require.NoError(t, err)
	assert.Equal(t, AddResult{}, res)
}

func TestAdd_RejectsInvalidCandidates(t *testing.T) {
	tr, _ := newTracker(t)
	inverted := candidate("BAD")
	inverted.StopLoss = 101
	greedy := candidate("RISKY")
	greedy.StopLoss = 90 // risk 10 > half of reward 10
	ulp := candidate("ULP")
	ulp.StopLoss = math.Nextafter(95, 0) // risk one ulp above half of reward
	edge := candidate("EDGE")            // risk exactly half of reward

	res, err := tr.Add(context.Background(), []model.Candidate{inverted, greedy, ulp, edge, candidate("OK")}, model.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, AddResult{Inserted: 2, Rejected: 3}, res)
}

func TestAdd_InitialTrackingFields(t *testing.T) {
	tr, _ := newTracker(t)
	_, err := tr.Add(context.Background(), []model.Candidate{candidate("NVDA")}, model.MarketUS)
	require.NoError(t, err)

	row := bySymbol(t, tr, "NVDA")
	assert.Equal(t, row.EntryPrice, row.CurrentPrice)
	assert.Equal(t, row.EntryPrice, row.MaxPrice)
	assert.Equal(t, row.EntryPrice, row.MinPrice)
	assert.Equal(t, "2024-06-03", row.DateAdded.Format(model.DateLayout))
	assert.Equal(t, "EMA alignment; RSI 55.0 in 45-70", row.SelectionReason)
}

func TestUpdatePrices_NoActiveRowsSkipsLookup(t *testing.T) {
	tr, _ := newTracker(t)
	called := false
	res, err := tr.UpdatePrices(context.Background(), func(context.Context, model.Market, string) (float64, error) {
		called = true
		return 100, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, res.TargetHits)
	assert.Equal(t, 0, res.SLHits)
}

func TestUpdatePrices_TerminalRowsFrozen(t *testing.T) {
	tr, clk := newTracker(t)
	ctx := context.Background()
	_, err := tr.Add(ctx, []model.Candidate{candidate("HIT"), candidate("STOP")}, model.MarketUS)
	require.NoError(t, err)

	_, err = tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"HIT": 115, "STOP": 90}))
	require.NoError(t, err)
	hitBefore := bySymbol(t, tr, "HIT")
	stopBefore := bySymbol(t, tr, "STOP")

	clk.Advance(72 * time.Hour)
	calls := 0
	res, err := tr.UpdatePrices(ctx, func(context.Context, model.Market, string) (float64, error) {
		calls++
		return 50, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, hitBefore, bySymbol(t, tr, "HIT"))
	assert.Equal(t, stopBefore, bySymbol(t, tr, "STOP"))
}

func TestUpdatePrices_MonotonicExtrema(t *testing.T) {
	tr, clk := newTracker(t)
	ctx := context.Background()
	_, err := tr.Add(ctx, []model.Candidate{candidate("SWING")}, model.MarketIndian)
	require.NoError(t, err)

	prevMax, prevMin := 100.0, 100.0
	for _, p := range []float64{104, 99, 107, 96, 101, 108, 97} {
		clk.Advance(time.Hour)
		_, err := tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"SWING": p}))
		require.NoError(t, err)

		row := bySymbol(t, tr, "SWING")
		require.Equal(t, model.StatusActive, row.Status)
		assert.GreaterOrEqual(t, row.MaxPrice, prevMax)
		assert.LessOrEqual(t, row.MinPrice, prevMin)
		prevMax, prevMin = row.MaxPrice, row.MinPrice
	}
	assert.Equal(t, 108.0, prevMax)
	assert.Equal(t, 96.0, prevMin)
}

func TestUpdatePrices_FetchFailureCounted(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	_, err := tr.Add(ctx, []model.Candidate{candidate("OK"), candidate("GONE"), candidate("ZERO")}, model.MarketUS)
	require.NoError(t, err)

	before := bySymbol(t, tr, "GONE")
	res, err := tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"OK": 101, "ZERO": 0}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Failures)
	assert.Equal(t, 0, res.TargetHits+res.SLHits)
	assert.Equal(t, before, bySymbol(t, tr, "GONE"))
}

func TestUpdatePrices_SymbolTimeout(t *testing.T) {
	tr := New(recorder.NewMemoryRecorder(), nil, WithSymbolTimeout(20*time.Millisecond))
	ctx := context.Background()
	_, err := tr.Add(ctx, []model.Candidate{candidate("HANG"), candidate("FAST")}, model.MarketUS)
	require.NoError(t, err)

	res, err := tr.UpdatePrices(ctx, func(ctx context.Context, _ model.Market, symbol string) (float64, error) {
		if symbol == "HANG" {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 103, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, 1, res.Updated)
}

func TestUpdatePrices_SingleFlight(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	_, err := tr.Add(ctx, []model.Candidate{candidate("A"), candidate("B"), candidate("C")}, model.MarketUS)
	require.NoError(t, err)

	var inFlight, peak int32
	lookup := func(context.Context, model.Market, string) (float64, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 101, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.UpdatePrices(ctx, lookup)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))

	last, result := tr.LastUpdate()
	assert.False(t, last.IsZero())
	assert.Equal(t, 3, result.Updated)
}

func TestUpdatePrices_CancelledContext(t *testing.T) {
	tr, _ := newTracker(t)
	_, err := tr.Add(context.Background(), []model.Candidate{candidate("A")}, model.MarketUS)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"A": 120}))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.StatusActive, bySymbol(t, tr, "A").Status)
}

func TestUpdatePrices_InterruptedPassKeepsPartialResult(t *testing.T) {
	tr, _ := newTracker(t)
	_, err := tr.Add(context.Background(), []model.Candidate{candidate("A"), candidate("B")}, model.MarketUS)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls int
	lookup := func(_ context.Context, _ model.Market, symbol string) (float64, error) {
		calls++
		cancel()
		return 120, nil
	}

	res, err := tr.UpdatePrices(ctx, lookup)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.TargetHits)
	require.Len(t, res.Transitions, 1)

	at, last := tr.LastUpdate()
	assert.Equal(t, monday, at)
	assert.Equal(t, 1, last.Updated)
	assert.Len(t, active(t, tr), 1)
}

func TestAdd_UsesTrackerCalendar(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 04:00 IST on June 4th is still June 3rd in UTC.
	early := time.Date(2024, 6, 4, 4, 0, 0, 0, ist)
	clk := &clock{now: early}
	tr := New(recorder.NewMemoryRecorder(), nil, WithClock(clk.Now), WithLocation(ist))
	ctx := context.Background()

	_, err = tr.Add(ctx, []model.Candidate{candidate("TCS")}, model.MarketIndian)
	require.NoError(t, err)
	row := bySymbol(t, tr, "TCS")
	assert.Equal(t, "2024-06-04", row.DateAdded.Format(model.DateLayout))

	clk.Advance(8 * time.Hour) // 12:00 IST, same trading day
	res, err := tr.Add(ctx, []model.Candidate{candidate("TCS")}, model.MarketIndian)
	require.NoError(t, err)
	assert.Equal(t, AddResult{Duplicates: 1}, res)

	clk.Advance(48 * time.Hour)
	_, err = tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"TCS": 101}))
	require.NoError(t, err)
	assert.Equal(t, 2, bySymbol(t, tr, "TCS").DaysElapsed)

	utc := New(recorder.NewMemoryRecorder(), nil, WithClock(func() time.Time { return early }))
	_, err = utc.Add(ctx, []model.Candidate{candidate("TCS")}, model.MarketIndian)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", bySymbol(t, utc, "TCS").DateAdded.Format(model.DateLayout))
}

func TestArchiveAndCleanup(t *testing.T) {
	clk := &clock{now: monday}
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "t.db"), nil)
	require.NoError(t, err)
	defer rec.Close()
	tr := New(rec, nil, WithClock(clk.Now))
	ctx := context.Background()

	_, err = tr.Add(ctx, []model.Candidate{candidate("WIN"), candidate("LOSS"), candidate("OPEN")}, model.MarketUS)
	require.NoError(t, err)
	_, err = tr.UpdatePrices(ctx, fixedPrice(map[string]float64{"WIN": 112, "LOSS": 93, "OPEN": 100}))
	require.NoError(t, err)

	n, err := tr.Archive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = tr.Archive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, model.StatusSLHit, bySymbol(t, tr, "LOSS").Outcome)

	_, err = tr.Cleanup(ctx, -1)
	assert.Error(t, err)

	n, err = tr.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rows are too recent")

	clk.Advance(40 * 24 * time.Hour)
	n, err = tr.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, active(t, tr), 1)
}

func TestAdvance(t *testing.T) {
	row := model.Recommendation{
		ID: 1, EntryPrice: 100, TargetPrice: 110, StopLoss: 95,
		MaxPrice: 105, MinPrice: 98, DateAdded: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	}
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, ny)

	u := Advance(row, 110, now, ny)
	assert.Equal(t, model.StatusTargetHit, u.Status, "target checked first and inclusive")
	assert.Equal(t, 7, u.DaysElapsed)
	assert.Equal(t, 110.0, u.MaxPrice)

	u = Advance(row, 95, now, ny)
	assert.Equal(t, model.StatusSLHit, u.Status)
	assert.Equal(t, 95.0, u.MinPrice)
	assert.Equal(t, -5.0, u.CurrentReturnPct)

	u = Advance(row, 100, now, ny)
	assert.Equal(t, model.StatusActive, u.Status)
	assert.Equal(t, 105.0, u.MaxPrice)
	assert.Equal(t, 98.0, u.MinPrice)
	assert.Nil(t, u.HitDate)
}
