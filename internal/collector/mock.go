package collector

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"SwingScout/internal/model"
)

// MockFetcher returns deterministic synthetic data for development and tests.
// Each symbol gets its own reproducible random walk.
type MockFetcher struct {
	mu      sync.Mutex
	Prices  map[string]float64 // latest-price overrides
	History map[string][]model.PriceBar
	Fail    map[string]bool
	Now     func() time.Time
	calls   int
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Prices:  map[string]float64{},
		History: map[string][]model.PriceBar{},
		Fail:    map[string]bool{},
		Now:     time.Now,
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many fetches were served.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockFetcher) GetHistory(_ context.Context, _ model.Market, symbol string, lookbackDays int, interval Interval) ([]model.PriceBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Fail[symbol] {
		return nil, unavailable("mock %s: forced failure", symbol)
	}
	if bars, ok := m.History[symbol]; ok {
		return bars, nil
	}
	bars := generateMockBars(symbol, lookbackDays*5/7, m.Now())
	if interval == Weekly {
		return aggregateDailyToWeekly(bars), nil
	}
	return bars, nil
}

func (m *MockFetcher) GetLatestPrice(_ context.Context, _ model.Market, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Fail[symbol] {
		return 0, unavailable("mock %s: forced failure", symbol)
	}
	if p, ok := m.Prices[symbol]; ok {
		return p, nil
	}
	if bars, ok := m.History[symbol]; ok && len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	bars := generateMockBars(symbol, 2, m.Now())
	return bars[len(bars)-1].Close, nil
}

// generateMockBars builds count trading-day bars ending at end.
func generateMockBars(symbol string, count int, end time.Time) []model.PriceBar {
	if count < 1 {
		count = 1
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	seed := h.Sum64()
	base := 50 + float64(seed%450)

	bars := make([]model.PriceBar, count)
	day := end.AddDate(0, 0, -count*7/5)
	price := base
	for i := 0; i < count; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		wave := math.Sin(float64(i)/6+float64(seed%7)) * 0.012
		drift := 0.0008 * float64(int(seed%3)-1)
		open := price
		price *= 1 + drift + wave
		bars[i] = model.PriceBar{
			Time:   day,
			Open:   open,
			High:   math.Max(open, price) * 1.006,
			Low:    math.Min(open, price) * 0.994,
			Close:  price,
			Volume: 1e6 * (1 + 0.3*math.Cos(float64(i)/4)),
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}
