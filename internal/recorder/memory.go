package recorder

import (
	"context"
	"sort"
	"sync"
	"time"

	"SwingScout/internal/model"
)

// MemoryRecorder keeps rows in process memory. It backs dry-run scans and
// tests; nothing survives Close.
type MemoryRecorder struct {
	mu     sync.RWMutex
	nextID int64
	rows   []model.Recommendation
	scans  []model.ScanRun
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (m *MemoryRecorder) Insert(_ context.Context, rec *model.Recommendation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := identity(rec)
	for i := range m.rows {
		if m.rows[i].Status == model.StatusActive && identity(&m.rows[i]) == key {
			return false, nil
		}
	}
	m.nextID++
	rec.ID = m.nextID
	m.rows = append(m.rows, *rec)
	return true, nil
}

func (m *MemoryRecorder) List(_ context.Context, f Filter) ([]model.Recommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Recommendation
	for _, r := range m.rows {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Market != "" && r.Market != f.Market {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].DateAdded.After(out[j].DateAdded)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRecorder) ApplyUpdate(_ context.Context, u PriceUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rows {
		r := &m.rows[i]
		if r.ID != u.ID {
			continue
		}
		if r.Status != model.StatusActive {
			return false, nil
		}
		r.CurrentPrice = u.CurrentPrice
		r.MaxPrice = u.MaxPrice
		r.MinPrice = u.MinPrice
		r.DaysElapsed = u.DaysElapsed
		r.CurrentReturnPct = u.CurrentReturnPct
		r.Status = u.Status
		if u.Status.Terminal() {
			r.Outcome = u.Status
		}
		r.HitDate = u.HitDate
		r.ExitPrice = u.ExitPrice
		r.LastUpdated = u.At
		return true, nil
	}
	return false, nil
}

func (m *MemoryRecorder) ArchiveCompleted(_ context.Context, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.rows {
		r := &m.rows[i]
		if r.Status.Terminal() {
			r.Outcome = r.Status
			r.Status = model.StatusArchived
			r.LastUpdated = at
			n++
		}
	}
	return n, nil
}

func (m *MemoryRecorder) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := cutoff.Format(model.DateLayout)
	kept := m.rows[:0]
	n := 0
	for _, r := range m.rows {
		if resolved(r.Status) && r.DateAdded.Format(model.DateLayout) < day {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *MemoryRecorder) RecordScan(_ context.Context, run *model.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans = append(m.scans, *run)
	return nil
}

func (m *MemoryRecorder) ListScans(_ context.Context, limit int) ([]model.ScanRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ScanRun, 0, len(m.scans))
	for i := len(m.scans) - 1; i >= 0; i-- {
		out = append(out, m.scans[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRecorder) Close() error { return nil }
