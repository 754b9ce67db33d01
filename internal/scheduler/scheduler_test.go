package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SwingScout/internal/collector"
	"SwingScout/internal/model"
	"SwingScout/internal/recorder"
	"SwingScout/internal/tracker"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []model.Recommendation
}

func (n *recordingNotifier) NotifyTransitions(_ context.Context, recs []model.Recommendation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, recs...)
}

type fixture struct {
	sched *Scheduler
	tr    *tracker.Tracker
	mock  *collector.MockFetcher
	note  *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tr := tracker.New(recorder.NewMemoryRecorder(), nil)
	mock := collector.NewMockFetcher()
	note := &recordingNotifier{}
	cached := collector.NewCachingFetcher(mock, time.Hour)
	s := NewScheduler(context.Background(), tr, cached, note, nil)
	t.Cleanup(s.Stop)

	_, err := tr.Add(context.Background(), []model.Candidate{{
		Symbol: "AAPL", EntryPrice: 100, TargetPrice: 110, StopLoss: 95,
		TargetPct: 10, SLPct: 5, EstimatedDays: 10, RiskReward: 2,
	}}, model.MarketUS)
	require.NoError(t, err)
	return fixture{sched: s, tr: tr, mock: mock, note: note}
}

func TestStartRejectsBadFrequency(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.sched.Start(0))
	assert.Error(t, f.sched.Start(-5))
	assert.False(t, f.sched.Status().IsRunning)
}

func TestStartStopStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.Start(30))
	st := f.sched.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, 30, st.FrequencyMinutes)

	require.NoError(t, f.sched.Start(15))
	assert.Equal(t, 15, f.sched.Status().FrequencyMinutes)

	f.sched.Stop()
	f.sched.Stop()
	assert.False(t, f.sched.Status().IsRunning)
}

func TestForceUpdateNowBypassesCacheAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mock.Prices["AAPL"] = 105
	res, err := f.sched.ForceUpdateNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, f.note.seen)

	f.mock.Prices["AAPL"] = 111
	res, err = f.sched.ForceUpdateNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TargetHits)
	require.Len(t, f.note.seen, 1)
	assert.Equal(t, model.StatusTargetHit, f.note.seen[0].Status)

	st := f.sched.Status()
	assert.False(t, st.LastUpdate.IsZero())
	assert.Equal(t, 1, st.LastResult.TargetHits)

	// resolved rows are no longer fetched
	res, err = f.sched.ForceUpdateNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Len(t, f.note.seen, 1)
}

func TestScheduledPassSurvivesShutdownSignal(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx, f.tr, f.mock, f.note, nil)
	cancel()

	f.mock.Prices["AAPL"] = 111
	s.updateTask()

	st := s.Status()
	assert.False(t, st.LastUpdate.IsZero())
	assert.Equal(t, 1, st.LastResult.TargetHits)
	assert.Len(t, f.note.seen, 1)
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Contains(t, f.sched.HandleCommand(ctx, "/status"), "No update pass yet")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/active"), "AAPL")
	assert.Contains(t, f.sched.HandleCommand(ctx, "hello"), "/update")
	assert.Contains(t, f.sched.HandleCommand(ctx, "   "), "/update")

	f.mock.Prices["AAPL"] = 94
	assert.Contains(t, f.sched.HandleCommand(ctx, "/update@SwingScoutBot"), "🛑 1")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/active"), "No active recommendations")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/summary"), "SL hits: 1")
	assert.Contains(t, f.sched.HandleCommand(ctx, "/ARCHIVE"), "archived 1")

	rows, err := f.tr.List(ctx, recorder.Filter{Status: model.StatusArchived})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
