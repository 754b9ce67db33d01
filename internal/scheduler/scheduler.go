package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"SwingScout/internal/collector"
	"SwingScout/internal/logger"
	"SwingScout/internal/model"
	"SwingScout/internal/notifier"
	"SwingScout/internal/recorder"
	"SwingScout/internal/summary"
	"SwingScout/internal/tracker"
)

// Notifier receives the rows that resolved during a pass.
type Notifier interface {
	NotifyTransitions(ctx context.Context, recs []model.Recommendation)
}

// Status is the control surface snapshot.
type Status struct {
	IsRunning        bool
	LastUpdate       time.Time
	FrequencyMinutes int
	LastResult       tracker.UpdateResult
}

// Scheduler runs the periodic price update pass.
type Scheduler struct {
	ctx      context.Context
	tracker  *tracker.Tracker
	fetcher  collector.Fetcher
	notifier Notifier
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	freq    int
	running bool
}

// NewScheduler creates a Scheduler. ctx carries values into scheduled passes;
// its cancellation does not abort a pass in flight.
func NewScheduler(ctx context.Context, tr *tracker.Tracker, f collector.Fetcher, n Notifier, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		ctx:      ctx,
		tracker:  tr,
		fetcher:  f,
		notifier: n,
		log:      log.Named("scheduler"),
	}
}

// Start schedules the update pass every frequencyMinutes. Calling Start on a
// running scheduler reschedules it.
func (s *Scheduler) Start(frequencyMinutes int) error {
	if frequencyMinutes <= 0 {
		return fmt.Errorf("update frequency must be positive, got %d", frequencyMinutes)
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	adapter := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %dm", frequencyMinutes), s.updateTask); err != nil {
		return fmt.Errorf("register update task: %w", err)
	}
	c.Start()

	s.cron = c
	s.freq = frequencyMinutes
	s.running = true
	s.log.Info("scheduler started", logger.IntField("frequency_minutes", frequencyMinutes))
	return nil
}

// Stop halts scheduling and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
}

// ForceUpdateNow runs one pass immediately with fresh prices. It waits for a
// scheduled pass that is already running.
func (s *Scheduler) ForceUpdateNow(ctx context.Context) (tracker.UpdateResult, error) {
	if fl, ok := s.fetcher.(interface{ Flush() }); ok {
		fl.Flush()
	}
	res, err := s.tracker.UpdatePrices(ctx, s.fetcher.GetLatestPrice)
	if err != nil {
		return res, err
	}
	if s.notifier != nil && len(res.Transitions) > 0 {
		s.notifier.NotifyTransitions(ctx, res.Transitions)
	}
	return res, nil
}

// Status reports whether the job is scheduled and the last pass result.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{IsRunning: s.running, FrequencyMinutes: s.freq}
	s.mu.Unlock()
	st.LastUpdate, st.LastResult = s.tracker.LastUpdate()
	return st
}

// updateTask ignores cancellation of s.ctx so a pass that already started
// finishes; Stop waits for it.
func (s *Scheduler) updateTask() {
	if _, err := s.ForceUpdateNow(context.WithoutCancel(s.ctx)); err != nil {
		s.log.Error("scheduled update failed", logger.ErrorField(err))
	}
}

const helpText = "Commands:\n/status - scheduler state\n/update - run an update pass now\n/summary - performance statistics\n/active - open recommendations\n/archive - archive resolved rows"

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/status":
		st := s.Status()
		return notifier.FormatStatus(st.IsRunning, st.FrequencyMinutes, st.LastUpdate, st.LastResult)
	case "/update":
		res, err := s.ForceUpdateNow(ctx)
		if err != nil {
			return fmt.Sprintf("❌ update failed: %v", err)
		}
		return "✅ " + notifier.FormatUpdate(res)
	case "/summary":
		recs, err := s.tracker.List(ctx, recorder.Filter{})
		if err != nil {
			return fmt.Sprintf("❌ load recommendations: %v", err)
		}
		return notifier.FormatSummary(summary.Summarize(recs, 5))
	case "/active":
		recs, err := s.tracker.List(ctx, recorder.Filter{Status: model.StatusActive})
		if err != nil {
			return fmt.Sprintf("❌ load recommendations: %v", err)
		}
		return notifier.FormatActive(recs)
	case "/archive":
		n, err := s.tracker.Archive(ctx)
		if err != nil {
			return fmt.Sprintf("❌ archive failed: %v", err)
		}
		return fmt.Sprintf("🗄 archived %d recommendations", n)
	default:
		return helpText
	}
}
