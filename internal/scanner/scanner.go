// Package scanner runs the fetch → indicators → filter → target pipeline over
// a symbol universe with a bounded worker pool.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"SwingScout/internal/calculator"
	"SwingScout/internal/collector"
	"SwingScout/internal/logger"
	"SwingScout/internal/model"
	"SwingScout/internal/recorder"
	"SwingScout/internal/strategy"
	"SwingScout/internal/tracker"
)

// ProgressCallback is called after each symbol finishes.
type ProgressCallback func(scanned, total int)

// Options tune a Scanner. Zero values fall back to defaults.
type Options struct {
	Workers       int
	TopN          int
	SymbolTimeout time.Duration
	LookbackDays  int
	Seed          uint64
}

// ScanResult is the ranked output of one scan.
type ScanResult struct {
	Market     model.Market
	StartedAt  time.Time
	Duration   time.Duration
	Scanned    int
	Qualified  int
	Candidates []model.Candidate
	Failures   map[string]int
}

// FailureCount sums Failures.
func (r *ScanResult) FailureCount() int {
	n := 0
	for _, c := range r.Failures {
		n += c
	}
	return n
}

// Scanner performs parallel stock scanning.
type Scanner struct {
	fetcher      collector.Fetcher
	opts         Options
	log          *logger.Logger
	rnd          strategy.Randomizer
	now          func() time.Time
	progressFunc ProgressCallback
}

func New(f collector.Fetcher, opts Options, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.SymbolTimeout <= 0 {
		opts.SymbolTimeout = 20 * time.Second
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	return &Scanner{
		fetcher: f,
		opts:    opts,
		log:     log.Named("scanner"),
		rnd:     strategy.NewRandomizer(0),
		now:     time.Now,
	}
}

// SetProgressCallback sets the progress callback function.
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

func (s *Scanner) randomizer(symbol string) strategy.Randomizer {
	if s.opts.Seed == 0 {
		return s.rnd
	}
	return strategy.SymbolRandomizer(s.opts.Seed, symbol)
}

type outcome struct {
	candidate *model.Candidate
	err       error
}

// Scan evaluates every stock and returns the top N candidates ranked by
// strength, then risk:reward. Per-symbol failures are counted by kind and
// never abort the scan.
func (s *Scanner) Scan(ctx context.Context, market model.Market, stocks []model.Stock) (*ScanResult, error) {
	start := s.now()
	res := &ScanResult{Market: market, StartedAt: start, Failures: map[string]int{}}
	if len(stocks) == 0 {
		return res, nil
	}
	profile := strategy.ProfileFor(market)

	jobs := make(chan model.Stock, len(stocks))
	results := make(chan outcome, len(stocks))
	for _, st := range stocks {
		jobs <- st
	}
	close(jobs)

	var scanned int64
	var wg sync.WaitGroup
	workers := s.opts.Workers
	if workers > len(stocks) {
		workers = len(stocks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				if ctx.Err() != nil {
					return
				}
				c, err := s.analyze(ctx, market, st, profile)
				results <- outcome{candidate: c, err: err}

				n := atomic.AddInt64(&scanned, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(n), len(stocks))
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var qualified []model.Candidate
	for o := range results {
		res.Scanned++
		switch {
		case o.err != nil:
			res.Failures[model.FailureKind(o.err)]++
			s.log.Debug("symbol skipped", logger.ErrorField(o.err))
		case o.candidate != nil:
			qualified = append(qualified, *o.candidate)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan %s interrupted after %d/%d symbols: %w", market, res.Scanned, len(stocks), err)
	}

	rank(qualified)
	res.Qualified = len(qualified)
	if len(qualified) > s.opts.TopN {
		qualified = qualified[:s.opts.TopN]
	}
	res.Candidates = qualified
	res.Duration = s.now().Sub(start)

	s.log.Info("scan finished",
		logger.StringField("market", string(market)),
		logger.IntField("scanned", res.Scanned),
		logger.IntField("qualified", res.Qualified),
		logger.IntField("failures", res.FailureCount()),
		logger.DurationField("duration", res.Duration))
	return res, nil
}

func (s *Scanner) analyze(ctx context.Context, market model.Market, st model.Stock, p strategy.Profile) (*model.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SymbolTimeout)
	defer cancel()

	bars, err := s.fetcher.GetHistory(ctx, market, st.Symbol, s.opts.LookbackDays, collector.Daily)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%v: %w", err, model.ErrDataUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", st.Symbol, err)
	}
	if len(bars) < strategy.MinHistoryBars {
		return nil, fmt.Errorf("%s: %d bars: %w", st.Symbol, len(bars), model.ErrInsufficientHistory)
	}

	snaps := calculator.Compute(bars, p.EMAPeriods)
	verdict := strategy.Qualify(bars, snaps, p)
	if !verdict.Accepted {
		return nil, nil
	}

	entry := bars[len(bars)-1].Close
	ts, err := strategy.NewEngine(s.randomizer(st.Symbol)).Compute(entry, bars, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", st.Symbol, err)
	}
	if ts.FallbackUsed {
		s.log.Debug("target/stop used defaults",
			logger.StringField("symbol", st.Symbol),
			logger.StringField("reasons", strings.Join(ts.FallbackReasons, "; ")))
	}

	return &model.Candidate{
		Symbol:           st.Symbol,
		Sector:           st.Sector,
		EntryPrice:       entry,
		TargetPrice:      ts.Target,
		StopLoss:         ts.StopLoss,
		TargetPct:        ts.TargetPct * 100,
		SLPct:            ts.SLPct * 100,
		EstimatedDays:    ts.EstimatedDays,
		RiskReward:       ts.RiskReward,
		Strength:         verdict.Strength,
		Rationale:        verdict.Rationale,
		VolatilityBucket: ts.VolatilityBucket,
		RiskLevel:        ts.RiskLevel,
		FallbackUsed:     ts.FallbackUsed,
	}, nil
}

// rank orders by strength desc, risk:reward desc, then symbol.
func rank(cs []model.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Strength != cs[j].Strength {
			return cs[i].Strength > cs[j].Strength
		}
		if cs[i].RiskReward != cs[j].RiskReward {
			return cs[i].RiskReward > cs[j].RiskReward
		}
		return cs[i].Symbol < cs[j].Symbol
	})
}

// RunResult combines a scan with its persistence outcome.
type RunResult struct {
	Scan *ScanResult
	Add  tracker.AddResult
	Run  model.ScanRun
}

// Run scans, stores the candidates through the tracker and records a scan
// history row.
func (s *Scanner) Run(ctx context.Context, market model.Market, stocks []model.Stock, tr *tracker.Tracker, rec recorder.Recorder) (*RunResult, error) {
	scan, err := s.Scan(ctx, market, stocks)
	if err != nil {
		return nil, err
	}
	added, err := tr.Add(ctx, scan.Candidates, market)
	if err != nil {
		return nil, fmt.Errorf("store candidates: %w", err)
	}

	top := make([]string, 0, len(scan.Candidates))
	for _, c := range scan.Candidates {
		top = append(top, c.Symbol)
	}
	run := model.ScanRun{
		ID:         uuid.NewString(),
		Market:     market,
		StartedAt:  scan.StartedAt,
		Duration:   scan.Duration,
		Scanned:    scan.Scanned,
		Qualified:  scan.Qualified,
		Inserted:   added.Inserted,
		Duplicates: added.Duplicates,
		Failures:   scan.FailureCount(),
		Top:        strings.Join(top, ","),
	}
	if err := rec.RecordScan(ctx, &run); err != nil {
		s.log.Warn("scan history not recorded", logger.ErrorField(err))
	}
	return &RunResult{Scan: scan, Add: added, Run: run}, nil
}
