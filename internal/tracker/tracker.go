// Package tracker owns the recommendation lifecycle: ingestion with duplicate
// suppression, the price-driven update pass, archiving and cleanup.
//
// All writes go through one mutex, so a scheduled update pass, a manual
// "force update" and a scan's Add never interleave.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"SwingScout/internal/logger"
	"SwingScout/internal/model"
	"SwingScout/internal/recorder"
)

// DefaultSymbolTimeout bounds one live-price fetch.
const DefaultSymbolTimeout = 20 * time.Second

// PriceLookup fetches the latest traded price of a symbol.
type PriceLookup func(ctx context.Context, market model.Market, symbol string) (float64, error)

// AddResult counts the outcome of Add.
type AddResult struct {
	Inserted   int
	Duplicates int
	Rejected   int
}

// UpdateResult counts the outcome of one update pass.
type UpdateResult struct {
	Updated     int
	TargetHits  int
	SLHits      int
	Failures    int
	Transitions []model.Recommendation
	FinishedAt  time.Time
}

// Tracker is constructed once and shared by the scanner, scheduler and CLI.
type Tracker struct {
	rec           recorder.Recorder
	log           *logger.Logger
	mu            sync.Mutex
	now           func() time.Time
	loc           *time.Location
	symbolTimeout time.Duration

	stateMu    sync.RWMutex
	lastUpdate time.Time
	lastResult UpdateResult
}

type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the calendar used for date_added and days_elapsed.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

func WithSymbolTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.symbolTimeout = d }
}

func New(rec recorder.Recorder, log *logger.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	t := &Tracker{
		rec:           rec,
		log:           log.Named("tracker"),
		now:           time.Now,
		loc:           time.UTC,
		symbolTimeout: DefaultSymbolTimeout,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Today returns the current calendar day at midnight in the tracker's location.
func (t *Tracker) Today() time.Time {
	return dayOf(t.now(), t.loc)
}

func dayOf(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from added to today. added is a stored
// calendar date, so its own Y/M/D are used without zone conversion.
func daysBetween(added, today time.Time, loc *time.Location) int {
	y, m, d := added.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return int(math.Round(today.Sub(start).Hours() / 24))
}

// Add stores each candidate as an Active recommendation. Candidates whose
// identity already exists as an Active row are counted as duplicates;
// candidates violating the price ordering or risk cap are rejected.
func (t *Tracker) Add(ctx context.Context, candidates []model.Candidate, market model.Market) (AddResult, error) {
	var res AddResult
	if len(candidates) == 0 {
		return res, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for _, c := range candidates {
		if err := validateCandidate(c); err != nil {
			res.Rejected++
			t.log.Warn("candidate rejected", logger.StringField("symbol", c.Symbol), logger.ErrorField(err))
			continue
		}
		added := c.DateAdded
		if added.IsZero() {
			added = now
		}
		rec := &model.Recommendation{
			Market:           market,
			Symbol:           c.Symbol,
			DateAdded:        dayOf(added, t.loc),
			EntryPrice:       c.EntryPrice,
			TargetPrice:      c.TargetPrice,
			StopLoss:         c.StopLoss,
			TargetPct:        c.TargetPct,
			SLPct:            c.SLPct,
			EstimatedDays:    c.EstimatedDays,
			RiskReward:       c.RiskReward,
			CurrentPrice:     c.EntryPrice,
			MaxPrice:         c.EntryPrice,
			MinPrice:         c.EntryPrice,
			Status:           model.StatusActive,
			SelectionReason:  strings.Join(c.Rationale, "; "),
			Sector:           c.Sector,
			RiskLevel:        c.RiskLevel,
			TechScore:        c.Strength,
			VolatilityBucket: c.VolatilityBucket,
			FallbackUsed:     c.FallbackUsed,
			CreatedAt:        now,
			LastUpdated:      now,
		}
		inserted, err := t.rec.Insert(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("add %s: %w", c.Symbol, err)
		}
		if !inserted {
			res.Duplicates++
			dup := fmt.Errorf("%s %s on %s: %w", market, c.Symbol, rec.DateAdded.Format(model.DateLayout), model.ErrDuplicate)
			t.log.Debug("recommendation skipped",
				logger.StringField("kind", model.FailureKind(dup)), logger.ErrorField(dup))
			continue
		}
		res.Inserted++
	}

	t.log.Info("recommendations added",
		logger.StringField("market", string(market)),
		logger.IntField("inserted", res.Inserted),
		logger.IntField("duplicates", res.Duplicates),
		logger.IntField("rejected", res.Rejected))
	return res, nil
}

func validateCandidate(c model.Candidate) error {
	if c.Symbol == "" {
		return fmt.Errorf("empty symbol: %w", model.ErrInvariantViolation)
	}
	if !(c.StopLoss < c.EntryPrice && c.EntryPrice < c.TargetPrice) || c.StopLoss <= 0 {
		return fmt.Errorf("stop %.4f / entry %.4f / target %.4f out of order: %w",
			c.StopLoss, c.EntryPrice, c.TargetPrice, model.ErrInvariantViolation)
	}
	risk, reward := c.EntryPrice-c.StopLoss, c.TargetPrice-c.EntryPrice
	if risk > 0.5*reward {
		return fmt.Errorf("risk %.4f exceeds half of reward %.4f: %w", risk, reward, model.ErrInvariantViolation)
	}
	return nil
}

// UpdatePrices runs one update pass over the Active rows. Rows are processed
// sequentially; a failed fetch leaves the row untouched and is counted in
// Failures. Passes are serialised: a concurrent caller waits for the running
// pass and then runs its own. A cancelled ctx stops the pass before the next
// row; rows already applied are kept and reported with the error.
func (t *Tracker) UpdatePrices(ctx context.Context, lookup PriceLookup) (UpdateResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var res UpdateResult
	active, err := t.rec.List(ctx, recorder.Filter{Status: model.StatusActive})
	if err != nil {
		return res, fmt.Errorf("load active recommendations: %w", err)
	}

	var interrupted error
	for i := range active {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		row := active[i]

		price, err := t.fetch(ctx, lookup, row)
		if err != nil {
			res.Failures++
			t.log.Warn("price fetch failed",
				logger.StringField("symbol", row.Symbol),
				logger.StringField("kind", model.FailureKind(err)),
				logger.ErrorField(err))
			continue
		}

		u := Advance(row, price, t.now(), t.loc)
		ok, err := t.rec.ApplyUpdate(ctx, u)
		if err != nil {
			res.Failures++
			t.log.Error("apply update failed", logger.StringField("symbol", row.Symbol), logger.ErrorField(err))
			continue
		}
		if !ok {
			continue
		}
		res.Updated++
		switch u.Status {
		case model.StatusTargetHit:
			res.TargetHits++
		case model.StatusSLHit:
			res.SLHits++
		}
		if u.Status.Terminal() {
			res.Transitions = append(res.Transitions, applied(row, u))
		}
	}

	res.FinishedAt = t.now()
	t.stateMu.Lock()
	t.lastUpdate = res.FinishedAt
	t.lastResult = res
	t.stateMu.Unlock()

	if interrupted != nil {
		t.log.Warn("update pass interrupted",
			logger.IntField("active", len(active)),
			logger.IntField("updated", res.Updated),
			logger.ErrorField(interrupted))
		return res, interrupted
	}
	if len(active) > 0 {
		t.log.Info("update pass finished",
			logger.IntField("active", len(active)),
			logger.IntField("updated", res.Updated),
			logger.IntField("target_hits", res.TargetHits),
			logger.IntField("sl_hits", res.SLHits),
			logger.IntField("failures", res.Failures))
	}
	return res, nil
}

func (t *Tracker) fetch(ctx context.Context, lookup PriceLookup, row model.Recommendation) (float64, error) {
	fctx, cancel := context.WithTimeout(ctx, t.symbolTimeout)
	defer cancel()

	price, err := lookup(fctx, row.Market, row.Symbol)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%s: timed out after %s: %w", row.Symbol, t.symbolTimeout, model.ErrDataUnavailable)
		}
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%s: price %v: %w", row.Symbol, price, model.ErrDataUnavailable)
	}
	return price, nil
}

// Advance computes the next tracking state of an Active row at price.
// Target is checked before stop.
func Advance(row model.Recommendation, price float64, now time.Time, loc *time.Location) recorder.PriceUpdate {
	today := dayOf(now, loc)
	u := recorder.PriceUpdate{
		ID:               row.ID,
		CurrentPrice:     price,
		MaxPrice:         math.Max(row.MaxPrice, price),
		MinPrice:         math.Min(row.MinPrice, price),
		DaysElapsed:      daysBetween(row.DateAdded, today, loc),
		CurrentReturnPct: (price - row.EntryPrice) * 100 / row.EntryPrice,
		Status:           model.StatusActive,
		At:               now,
	}
	if u.DaysElapsed < 0 {
		u.DaysElapsed = 0
	}
	switch {
	case price >= row.TargetPrice:
		u.Status = model.StatusTargetHit
	case price <= row.StopLoss:
		u.Status = model.StatusSLHit
	}
	if u.Status.Terminal() {
		u.HitDate = &today
		u.ExitPrice = price
	}
	return u
}

func applied(row model.Recommendation, u recorder.PriceUpdate) model.Recommendation {
	row.CurrentPrice = u.CurrentPrice
	row.MaxPrice = u.MaxPrice
	row.MinPrice = u.MinPrice
	row.DaysElapsed = u.DaysElapsed
	row.CurrentReturnPct = u.CurrentReturnPct
	row.Status = u.Status
	row.Outcome = u.Status
	row.HitDate = u.HitDate
	row.ExitPrice = u.ExitPrice
	row.LastUpdated = u.At
	return row
}

// Archive moves every Target Hit / SL Hit row to Archived.
func (t *Tracker) Archive(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.rec.ArchiveCompleted(ctx, t.now())
	if err != nil {
		return 0, err
	}
	t.log.Info("archived completed recommendations", logger.IntField("count", n))
	return n, nil
}

// Cleanup deletes resolved rows added more than olderThanDays days ago.
// It only runs when called; nothing schedules it.
func (t *Tracker) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("older-than days must not be negative, got %d", olderThanDays)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.Today().AddDate(0, 0, -olderThanDays)
	n, err := t.rec.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	t.log.Info("cleanup finished",
		logger.IntField("deleted", n),
		logger.StringField("cutoff", cutoff.Format(model.DateLayout)))
	return n, nil
}

// List reads rows without taking the writer lock.
func (t *Tracker) List(ctx context.Context, f recorder.Filter) ([]model.Recommendation, error) {
	return t.rec.List(ctx, f)
}

// LastUpdate returns when the last update pass finished and its result.
func (t *Tracker) LastUpdate() (time.Time, UpdateResult) {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.lastUpdate, t.lastResult
}
