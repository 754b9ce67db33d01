package strategy

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync"

	"SwingScout/internal/calculator"
	"SwingScout/internal/model"
)

// Shared target/stop constants. Market-specific values live in Profile.
const (
	VolatilityWindow  = 20
	DefaultVolatility = 0.25

	UptrendMinMult = 1.05
	UptrendMaxMult = 1.20
	SurgeMinMult   = 1.05
	SurgeMaxMult   = 1.15
	SurgeRatio     = 1.2
	SurgeRecent    = 5
	SurgePrior     = 20

	ResistanceLookback = 30
	ResistanceMargin   = 0.08
	SupportLookback    = 20
	SupportBuffer      = 0.005
	StopVolMultiplier  = 1.5
	StopHorizonDays    = 5

	RiskCap      = 0.5
	DefaultSLPct = 0.05

	MinEstimatedDays = 3
	MaxEstimatedDays = 30

	RiskRewardSentinel = 999.0
)

// daysTiers maps a target percentage ceiling to an estimated-days range.
var daysTiers = []struct {
	MaxPct   float64
	Min, Max int
}{
	{0.05, 3, 10},
	{0.10, 7, 20},
	{math.Inf(1), 12, 30},
}

// Randomizer supplies values in [0, 1). Tests inject a fixed source.
type Randomizer interface {
	Float64() float64
}

// lockedRand makes a *rand.Rand safe for the scanner's worker pool.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRandomizer returns an entropy-seeded source when seed is 0, otherwise a
// reproducible one.
func NewRandomizer(seed uint64) Randomizer {
	if seed == 0 {
		return &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SymbolRandomizer derives a per-symbol source from seed so concurrent scans
// stay reproducible regardless of worker scheduling. Seed 0 means entropy.
func SymbolRandomizer(seed uint64, symbol string) Randomizer {
	if seed == 0 {
		return NewRandomizer(0)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return &lockedRand{r: rand.New(rand.NewPCG(seed, h.Sum64()))}
}

// TargetStop is the computed exit plan for one entry price.
type TargetStop struct {
	Target           float64
	StopLoss         float64
	TargetPct        float64
	SLPct            float64
	EstimatedDays    int
	RiskReward       float64
	Volatility       float64
	VolatilityBucket string
	RiskLevel        string
	FallbackUsed     bool
	FallbackReasons  []string
}

func (ts *TargetStop) fallback(reason string) {
	ts.FallbackUsed = true
	ts.FallbackReasons = append(ts.FallbackReasons, reason)
}

// Engine computes targets and stops. The zero value is not usable; use NewEngine.
type Engine struct {
	rnd Randomizer
}

func NewEngine(r Randomizer) *Engine {
	if r == nil {
		r = NewRandomizer(0)
	}
	return &Engine{rnd: r}
}

func (e *Engine) between(lo, hi float64) float64 {
	return lo + e.rnd.Float64()*(hi-lo)
}

// Compute derives target, stop-loss, estimated days and risk:reward.
// Missing inputs are replaced by defaults and flagged; only an unusable current
// price is an error. The result always satisfies
// StopLoss < current < Target and SLPct <= 0.5*TargetPct.
func (e *Engine) Compute(current float64, bars []model.PriceBar, p Profile) (TargetStop, error) {
	if math.IsNaN(current) || math.IsInf(current, 0) || current <= 0 {
		return TargetStop{}, fmt.Errorf("current price %v: %w", current, model.ErrDataUnavailable)
	}
	var ts TargetStop

	vol, err := calculator.AnnualizedVolatility(bars, VolatilityWindow)
	if err != nil {
		vol = DefaultVolatility
		ts.fallback("volatility defaulted to 0.25: insufficient return history")
	}
	ts.Volatility = vol

	tier := p.tierFor(vol)
	ts.VolatilityBucket = tier.Label
	ts.RiskLevel = riskLevel(tier.Label)
	pct := e.between(tier.MinPct, tier.MaxPct)

	if inUptrend(current, bars, p) {
		pct *= e.between(UptrendMinMult, UptrendMaxMult)
	}
	if volumeSurge(bars) {
		pct *= e.between(SurgeMinMult, SurgeMaxMult)
	}

	if res, err := calculator.Resistance(bars, ResistanceLookback); err != nil {
		ts.fallback("resistance unavailable: ceiling not applied")
	} else if ceiling := res*(1+ResistanceMargin)/current - 1; pct > ceiling {
		pct = ceiling
	}
	pct = clamp(pct, p.TargetFloor, p.TargetCeiling)
	riskCap := pct * RiskCap

	sl := riskCap
	if sup, err := calculator.Support(bars, SupportLookback); err != nil || sup <= 0 {
		ts.fallback("support unavailable")
	} else if sup >= current {
		ts.fallback("support at or above current price")
	} else {
		sl = math.Min(sl, (current-sup)/current+SupportBuffer)
	}
	if volPct := StopVolMultiplier * vol / math.Sqrt(calculator.TradingDaysPerYear) * math.Sqrt(StopHorizonDays); volPct > 0 {
		sl = math.Min(sl, volPct)
	}
	sl = clamp(sl, p.SLFloor, p.SLCeiling)
	sl = math.Min(sl, riskCap)

	stop := current * (1 - sl)
	if math.IsNaN(sl) || sl <= 0 || !(stop < current) {
		sl = math.Min(DefaultSLPct, riskCap)
		stop = current * (1 - sl)
		ts.fallback(fmt.Sprintf("invalid stop-loss replaced by default %.0f%%: %v", DefaultSLPct*100, model.ErrInvariantViolation))
	}

	ts.TargetPct = pct
	ts.SLPct = sl
	ts.Target = current * (1 + pct)
	ts.StopLoss = capStop(current, ts.Target, stop)
	ts.EstimatedDays = e.estimateDays(pct)
	ts.RiskReward = riskReward(current, ts.Target, ts.StopLoss)
	return ts, nil
}

// capStop raises stop by ulps until current-stop <= RiskCap*(target-current)
// holds exactly in float64; the products above round independently.
func capStop(current, target, stop float64) float64 {
	for current-stop > RiskCap*(target-current) {
		stop = math.Nextafter(stop, current)
	}
	return stop
}

func (e *Engine) estimateDays(pct float64) int {
	for _, t := range daysTiers {
		if pct <= t.MaxPct {
			d := t.Min + int(e.rnd.Float64()*float64(t.Max-t.Min+1))
			if d > t.Max {
				d = t.Max
			}
			return clampInt(d, MinEstimatedDays, MaxEstimatedDays)
		}
	}
	return MaxEstimatedDays
}

// inUptrend: price > EMA(short) > EMA(long), using the profile's first and last trend EMAs.
func inUptrend(current float64, bars []model.PriceBar, p Profile) bool {
	if len(p.TrendEMAs) < 2 || len(bars) == 0 {
		return false
	}
	closes := model.Closes(bars)
	short := calculator.EMASeries(closes, p.TrendEMAs[0])
	long := calculator.EMASeries(closes, p.TrendEMAs[len(p.TrendEMAs)-1])
	s, l := short[len(short)-1], long[len(long)-1]
	if !model.IsDefined(s) || !model.IsDefined(l) {
		return false
	}
	return current > s && s > l
}

// volumeSurge compares the last 5 bars' average volume with the 20 before them.
func volumeSurge(bars []model.PriceBar) bool {
	n := len(bars)
	if n < SurgeRecent+SurgePrior {
		return false
	}
	var recent, prior float64
	for _, b := range bars[n-SurgeRecent:] {
		recent += b.Volume
	}
	for _, b := range bars[n-SurgeRecent-SurgePrior : n-SurgeRecent] {
		prior += b.Volume
	}
	recent /= SurgeRecent
	prior /= SurgePrior
	return prior > 0 && recent >= SurgeRatio*prior
}

func riskReward(current, target, stop float64) float64 {
	den := current - stop
	if den <= 0 {
		return RiskRewardSentinel
	}
	return (target - current) / den
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
