package strategy

import (
	"fmt"
	"math"

	"SwingScout/internal/model"
)

// MinHistoryBars is the shortest history the filter will evaluate.
const MinHistoryBars = 30

// FilterResult is the outcome of Qualify. Rationale follows evaluation order.
type FilterResult struct {
	Accepted  bool
	Rationale []string
	Strength  float64
}

type condition func(bars []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) (bool, string)

// Qualify scores the latest bar against the profile. Each satisfied condition
// adds one point; undefined indicators never satisfy a condition.
func Qualify(bars []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) FilterResult {
	if len(bars) < MinHistoryBars || len(snaps) != len(bars) {
		return FilterResult{Rationale: []string{"insufficient history"}}
	}

	conds := []condition{trendAlignment, longTermTrend}
	if p.UseVWAP {
		conds = append(conds, aboveVWAP)
	}
	if p.UseMACD {
		conds = append(conds, macdCrossUp)
	}
	conds = append(conds, volumeConfirmation, rsiBand)
	if p.UseBollinger {
		conds = append(conds, bollingerPosition)
	}
	if p.UseWilliams {
		conds = append(conds, williamsMomentum)
	}
	conds = append(conds, bullishCandle)

	res := FilterResult{}
	for _, c := range conds {
		if ok, why := c(bars, snaps, p); ok {
			res.Strength++
			res.Rationale = append(res.Rationale, why)
		}
	}
	res.Accepted = res.Strength >= p.MinStrength
	return res
}

func last(snaps []model.IndicatorSnapshot) model.IndicatorSnapshot {
	return snaps[len(snaps)-1]
}

// trendAlignment: close > EMA(short) > EMA(mid) > EMA(long).
func trendAlignment(_ []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) (bool, string) {
	if len(p.TrendEMAs) == 0 {
		return false, ""
	}
	s := last(snaps)
	prev := s.Close
	for _, period := range p.TrendEMAs {
		v := s.EMAValue(period)
		if !model.IsDefined(v) || !(prev > v) {
			return false, ""
		}
		prev = v
	}
	return true, fmt.Sprintf("EMA alignment %v bullish", p.TrendEMAs)
}

func longTermTrend(_ []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) (bool, string) {
	s := last(snaps)
	v := s.EMAValue(p.LongTermEMA)
	if !model.IsDefined(v) || !(s.Close > v) {
		return false, ""
	}
	return true, fmt.Sprintf("Price above EMA%d", p.LongTermEMA)
}

func aboveVWAP(_ []model.PriceBar, snaps []model.IndicatorSnapshot, _ Profile) (bool, string) {
	s := last(snaps)
	if !model.IsDefined(s.VWAP) || !(s.Close > s.VWAP) {
		return false, ""
	}
	return true, fmt.Sprintf("Price above VWAP %.2f", s.VWAP)
}

// macdCrossUp: MACD above its signal with a rising histogram.
func macdCrossUp(_ []model.PriceBar, snaps []model.IndicatorSnapshot, _ Profile) (bool, string) {
	s := last(snaps)
	prev := snaps[len(snaps)-2]
	if !model.IsDefined(s.MACDHist) || !model.IsDefined(prev.MACDHist) {
		return false, ""
	}
	if s.MACD > s.MACDSignal && s.MACDHist > prev.MACDHist {
		return true, "MACD above signal with rising histogram"
	}
	return false, ""
}

func volumeConfirmation(_ []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) (bool, string) {
	s := last(snaps)
	if !model.IsDefined(s.VolumeRatio) || s.VolumeRatio < p.MinVolumeRatio {
		return false, ""
	}
	return true, fmt.Sprintf("Volume %.1fx average", s.VolumeRatio)
}

func rsiBand(_ []model.PriceBar, snaps []model.IndicatorSnapshot, p Profile) (bool, string) {
	s := last(snaps)
	if !model.IsDefined(s.RSI) || s.RSI < p.RSIMin || s.RSI > p.RSIMax {
		return false, ""
	}
	return true, fmt.Sprintf("RSI %.1f in %.0f-%.0f", s.RSI, p.RSIMin, p.RSIMax)
}

// bollingerPosition: close between the middle and upper band.
func bollingerPosition(_ []model.PriceBar, snaps []model.IndicatorSnapshot, _ Profile) (bool, string) {
	s := last(snaps)
	if !model.IsDefined(s.BBMiddle) || !model.IsDefined(s.BBUpper) {
		return false, ""
	}
	if s.Close > s.BBMiddle && s.Close < s.BBUpper {
		return true, "Price between middle and upper Bollinger band"
	}
	return false, ""
}

// williamsMomentum: %R out of oversold without being overbought.
func williamsMomentum(_ []model.PriceBar, snaps []model.IndicatorSnapshot, _ Profile) (bool, string) {
	s := last(snaps)
	if !model.IsDefined(s.WilliamsR) || s.WilliamsR <= -80 || s.WilliamsR >= -20 {
		return false, ""
	}
	return true, fmt.Sprintf("Williams %%R %.0f", s.WilliamsR)
}

func bullishCandle(bars []model.PriceBar, _ []model.IndicatorSnapshot, _ Profile) (bool, string) {
	cur := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	if cur.Close > cur.Open && cur.Close > prev.Close {
		return true, "Bullish candle closing higher"
	}
	if isHammer(cur) {
		return true, "Hammer candle"
	}
	return false, ""
}

// isHammer: small body near the top with a lower shadow at least twice the body.
func isHammer(b model.PriceBar) bool {
	body := math.Abs(b.Close - b.Open)
	if body == 0 || b.High <= b.Low {
		return false
	}
	lower := math.Min(b.Open, b.Close) - b.Low
	upper := b.High - math.Max(b.Open, b.Close)
	return lower >= 2*body && upper <= body
}
