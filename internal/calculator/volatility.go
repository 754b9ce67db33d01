package calculator

import (
	"math"

	"SwingScout/internal/model"
)

// TradingDaysPerYear annualises daily return volatility.
const TradingDaysPerYear = 252

// DailyReturns returns close-to-close simple returns (len(bars)-1 values).
func DailyReturns(bars []model.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			out = append(out, model.Undefined)
			continue
		}
		out = append(out, bars[i].Close/prev-1)
	}
	return out
}

// AnnualizedVolatility is the sample stdev of the trailing window daily returns
// times sqrt(252). It returns model.ErrInsufficientHistory when fewer than
// window returns exist.
func AnnualizedVolatility(bars []model.PriceBar, window int) (float64, error) {
	returns := DailyReturns(bars)
	if window < 2 || len(returns) < window {
		return model.Undefined, model.ErrInsufficientHistory
	}
	sd := SampleStdDev(returns[len(returns)-window:])
	if !model.IsDefined(sd) {
		return model.Undefined, model.ErrInsufficientHistory
	}
	return sd * math.Sqrt(TradingDaysPerYear), nil
}

// SampleStdDev uses the n-1 denominator. Fewer than two values yields Undefined.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return model.Undefined
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
