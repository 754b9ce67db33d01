package calculator

import (
	"errors"

	"SwingScout/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling SMA aligned to values; the first period-1 entries are Undefined.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if period <= 0 || i < period-1 {
			out[i] = model.Undefined
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMASeries computes the span-n exponential average (alpha = 2/(n+1)) seeded from
// the first value. Entries before index n-1 are Undefined.
func EMASeries(values []float64, period int) []float64 {
	raw := emaRaw(values, period)
	for i := range raw {
		if i < period-1 {
			raw[i] = model.Undefined
		}
	}
	return raw
}

// emaRaw is the unmasked recursion; callers decide where warm-up ends.
func emaRaw(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		for i := range out {
			out[i] = model.Undefined
		}
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
