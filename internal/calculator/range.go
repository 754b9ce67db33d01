package calculator

import (
	"errors"
	"math"

	"SwingScout/internal/model"
)

// Resistance returns the highest high of the most recent lookback bars.
func Resistance(bars []model.PriceBar, lookback int) (float64, error) {
	high, _, err := recentRange(bars, lookback)
	return high, err
}

// Support returns the lowest low of the most recent lookback bars.
func Support(bars []model.PriceBar, lookback int) (float64, error) {
	_, low, err := recentRange(bars, lookback)
	return low, err
}

func recentRange(bars []model.PriceBar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return model.Undefined, model.Undefined, errors.New("no bars provided")
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	if !model.IsDefined(high) || !model.IsDefined(low) {
		return model.Undefined, model.Undefined, errors.New("range contains no finite prices")
	}
	return high, low, nil
}
