package calculator

import (
	"math"

	"SwingScout/internal/model"
)

// BollingerSeries returns upper, middle and lower bands of width k sample stdevs.
func BollingerSeries(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = make([]float64, n)
	middle = SMASeries(closes, period)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		if !model.IsDefined(middle[i]) || period < 2 {
			upper[i], lower[i] = model.Undefined, model.Undefined
			continue
		}
		sd := SampleStdDev(closes[i-period+1 : i+1])
		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
	}
	return upper, middle, lower
}

// WilliamsRSeries computes Williams %R over period bars, ranged [-100, 0].
// A flat window (high == low) is Undefined.
func WilliamsRSeries(bars []model.PriceBar, period int) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		if period <= 0 || i < period-1 {
			out[i] = model.Undefined
			continue
		}
		hh, ll := math.Inf(-1), math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			hh = math.Max(hh, bars[j].High)
			ll = math.Min(ll, bars[j].Low)
		}
		if hh == ll {
			out[i] = model.Undefined
			continue
		}
		out[i] = (hh - bars[i].Close) / (hh - ll) * -100
	}
	return out
}

// VolumeRatioSeries divides each bar's volume by the MA(period) of volume.
func VolumeRatioSeries(volumes []float64, period int) (ma, ratio []float64) {
	ma = SMASeries(volumes, period)
	ratio = make([]float64, len(volumes))
	for i := range volumes {
		if !model.IsDefined(ma[i]) || ma[i] <= 0 {
			ratio[i] = model.Undefined
			continue
		}
		ratio[i] = volumes[i] / ma[i]
	}
	return ma, ratio
}
