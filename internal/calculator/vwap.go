package calculator

import (
	"time"

	"SwingScout/internal/model"
)

// VWAPSeries is the cumulative volume-weighted typical price since the first bar.
// Bars before any volume has traded are Undefined.
func VWAPSeries(bars []model.PriceBar) []float64 {
	out := make([]float64, len(bars))
	var pv, vol float64
	for i, b := range bars {
		pv += b.TypicalPrice() * b.Volume
		vol += b.Volume
		if vol <= 0 {
			out[i] = model.Undefined
			continue
		}
		out[i] = pv / vol
	}
	return out
}

// VWAPSession resets the accumulation at each new trading day of loc.
// Intraday bars use this form; daily bars use VWAPSeries.
func VWAPSession(bars []model.PriceBar, loc *time.Location) []float64 {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]float64, len(bars))
	var pv, vol float64
	var session string
	for i, b := range bars {
		day := b.Time.In(loc).Format(model.DateLayout)
		if day != session {
			session = day
			pv, vol = 0, 0
		}
		pv += b.TypicalPrice() * b.Volume
		vol += b.Volume
		if vol <= 0 {
			out[i] = model.Undefined
			continue
		}
		out[i] = pv / vol
	}
	return out
}
