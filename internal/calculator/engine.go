package calculator

import (
	"sort"

	"SwingScout/internal/model"
)

// Default indicator parameters.
const (
	RSIPeriod       = 14
	VolumeMAPeriod  = 20
	BollingerPeriod = 20
	BollingerWidth  = 2.0
	WilliamsPeriod  = 14
)

// Compute derives one IndicatorSnapshot per bar. EMA is computed for every
// requested period; all other indicators use the default parameters above.
// The input is never modified and the output has the same length and order.
func Compute(bars []model.PriceBar, emaPeriods []int) []model.IndicatorSnapshot {
	n := len(bars)
	if n == 0 {
		return nil
	}
	closes := model.Closes(bars)
	volumes := model.Volumes(bars)

	periods := uniquePeriods(emaPeriods)
	emas := make(map[int][]float64, len(periods))
	for _, p := range periods {
		emas[p] = EMASeries(closes, p)
	}

	rsi := RSISeries(closes, RSIPeriod)
	macd, sig, hist := MACDSeries(closes, MACDFast, MACDSlow, MACDSignal)
	vwap := VWAPSeries(bars)
	volMA, volRatio := VolumeRatioSeries(volumes, VolumeMAPeriod)
	bbU, bbM, bbL := BollingerSeries(closes, BollingerPeriod, BollingerWidth)
	wr := WilliamsRSeries(bars, WilliamsPeriod)

	out := make([]model.IndicatorSnapshot, n)
	for i := 0; i < n; i++ {
		ema := make(map[int]float64, len(periods))
		for _, p := range periods {
			ema[p] = emas[p][i]
		}
		out[i] = model.IndicatorSnapshot{
			Time:        bars[i].Time,
			Close:       closes[i],
			RSI:         rsi[i],
			EMA:         ema,
			MACD:        macd[i],
			MACDSignal:  sig[i],
			MACDHist:    hist[i],
			VWAP:        vwap[i],
			VolumeMA:    volMA[i],
			VolumeRatio: volRatio[i],
			BBUpper:     bbU[i],
			BBMiddle:    bbM[i],
			BBLower:     bbL[i],
			WilliamsR:   wr[i],
		}
	}
	return out
}

func uniquePeriods(periods []int) []int {
	seen := make(map[int]bool, len(periods))
	out := make([]int, 0, len(periods))
	for _, p := range periods {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
