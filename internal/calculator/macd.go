package calculator

import "SwingScout/internal/model"

// MACD periods used by the US signal profile.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDSeries returns the MACD line, its signal line and the histogram.
// The line is defined from index slow-1, the signal from slow+signal-2.
func MACDSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line = make([]float64, n)
	sig = make([]float64, n)
	hist = make([]float64, n)

	fastEMA := emaRaw(closes, fast)
	slowEMA := emaRaw(closes, slow)
	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		raw[i] = fastEMA[i] - slowEMA[i]
	}

	lineStart := slow - 1
	if lineStart < fast-1 {
		lineStart = fast - 1
	}
	var sigRaw []float64
	if lineStart < n {
		sigRaw = emaRaw(raw[lineStart:], signal)
	}
	sigStart := lineStart + signal - 1

	for i := 0; i < n; i++ {
		line[i], sig[i], hist[i] = model.Undefined, model.Undefined, model.Undefined
		if i < lineStart {
			continue
		}
		line[i] = raw[i]
		if i < sigStart {
			continue
		}
		sig[i] = sigRaw[i-lineStart]
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}
