package model

import (
	"fmt"
	"math"
	"time"
)

// Undefined marks an indicator value whose lookback exceeds the available history.
var Undefined = math.NaN()

// IsDefined reports whether v carries a real indicator value.
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IndicatorSnapshot holds every indicator computed for one bar.
// Fields are Undefined during the warm-up window of their indicator.
type IndicatorSnapshot struct {
	Time        time.Time
	Close       float64
	RSI         float64
	EMA         map[int]float64
	MACD        float64
	MACDSignal  float64
	MACDHist    float64
	VWAP        float64
	VolumeMA    float64
	VolumeRatio float64
	BBUpper     float64
	BBMiddle    float64
	BBLower     float64
	WilliamsR   float64
}

// EMAValue returns EMA(period) or Undefined when it was not computed.
func (s IndicatorSnapshot) EMAValue(period int) float64 {
	if v, ok := s.EMA[period]; ok {
		return v
	}
	return Undefined
}

// Get looks an indicator up by its display name (RSI, EMA20, MACD_Signal, ...).
// The boolean is false for unknown names and for undefined values.
func (s IndicatorSnapshot) Get(name string) (float64, bool) {
	var v float64
	switch name {
	case "RSI":
		v = s.RSI
	case "MACD":
		v = s.MACD
	case "MACD_Signal":
		v = s.MACDSignal
	case "MACD_Hist":
		v = s.MACDHist
	case "VWAP":
		v = s.VWAP
	case "Volume_MA":
		v = s.VolumeMA
	case "Volume_Ratio":
		v = s.VolumeRatio
	case "BB_Upper":
		v = s.BBUpper
	case "BB_Middle":
		v = s.BBMiddle
	case "BB_Lower":
		v = s.BBLower
	case "Williams_R":
		v = s.WilliamsR
	default:
		var period int
		if _, err := fmt.Sscanf(name, "EMA%d", &period); err != nil {
			return Undefined, false
		}
		v = s.EMAValue(period)
	}
	return v, IsDefined(v)
}
