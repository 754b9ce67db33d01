package model

import (
	"fmt"
	"strings"
	"time"
)

// Market identifies which exchange family a symbol trades on.
type Market string

const (
	MarketIndian Market = "Indian"
	MarketUS     Market = "US"
)

// ParseMarket accepts the CLI/config spellings of a market.
func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "indian", "india", "nse", "in":
		return MarketIndian, nil
	case "us", "usa", "nasdaq", "sp500", "s&p500":
		return MarketUS, nil
	default:
		return "", fmt.Errorf("unknown market %q (want indian or us)", s)
	}
}

// PriceBar represents a single daily candlestick bar.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TypicalPrice is (high+low+close)/3.
func (b PriceBar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Closes extracts the close series.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts the volume series.
func Volumes(bars []PriceBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}

// Stock is one entry of a market's scan universe.
type Stock struct {
	Symbol string `yaml:"symbol"`
	Sector string `yaml:"sector"`
}
