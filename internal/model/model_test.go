package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("AAPL: %w", ErrDataUnavailable), "data_unavailable"},
		{fmt.Errorf("AAPL: 12 bars: %w", ErrInsufficientHistory), "insufficient_history"},
		{fmt.Errorf("stop above entry: %w", ErrInvariantViolation), "invariant_violation"},
		{fmt.Errorf("US AAPL on 2024-06-03: %w", ErrDuplicate), "duplicate"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKind(tt.err), "%v", tt.err)
	}
}

func TestSnapshotGet(t *testing.T) {
	s := IndicatorSnapshot{
		RSI:        55,
		EMA:        map[int]float64{20: 101.5, 50: Undefined},
		MACDSignal: -0.25,
		WilliamsR:  Undefined,
		VWAP:       100,
	}

	v, ok := s.Get("RSI")
	assert.True(t, ok)
	assert.Equal(t, 55.0, v)

	v, ok = s.Get("EMA20")
	assert.True(t, ok)
	assert.Equal(t, 101.5, v)

	v, ok = s.Get("MACD_Signal")
	assert.True(t, ok)
	assert.Equal(t, -0.25, v)

	_, ok = s.Get("EMA50")
	assert.False(t, ok, "undefined warm-up value")
	_, ok = s.Get("EMA200")
	assert.False(t, ok, "period never computed")
	_, ok = s.Get("Williams_R")
	assert.False(t, ok)
	_, ok = s.Get("Stochastic")
	assert.False(t, ok, "unknown name")
}

func TestParseMarket(t *testing.T) {
	for _, in := range []string{"indian", "NSE", " India "} {
		m, err := ParseMarket(in)
		assert.NoError(t, err)
		assert.Equal(t, MarketIndian, m)
	}
	m, err := ParseMarket("US")
	assert.NoError(t, err)
	assert.Equal(t, MarketUS, m)
	_, err = ParseMarket("lse")
	assert.Error(t, err)
}
