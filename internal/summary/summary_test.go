package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SwingScout/internal/model"
)

func row(symbol string, market model.Market, status, outcome model.Status, ret float64, days int) model.Recommendation {
	return model.Recommendation{
		Symbol: symbol, Market: market, Status: status, Outcome: outcome,
		CurrentReturnPct: ret, DaysElapsed: days, EstimatedDays: 10,
	}
}

func TestSummarize(t *testing.T) {
	recs := []model.Recommendation{
		row("A", model.MarketUS, model.StatusTargetHit, model.StatusTargetHit, 8, 4),
		row("B", model.MarketUS, model.StatusSLHit, model.StatusSLHit, -4, 2),
		row("C", model.MarketIndian, model.StatusArchived, model.StatusTargetHit, 12, 9),
		row("D", model.MarketIndian, model.StatusActive, "", 20, 3),
		row("E", model.MarketIndian, model.StatusActive, "", -1, 15),
	}
	s := Summarize(recs, 2)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Active)
	assert.Equal(t, 2, s.TargetHits, "archived rows keep their outcome")
	assert.Equal(t, 1, s.SLHits)
	assert.Equal(t, 1, s.Archived)
	assert.Equal(t, 1, s.Overdue)
	assert.InDelta(t, 2.0/3, s.SuccessRate, 1e-9)
	assert.InDelta(t, 5.0, s.AvgDaysToExit, 1e-9)
	assert.InDelta(t, 16.0/3, s.AvgReturnPct, 1e-9)

	assert.Len(t, s.TopPerformers, 2)
	assert.Equal(t, "D", s.TopPerformers[0].Symbol)
	assert.Equal(t, "C", s.TopPerformers[1].Symbol)

	us := s.ByMarket[model.MarketUS]
	assert.Equal(t, 2, us.Total)
	assert.InDelta(t, 0.5, us.SuccessRate, 1e-9)
	assert.InDelta(t, 2.0, us.AvgReturnPct, 1e-9)
	assert.Equal(t, 2, s.ByMarket[model.MarketIndian].Active)

	assert.Equal(t, "A", recs[0].Symbol, "input untouched")
}

func TestSummarize_NoCompletedRows(t *testing.T) {
	s := Summarize([]model.Recommendation{row("X", model.MarketUS, model.StatusActive, "", 3, 1)}, 0)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, 0.0, s.AvgDaysToExit)
	assert.Nil(t, s.TopPerformers)

	empty := Summarize(nil, 5)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.TopPerformers)
}
