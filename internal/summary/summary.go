// Package summary aggregates recommendation rows into performance statistics.
package summary

import (
	"sort"

	"SwingScout/internal/model"
)

// Summary is a point-in-time aggregation. Archived rows count toward their
// resolved outcome.
type Summary struct {
	Total         int
	Active        int
	TargetHits    int
	SLHits        int
	Archived      int
	Overdue       int
	SuccessRate   float64 // fraction in [0,1], 0 when nothing completed
	AvgDaysToExit float64
	AvgReturnPct  float64
	TopPerformers []model.Recommendation
	ByMarket      map[model.Market]*MarketStats
}

// MarketStats is the per-market slice of a Summary.
type MarketStats struct {
	Total        int
	Active       int
	TargetHits   int
	SLHits       int
	SuccessRate  float64
	AvgReturnPct float64

	returnSum float64
}

// Summarize is pure; recs is not modified. topN <= 0 disables the ranking.
func Summarize(recs []model.Recommendation, topN int) Summary {
	s := Summary{ByMarket: make(map[model.Market]*MarketStats)}
	var daysSum, returnSum float64
	completed := make([]model.Recommendation, 0, len(recs))

	for _, r := range recs {
		s.Total++
		ms := s.ByMarket[r.Market]
		if ms == nil {
			ms = &MarketStats{}
			s.ByMarket[r.Market] = ms
		}
		ms.Total++

		if r.Status == model.StatusArchived {
			s.Archived++
		}
		if r.Status == model.StatusActive {
			s.Active++
			ms.Active++
			if r.EstimatedDays > 0 && r.DaysElapsed > r.EstimatedDays {
				s.Overdue++
			}
			continue
		}

		switch r.ResolvedOutcome() {
		case model.StatusTargetHit:
			s.TargetHits++
			ms.TargetHits++
		case model.StatusSLHit:
			s.SLHits++
			ms.SLHits++
		default:
			continue
		}
		daysSum += float64(r.DaysElapsed)
		returnSum += r.CurrentReturnPct
		ms.returnSum += r.CurrentReturnPct
		completed = append(completed, r)
	}

	if n := len(completed); n > 0 {
		s.SuccessRate = float64(s.TargetHits) / float64(n)
		s.AvgDaysToExit = daysSum / float64(n)
		s.AvgReturnPct = returnSum / float64(n)
	}
	for _, ms := range s.ByMarket {
		if n := ms.TargetHits + ms.SLHits; n > 0 {
			ms.SuccessRate = float64(ms.TargetHits) / float64(n)
			ms.AvgReturnPct = ms.returnSum / float64(n)
		}
	}

	if topN > 0 {
		ranked := append([]model.Recommendation(nil), recs...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].CurrentReturnPct > ranked[j].CurrentReturnPct
		})
		if len(ranked) > topN {
			ranked = ranked[:topN]
		}
		s.TopPerformers = ranked
	}
	return s
}
