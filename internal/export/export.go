// Package export writes recommendations and scan history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"SwingScout/internal/model"
)

var recommendationHeader = []string{
	"id", "market", "symbol", "date_added", "entry_price", "target_price", "stop_loss",
	"target_pct", "sl_pct", "estimated_days", "risk_reward", "current_price", "max_price",
	"min_price", "days_elapsed", "current_return_pct", "status", "outcome", "hit_date",
	"exit_price", "selection_reason", "sector", "risk_level", "tech_score",
	"volatility_bucket", "fallback_used", "last_updated",
}

var scanHeader = []string{
	"id", "market", "started_at", "duration_ms", "scanned", "qualified", "inserted",
	"duplicates", "failures", "top",
}

func price(v float64) string { return decimal.NewFromFloat(v).StringFixed(4) }

func pct(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

func date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

// WriteRecommendations writes one row per recommendation after a header row.
func WriteRecommendations(w io.Writer, recs []model.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recommendationHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		added := r.DateAdded
		row := []string{
			strconv.FormatInt(r.ID, 10),
			string(r.Market),
			r.Symbol,
			date(&added),
			price(r.EntryPrice),
			price(r.TargetPrice),
			price(r.StopLoss),
			pct(r.TargetPct),
			pct(r.SLPct),
			strconv.Itoa(r.EstimatedDays),
			pct(r.RiskReward),
			price(r.CurrentPrice),
			price(r.MaxPrice),
			price(r.MinPrice),
			strconv.Itoa(r.DaysElapsed),
			pct(r.CurrentReturnPct),
			string(r.Status),
			string(r.Outcome),
			date(r.HitDate),
			price(r.ExitPrice),
			r.SelectionReason,
			r.Sector,
			r.RiskLevel,
			pct(r.TechScore),
			r.VolatilityBucket,
			strconv.FormatBool(r.FallbackUsed),
			r.LastUpdated.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScanHistory writes one row per scan run after a header row.
func WriteScanHistory(w io.Writer, runs []model.ScanRun) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scanHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range runs {
		row := []string{
			r.ID,
			string(r.Market),
			r.StartedAt.Format(time.RFC3339),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			strconv.Itoa(r.Scanned),
			strconv.Itoa(r.Qualified),
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Duplicates),
			strconv.Itoa(r.Failures),
			r.Top,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write scan %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
