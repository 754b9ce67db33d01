package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SwingScout/internal/model"
	"SwingScout/internal/summary"
	"SwingScout/internal/tracker"
)

// Money renders a price with two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Rate renders a fraction as a percentage with one decimal, without the sign.
func Rate(f float64) string {
	return decimal.NewFromFloat(f).Shift(2).StringFixed(1)
}

// Pct renders a signed percentage with two decimals.
func Pct(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

func marketFlag(m model.Market) string {
	if m == model.MarketIndian {
		return "🇮🇳"
	}
	return "🇺🇸"
}

// FormatTransition formats a Target Hit / SL Hit alert.
func FormatTransition(r model.Recommendation) string {
	var b strings.Builder
	head := "🎯 <b>Target Hit</b>"
	if r.Status == model.StatusSLHit {
		head = "🛑 <b>Stop-Loss Hit</b>"
	}
	fmt.Fprintf(&b, "%s %s <b>%s</b>\n\n", head, marketFlag(r.Market), html.EscapeString(r.Symbol))
	fmt.Fprintf(&b, "Entry: %s → Exit: %s (%s)\n", Money(r.EntryPrice), Money(r.ExitPrice), Pct(r.CurrentReturnPct))
	fmt.Fprintf(&b, "Target: %s | Stop: %s\n", Money(r.TargetPrice), Money(r.StopLoss))
	fmt.Fprintf(&b, "Held %d days (estimated %d)\n", r.DaysElapsed, r.EstimatedDays)
	fmt.Fprintf(&b, "Range: %s – %s\n", Money(r.MinPrice), Money(r.MaxPrice))
	return b.String()
}

// FormatScan formats ranked candidates of one scan.
func FormatScan(run model.ScanRun, cands []model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s scan</b> %s | %s\n", run.Market, marketFlag(run.Market), run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Scanned %d, qualified %d, new %d, duplicates %d, failures %d\n\n",
		run.Scanned, run.Qualified, run.Inserted, run.Duplicates, run.Failures)
	for i, c := range cands {
		fmt.Fprintf(&b, "%d. <b>%s</b> %s → 🎯 %s (%s) 🛑 %s (-%s%%) ~%dd R:R %s\n",
			i+1, html.EscapeString(c.Symbol), Money(c.EntryPrice), Money(c.TargetPrice), Pct(c.TargetPct),
			Money(c.StopLoss), decimal.NewFromFloat(c.SLPct).StringFixed(2), c.EstimatedDays,
			decimal.NewFromFloat(c.RiskReward).StringFixed(2))
		if len(c.Rationale) > 0 {
			fmt.Fprintf(&b, "   <i>%s</i>\n", html.EscapeString(strings.Join(c.Rationale, "; ")))
		}
	}
	return b.String()
}

// FormatSummary formats performance statistics.
func FormatSummary(s summary.Summary) string {
	var b strings.Builder
	b.WriteString("📈 <b>Performance</b>\n\n")
	fmt.Fprintf(&b, "Total: %d | Active: %d | Archived: %d\n", s.Total, s.Active, s.Archived)
	fmt.Fprintf(&b, "Target hits: %d | SL hits: %d\n", s.TargetHits, s.SLHits)
	fmt.Fprintf(&b, "Success rate: %s%%\n", Rate(s.SuccessRate))
	fmt.Fprintf(&b, "Avg days to exit: %s | Avg return: %s\n",
		decimal.NewFromFloat(s.AvgDaysToExit).StringFixed(1), Pct(s.AvgReturnPct))
	if s.Overdue > 0 {
		fmt.Fprintf(&b, "Overdue active: %d\n", s.Overdue)
	}

	markets := make([]string, 0, len(s.ByMarket))
	for m := range s.ByMarket {
		markets = append(markets, string(m))
	}
	sort.Strings(markets)
	for _, m := range markets {
		ms := s.ByMarket[model.Market(m)]
		fmt.Fprintf(&b, "%s %s: %d rows, %d/%d hits, %s%% success\n", marketFlag(model.Market(m)), m,
			ms.Total, ms.TargetHits, ms.TargetHits+ms.SLHits, Rate(ms.SuccessRate))
	}

	if len(s.TopPerformers) > 0 {
		b.WriteString("\n<b>Top performers</b>\n")
		for i, r := range s.TopPerformers {
			fmt.Fprintf(&b, "%d. %s (%s) %s [%s]\n", i+1, html.EscapeString(r.Symbol), r.Market, Pct(r.CurrentReturnPct), r.Status)
		}
	}
	return b.String()
}

// FormatActive lists open recommendations.
func FormatActive(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return "No active recommendations."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Active recommendations</b> (%d)\n\n", len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "%s <b>%s</b> %s → %s (%s) day %d/%d\n", marketFlag(r.Market), html.EscapeString(r.Symbol),
			Money(r.EntryPrice), Money(r.CurrentPrice), Pct(r.CurrentReturnPct), r.DaysElapsed, r.EstimatedDays)
	}
	return b.String()
}

// FormatStatus renders the scheduler control surface state.
func FormatStatus(running bool, frequencyMinutes int, last time.Time, res tracker.UpdateResult) string {
	var b strings.Builder
	state := "⏸ stopped"
	if running {
		state = "▶️ running"
	}
	fmt.Fprintf(&b, "⚙️ <b>Scheduler</b> %s, every %d min\n", state, frequencyMinutes)
	if last.IsZero() {
		b.WriteString("No update pass yet.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Last update: %s\n", last.Format("2006-01-02 15:04:05"))
	b.WriteString(FormatUpdate(res))
	return b.String()
}

// FormatUpdate renders the counters of one update pass.
func FormatUpdate(res tracker.UpdateResult) string {
	return fmt.Sprintf("Updated %d | 🎯 %d | 🛑 %d | failures %d\n",
		res.Updated, res.TargetHits, res.SLHits, res.Failures)
}
