package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"SwingScout/internal/export"
	"SwingScout/internal/logger"
	"SwingScout/internal/model"
	"SwingScout/internal/notifier"
	"SwingScout/internal/recorder"
	"SwingScout/internal/scanner"
	"SwingScout/internal/scheduler"
	"SwingScout/internal/summary"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newScanCmd() *cobra.Command {
	var (
		marketFlag string
		symbolList string
		topN       int
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a market and store the top candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			var markets []model.Market
			if strings.EqualFold(marketFlag, "all") {
				markets = []model.Market{model.MarketIndian, model.MarketUS}
			} else {
				m, err := model.ParseMarket(marketFlag)
				if err != nil {
					return err
				}
				markets = []model.Market{m}
			}

			a, err := newApp(dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			opts := scanner.Options{
				Workers:       a.cfg.Scanner.Workers,
				TopN:          a.cfg.Scanner.TopN,
				SymbolTimeout: a.cfg.Scanner.SymbolTimeout,
				LookbackDays:  a.cfg.Scanner.LookbackDays,
				Seed:          a.cfg.Scanner.Seed,
			}
			if topN > 0 {
				opts.TopN = topN
			}

			for _, m := range markets {
				stocks := universe(a.cfg.Universe(m), symbolList)
				if len(stocks) == 0 {
					return fmt.Errorf("no symbols configured for the %s market", m)
				}
				if err := runScan(ctx, a, m, stocks, opts, dryRun); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&marketFlag, "market", "", "market to scan: indian, us or all")
	cmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated symbols to scan (default: configured universe)")
	cmd.Flags().IntVar(&topN, "top", 0, "number of candidates to keep (default: scanner.top_n)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print candidates without persisting them")
	_ = cmd.MarkFlagRequired("market")
	return cmd
}

// universe narrows the configured stocks to symbolList, keeping sectors of
// known symbols.
func universe(configured []model.Stock, symbolList string) []model.Stock {
	if strings.TrimSpace(symbolList) == "" {
		return configured
	}
	sectors := make(map[string]string, len(configured))
	for _, s := range configured {
		sectors[strings.ToUpper(s.Symbol)] = s.Sector
	}
	var stocks []model.Stock
	for _, sym := range strings.Split(symbolList, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		stocks = append(stocks, model.Stock{Symbol: sym, Sector: sectors[sym]})
	}
	return stocks
}

func runScan(ctx context.Context, a *app, m model.Market, stocks []model.Stock, opts scanner.Options, dryRun bool) error {
	fmt.Printf("Scanning %d %s stocks...\n", len(stocks), m)

	s := scanner.New(a.fetcher, opts, a.log)
	bar := newScanBar(len(stocks), os.Stdout)
	s.SetProgressCallback(advance(bar))

	res, err := s.Run(ctx, m, stocks, a.tracker, a.rec)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	_ = bar.Finish()
	fmt.Println()

	outputCandidates(res.Scan.Candidates)
	fmt.Printf("\nScanned %d, qualified %d, stored %d, duplicates %d, failures %d in %s\n",
		res.Scan.Scanned, res.Scan.Qualified, res.Add.Inserted, res.Add.Duplicates,
		res.Scan.FailureCount(), res.Scan.Duration.Round(time.Millisecond))
	for kind, n := range res.Scan.Failures {
		fmt.Printf("  %s: %d\n", kind, n)
	}
	if dryRun {
		fmt.Println("(dry run: nothing persisted)")
		return nil
	}
	a.notifier.NotifyScan(ctx, res.Run, res.Scan.Candidates)
	return nil
}

func newScanBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// advance steps the bar once per finished symbol. Workers report out of
// order, so the reported count is not used.
func advance(bar *progressbar.ProgressBar) scanner.ProgressCallback {
	return func(_, _ int) {
		_ = bar.Add(1)
	}
}

func outputCandidates(cands []model.Candidate) {
	if len(cands) == 0 {
		fmt.Println("No candidates passed the filter.")
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"#", "Symbol", "Entry", "Target", "Stop", "Target %", "SL %", "Days", "R:R", "Strength", "Risk"}),
	)
	for i, c := range cands {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			c.Symbol,
			notifier.Money(c.EntryPrice),
			notifier.Money(c.TargetPrice),
			notifier.Money(c.StopLoss),
			notifier.Pct(c.TargetPct),
			notifier.Pct(-c.SLPct),
			fmt.Sprintf("%d", c.EstimatedDays),
			fmt.Sprintf("%.2f", c.RiskReward),
			fmt.Sprintf("%.1f", c.Strength),
			c.RiskLevel,
		})
	}
	table.Render()

	fmt.Println("\n--- Rationale ---")
	for _, c := range cands {
		fmt.Printf("[%s] %s\n", c.Symbol, strings.Join(c.Rationale, "; "))
		if c.FallbackUsed {
			fmt.Println("  (fallback target/stop used)")
		}
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Run one price update pass over active recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			sched := scheduler.NewScheduler(ctx, a.tracker, a.fetcher, a.notifier, a.log)
			res, err := sched.ForceUpdateNow(ctx)
			if err != nil {
				return fmt.Errorf("update pass: %w", err)
			}
			fmt.Print(notifier.FormatUpdate(res))
			for _, r := range res.Transitions {
				fmt.Printf("  %s %s %s at %s (%s)\n", r.Market, r.Symbol, r.Status, notifier.Money(r.ExitPrice), notifier.Pct(r.CurrentReturnPct))
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the update scheduler and Telegram command polling until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			sched := scheduler.NewScheduler(ctx, a.tracker, a.fetcher, a.notifier, a.log)
			if err := sched.Start(a.cfg.Schedule.UpdateFrequencyMinutes); err != nil {
				return err
			}
			defer sched.Stop()

			go a.notifier.StartPolling(ctx, sched.HandleCommand)

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				a.log.Info("RUN_ON_START enabled, running an update pass now")
				go func() {
					if _, err := sched.ForceUpdateNow(ctx); err != nil {
						a.log.Error("initial update failed", logger.ErrorField(err))
					}
				}()
			}

			a.log.Info("SwingScout is running, press Ctrl+C to stop",
				logger.IntField("frequency_minutes", a.cfg.Schedule.UpdateFrequencyMinutes),
				logger.Field("telegram", a.notifier.Enabled()))
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run an update pass immediately")
	return cmd
}

func parseStatus(s string) (model.Status, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")) {
	case "":
		return "", nil
	case "active":
		return model.StatusActive, nil
	case "target hit", "target", "hit":
		return model.StatusTargetHit, nil
	case "sl hit", "sl", "stop":
		return model.StatusSLHit, nil
	case "archived":
		return model.StatusArchived, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func newListCmd() *cobra.Command {
	var statusFlag, marketFlag string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := recorder.Filter{Limit: limit}
			var err error
			if f.Status, err = parseStatus(statusFlag); err != nil {
				return err
			}
			if marketFlag != "" {
				if f.Market, err = model.ParseMarket(marketFlag); err != nil {
					return err
				}
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.tracker.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No recommendations found.")
				return nil
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"ID", "Market", "Symbol", "Added", "Entry", "Target", "Stop", "Current", "Return", "Days", "Status"}),
			)
			for _, r := range recs {
				table.Append([]string{
					fmt.Sprintf("%d", r.ID),
					string(r.Market),
					r.Symbol,
					r.DateAdded.Format(model.DateLayout),
					notifier.Money(r.EntryPrice),
					notifier.Money(r.TargetPrice),
					notifier.Money(r.StopLoss),
					notifier.Money(r.CurrentPrice),
					notifier.Pct(r.CurrentReturnPct),
					fmt.Sprintf("%d/%d", r.DaysElapsed, r.EstimatedDays),
					string(r.Status),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status: active, target_hit, sl_hit, archived")
	cmd.Flags().StringVar(&marketFlag, "market", "", "filter by market: indian, us")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = all)")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show performance statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.tracker.List(cmd.Context(), recorder.Filter{})
			if err != nil {
				return err
			}
			outputSummary(summary.Summarize(recs, topN))
			return nil
		},
	}
	cmd.Flags().IntVar(&topN, "top", 5, "number of top performers to show")
	return cmd
}

func outputSummary(s summary.Summary) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Market", "Total", "Active", "Target Hits", "SL Hits", "Success", "Avg Return"}),
	)
	markets := make([]string, 0, len(s.ByMarket))
	for m := range s.ByMarket {
		markets = append(markets, string(m))
	}
	sort.Strings(markets)
	for _, m := range markets {
		ms := s.ByMarket[model.Market(m)]
		table.Append([]string{
			m,
			fmt.Sprintf("%d", ms.Total),
			fmt.Sprintf("%d", ms.Active),
			fmt.Sprintf("%d", ms.TargetHits),
			fmt.Sprintf("%d", ms.SLHits),
			notifier.Rate(ms.SuccessRate) + "%",
			notifier.Pct(ms.AvgReturnPct),
		})
	}
	table.Append([]string{
		"All",
		fmt.Sprintf("%d", s.Total),
		fmt.Sprintf("%d", s.Active),
		fmt.Sprintf("%d", s.TargetHits),
		fmt.Sprintf("%d", s.SLHits),
		notifier.Rate(s.SuccessRate) + "%",
		notifier.Pct(s.AvgReturnPct),
	})
	table.Render()

	fmt.Printf("\nArchived: %d | Overdue active: %d | Avg days to exit: %.1f\n", s.Archived, s.Overdue, s.AvgDaysToExit)
	if len(s.TopPerformers) == 0 {
		return
	}
	fmt.Println("\n--- Top Performers ---")
	for i, r := range s.TopPerformers {
		fmt.Printf("%d. %s (%s) %s [%s]\n", i+1, r.Symbol, r.Market, notifier.Pct(r.CurrentReturnPct), r.Status)
	}
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Move Target Hit and SL Hit recommendations to Archived",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.tracker.Archive(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Archived %d recommendations.\n", n)
			return nil
		},
	}
}

func newCleanupCmd() *cobra.Command {
	var olderThan int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete resolved recommendations added more than N days ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.tracker.Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d recommendations.\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&olderThan, "older-than", 0, "age in days of resolved rows to delete")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	var history bool
	var limit int
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recommendations or scan history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			w := os.Stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if history {
				runs, err := a.rec.ListScans(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return export.WriteScanHistory(w, runs)
			}
			recs, err := a.tracker.List(cmd.Context(), recorder.Filter{Limit: limit})
			if err != nil {
				return err
			}
			return export.WriteRecommendations(w, recs)
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "output file (- for stdout)")
	cmd.Flags().BoolVar(&history, "history", false, "export scan history instead of recommendations")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 = all)")
	return cmd
}
