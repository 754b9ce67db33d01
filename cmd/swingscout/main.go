package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"SwingScout/internal/collector"
	"SwingScout/internal/config"
	"SwingScout/internal/logger"
	"SwingScout/internal/notifier"
	"SwingScout/internal/recorder"
	"SwingScout/internal/tracker"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swingscout",
		Short: "Swing-trade scanner and recommendation tracker for Indian and US equities",
		Long: `SwingScout scans a configured stock universe for swing-trade setups,
stores each recommendation with a target and stop-loss, and tracks it
until the target or the stop is hit.

Examples:
  swingscout scan --market us --top 5
  swingscout scan --market indian --symbols TCS,INFY --dry-run
  swingscout serve
  swingscout list --status active
  swingscout export --out recs.csv`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default $CONFIG_PATH or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newScanCmd(),
		newUpdateCmd(),
		newServeCmd(),
		newListCmd(),
		newSummaryCmd(),
		newArchiveCmd(),
		newCleanupCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	rec      recorder.Recorder
	tracker  *tracker.Tracker
	fetcher  collector.Fetcher
	notifier *notifier.TelegramNotifier
}

// newApp loads config and opens the store. With inMemory set nothing is
// persisted.
func newApp(inMemory bool) (*app, error) {
	cfg, err := config.Load(config.ResolvePath(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log.Logger)

	var rec recorder.Recorder
	if inMemory {
		rec = recorder.NewMemoryRecorder()
	} else {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("open database: %w", err)
		}
		rec = sr
	}

	fetcher, err := collector.New(cfg)
	if err != nil {
		_ = rec.Close()
		log.Sync()
		return nil, err
	}
	log.Info("data source ready", logger.StringField("provider", fetcher.Name()))

	loc, err := cfg.Location()
	if err != nil {
		_ = rec.Close()
		log.Sync()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		rec:      rec,
		tracker:  tracker.New(rec, log, tracker.WithSymbolTimeout(cfg.Scanner.SymbolTimeout), tracker.WithLocation(loc)),
		fetcher:  fetcher,
		notifier: notifier.NewTelegramNotifier(cfg, log),
	}, nil
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		a.log.Warn("close recorder", logger.ErrorField(err))
	}
	a.log.Sync()
}
