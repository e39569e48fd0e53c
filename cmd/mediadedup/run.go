package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"mediadedup/pkg/analyzer"
	"mediadedup/pkg/config"
	"mediadedup/pkg/logger"
)

var (
	// Run command flags
	scraperURL string
	mongoURI   string
	batchSize  int
	schedule   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an analysis run against the scraper output",
	Long: `Pull scraped posts from the configured scraper REST interface and
classify each new image as an original or as a repost of a stored original.

The first run against an empty store bulk-admits everything it sees; later
runs resume from the last processed article and route only new posts
through duplicate detection.

With --schedule the process stays up and executes a run on the given cron
expression, skipping a tick while the previous run is still in progress.`,
	Example: `  # Single run with defaults
  mediadedup run

  # Point at a specific scraper and database
  mediadedup run --scraper-url http://scraper:5000 --mongo-uri mongodb://db:27017

  # Every 30 minutes
  mediadedup run --schedule "*/30 * * * *"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runAnalysis()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&scraperURL, "scraper-url", "", "base URL of the scraper REST interface")
	runCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection string")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents requested per page")
	runCmd.Flags().StringVar(&schedule, "schedule", "", "cron expression for periodic execution")
}

func runAnalysis() {
	flags := make(map[string]interface{})
	if scraperURL != "" {
		flags["scraper-url"] = scraperURL
	}
	if mongoURI != "" {
		flags["mongo-uri"] = mongoURI
	}
	if batchSize > 0 {
		flags["batch-size"] = batchSize
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to initialize logger")
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("mediadedup starting")

	if schedule == "" {
		if err := executeRun(cfg); err != nil {
			log.WithError(err).Error("Analysis run failed")
			os.Exit(1)
		}
		return
	}

	// Periodic mode. A tick fires into a goroutine, so guard against
	// overlap: a single job instance at a time is assumed everywhere.
	var busy atomic.Bool
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if !busy.CompareAndSwap(false, true) {
			log.Warn("Previous run still in progress, skipping tick")
			return
		}
		defer busy.Store(false)

		if err := executeRun(cfg); err != nil {
			log.WithError(err).Error("Scheduled analysis run failed")
		}
	})
	if err != nil {
		log.WithError(err).WithField("schedule", schedule).Error("Invalid cron schedule")
		os.Exit(1)
	}

	c.Start()
	log.WithField("schedule", schedule).Info("Scheduler started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx := c.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}

func executeRun(cfg *config.Config) error {
	ctx := context.Background()
	log := logger.GetLogger()

	a, err := analyzer.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Store().Close(ctx)

	summary, err := a.Run(ctx)
	if err != nil {
		return err
	}

	log.InfoWithFields("Run completed", map[string]interface{}{
		"run_id":            summary.RunID.Hex(),
		"termination":       string(summary.Termination),
		"posts_processed":   summary.PostsProcessed,
		"batches_processed": summary.BatchesProcessed,
	})
	return nil
}
