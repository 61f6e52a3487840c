// Command scraper harvests raw listing pages for the dataset builder.
//
// It walks the configured source list, fetching each source's result
// pages through the rendering proxy and storing them under the output
// directory, one folder per source. Requests are paced with a random
// delay so the portal sees an ordinary browsing rhythm.
//
// Usage:
//
//	scraper -sources ./config/sources.yaml -credentials ./config/credentials.yaml -output ./data/raw -once
//	scraper -sources ./config/sources.yaml -credentials ./config/credentials.yaml -output ./data/raw -schedule "0 3 * * 1"
//
// With -once the scraper runs a single pass and exits. With -schedule it
// registers the pass with a cron schedule and runs until signalled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/zikzero/carvalue/pkg/scrape"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var (
		sourcesPath = flag.String("sources", "config/sources.yaml", "Path to the source list")
		credsPath   = flag.String("credentials", "config/credentials.yaml", "Path to the proxy credentials file")
		outputDir   = flag.String("output", "data/raw", "Directory harvested pages are stored under")
		once        = flag.Bool("once", false, "Run a single harvest pass and exit")
		schedule    = flag.String("schedule", "", "Cron schedule for recurring harvest passes")
		logFormat   = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	logger := newLogger(*logFormat)
	slog.SetDefault(logger)

	if *once == (*schedule != "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -once or -schedule is required")
		os.Exit(1)
	}

	sources, err := scrape.LoadSources(*sourcesPath)
	if err != nil {
		logger.Error("failed to load sources", "path", *sourcesPath, "error", err)
		os.Exit(1)
	}

	creds, err := scrape.LoadCredentials(*credsPath)
	if err != nil {
		logger.Error("failed to load credentials", "path", *credsPath, "error", err)
		os.Exit(1)
	}

	h, err := scrape.NewHarvester(creds, *outputDir, logger)
	if err != nil {
		logger.Error("failed to build harvester", "error", err)
		os.Exit(1)
	}

	logger.Info("starting carvalue scraper",
		"version", version,
		"sources", len(sources),
		"enabled", len(scrape.Enabled(sources)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		if err := h.Run(ctx, sources); err != nil && ctx.Err() == nil {
			logger.Error("harvest pass failed", "error", err)
			os.Exit(1)
		}
		logger.Info("harvest pass complete")
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		logger.Info("scheduled harvest pass starting")
		if err := h.Run(ctx, sources); err != nil && ctx.Err() == nil {
			logger.Error("harvest pass failed", "error", err)
			return
		}
		logger.Info("harvest pass complete")
	})
	if err != nil {
		logger.Error("invalid cron schedule", "schedule", *schedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("harvest schedule registered", "schedule", *schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("shutdown complete")
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
