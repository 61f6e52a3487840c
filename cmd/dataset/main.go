// Command dataset rebuilds the listings dataset from harvested pages.
//
// It extracts listing fragments from every HTML page the scraper stored,
// cleans and deduplicates them, joins per-source vehicle metadata from
// the source list, and writes the result to a SQLite file. The predictor
// serves its filter options out of that same file.
//
// Usage:
//
//	dataset -raw ./data/raw -sources ./config/sources.yaml -out ./data/listings.db
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/zikzero/carvalue/pkg/dataset"
	"github.com/zikzero/carvalue/pkg/scrape"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var (
		rawDir      = flag.String("raw", "data/raw", "Directory of harvested pages, one folder per source")
		sourcesPath = flag.String("sources", "config/sources.yaml", "Path to the source list")
		outPath     = flag.String("out", "data/listings.db", "Output SQLite file")
		logFormat   = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	logger := newLogger(*logFormat)
	slog.SetDefault(logger)

	logger.Info("starting carvalue dataset build", "version", version, "raw", *rawDir)

	sources, err := scrape.LoadSources(*sourcesPath)
	if err != nil {
		logger.Error("failed to load sources", "path", *sourcesPath, "error", err)
		os.Exit(1)
	}

	meta := make(map[string]dataset.Meta, len(sources))
	for _, s := range sources {
		meta[s.DestinationFolder] = dataset.Meta{
			Brand:    s.Brand,
			Model:    s.Model,
			Segment:  s.Segment,
			BodyType: s.BodyType,
		}
	}

	b := &dataset.Builder{
		RawDir:   *rawDir,
		Metadata: meta,
		Logger:   logger,
	}

	rows, err := b.Build(context.Background(), *outPath)
	if err != nil {
		logger.Error("dataset build failed", "error", err)
		os.Exit(1)
	}

	logger.Info("dataset build complete", "rows", rows, "out", *outPath)
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
