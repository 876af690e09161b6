// Command report renders the three figures from the aggregated CSV into
// the visuals directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ignite/partd-ssri/internal/analyzer"
	"github.com/ignite/partd-ssri/internal/config"
	"github.com/ignite/partd-ssri/internal/pkg/logger"
	"github.com/ignite/partd-ssri/internal/report"
	"github.com/ignite/partd-ssri/internal/storage"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New("report", logger.ParseLevel(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	rows, err := store.LoadAggregated(cfg.Pipeline.AggregatedPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Error("aggregated data not found", "path", cfg.Pipeline.AggregatedPath)
			fmt.Fprintf(os.Stderr, "Aggregated data not found at %s. Run ./cmd/clean first.\n", cfg.Pipeline.AggregatedPath)
			os.Exit(1)
		}
		log.Fatalf("Failed to load aggregated data: %v", err)
	}

	rep, err := analyzer.Analyze(rows, cfg.Pipeline.States, cfg.Pipeline.GroupLabels())
	if err != nil {
		if errors.Is(err, analyzer.ErrNoData) {
			lg.Error("aggregated file contains no rows", "path", cfg.Pipeline.AggregatedPath)
			fmt.Fprintln(os.Stderr, "The aggregated file is empty. Rerun ./cmd/clean on a fresh extract.")
			os.Exit(1)
		}
		log.Fatalf("Failed to analyze data: %v", err)
	}

	paths, err := report.RenderCharts(rep, cfg.Pipeline.VisualsDir)
	if err != nil {
		log.Fatalf("Failed to render charts: %v", err)
	}

	ctx := context.Background()
	for _, p := range paths {
		if err := store.Mirror(ctx, p); err != nil {
			lg.Warn("chart mirror failed", "path", p, "error", err.Error())
		}
	}

	lg.Info("report complete", "charts", len(paths), "visuals_dir", cfg.Pipeline.VisualsDir)
}
