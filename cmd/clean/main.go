// Command clean normalizes the raw extract, maps drug names to their
// reporting groups, filters to the target states, and writes the
// aggregated CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ignite/partd-ssri/internal/cleaner"
	"github.com/ignite/partd-ssri/internal/config"
	"github.com/ignite/partd-ssri/internal/pkg/logger"
	"github.com/ignite/partd-ssri/internal/storage"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New("clean", logger.ParseLevel(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	raw, err := store.LoadRaw(cfg.Pipeline.RawPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Error("raw extract not found", "path", cfg.Pipeline.RawPath)
			fmt.Fprintf(os.Stderr, "Raw extract not found at %s. Run ./cmd/fetch first.\n", cfg.Pipeline.RawPath)
			os.Exit(1)
		}
		log.Fatalf("Failed to load raw extract: %v", err)
	}

	mapping := cleaner.NewMapping(cfg.Pipeline.DrugGroups)

	aggregated, err := cleaner.CleanAndAggregate(raw, mapping, cfg.Pipeline.States)
	if err != nil {
		if errors.Is(err, cleaner.ErrNoRows) {
			lg.Error("no rows survived cleaning, nothing to save", "input_rows", len(raw))
			fmt.Fprintln(os.Stderr, "The raw extract contained no usable rows after filtering and mapping.")
			os.Exit(1)
		}
		log.Fatalf("Failed to clean data: %v", err)
	}

	ctx := context.Background()
	if err := store.SaveAggregated(ctx, cfg.Pipeline.AggregatedPath, aggregated); err != nil {
		log.Fatalf("Failed to save aggregated data: %v", err)
	}

	lg.Info("clean complete",
		"input_rows", len(raw),
		"aggregated_rows", len(aggregated),
		"aggregated_path", cfg.Pipeline.AggregatedPath)
}
