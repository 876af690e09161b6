// Command fetch pulls the filtered Part D claims extract from the CMS data
// API and writes the raw CSV plus a run manifest.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ignite/partd-ssri/internal/cms"
	"github.com/ignite/partd-ssri/internal/config"
	"github.com/ignite/partd-ssri/internal/pkg/logger"
	"github.com/ignite/partd-ssri/internal/storage"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New("fetch", logger.ParseLevel(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	client := cms.NewClient(cfg.CMS, cfg.Pipeline)

	lg.Info("starting fetch",
		"year", cfg.CMS.Year,
		"states", fmt.Sprintf("%v", cfg.Pipeline.States),
		"page_size", cfg.CMS.PageSize,
		"max_rows", cfg.CMS.MaxRows)

	ctx := context.Background()
	result := client.FetchAll(ctx)

	if len(result.Records) == 0 {
		lg.Error("fetch produced no records, nothing to save", "stop_reason", string(result.StopReason))
		fmt.Fprintln(os.Stderr, "No records were fetched. Check the API filters and network, then rerun ./cmd/fetch.")
		os.Exit(1)
	}

	// A run that errored mid-way still saves what it collected; the
	// manifest records how it ended.
	if err := store.SaveRaw(ctx, cfg.Pipeline.RawPath, result.Records); err != nil {
		log.Fatalf("Failed to save raw extract: %v", err)
	}
	if err := store.SaveManifest(ctx, cfg.Pipeline.ManifestPath, client.NewManifest(result)); err != nil {
		log.Fatalf("Failed to save manifest: %v", err)
	}

	lg.Info("fetch complete",
		"run_id", result.RunID,
		"rows", len(result.Records),
		"pages", result.Pages,
		"stop_reason", string(result.StopReason),
		"raw_path", cfg.Pipeline.RawPath)

	if result.StopReason == cms.StopErrored {
		lg.Warn("fetch stopped on an error, the extract may be partial", "error", result.Err.Error())
	}
}
