// Command analyze computes the state ranking, the SSRI market share, and
// the highest prescribing state per drug from the aggregated CSV, prints
// the findings as tables, and writes the markdown summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

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

	lg := logger.New("analyze", logger.ParseLevel(cfg.Logging.Level))

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

	fmt.Println("--- DATA ANALYSIS FINDINGS ---")
	printStateRanking(rep)
	printMarketShare(rep)
	printLeaders(rep)

	renderer := report.NewSummaryRenderer(cfg.CMS.Year)
	if err := renderer.WriteSummary(rep, cfg.Pipeline.SummaryPath); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}
	if err := store.Mirror(context.Background(), cfg.Pipeline.SummaryPath); err != nil {
		lg.Warn("summary mirror failed", "error", err.Error())
	}

	lg.Info("analysis complete",
		"aggregated_rows", len(rows),
		"grand_total", rep.GrandTotal,
		"summary_path", cfg.Pipeline.SummaryPath)
}

func printStateRanking(rep *analyzer.Report) {
	fmt.Println("\n[FINDING 1: OVERALL STATE RANKING]")

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Rank", "State", "Total SSRI Claims"})
	for _, row := range rep.StateRanking {
		t.AppendRow(table.Row{row.Rank, row.State, report.Comma(row.TotalClaims)})
	}
	t.Render()
}

func printMarketShare(rep *analyzer.Report) {
	fmt.Println("\n[FINDING 2: OVERALL SSRI MARKET SHARE]")

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Drug Group", "Total SSRI Claims", "Share"})
	for _, row := range rep.DrugRanking {
		t.AppendRow(table.Row{row.Group, report.Comma(row.TotalClaims), fmt.Sprintf("%.1f%%", row.Share)})
	}
	t.Render()
}

func printLeaders(rep *analyzer.Report) {
	fmt.Println("\n[FINDING 3: HIGHEST PRESCRIBING STATE PER DRUG]")

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Drug Group", "State", "Claims"})
	for _, row := range rep.Leaders {
		t.AppendRow(table.Row{row.Group, row.State, report.Comma(row.TotalClaims)})
	}
	t.Render()
}
