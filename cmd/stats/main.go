// Package main prints a summary of the captured decision corpus: per-model
// row counts, recent ingest runs, and optionally one model's decisions over
// a time range.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	pgstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	model := flag.String("model", "", "List decisions for one model")
	fromTime := flag.String("from-time", "0000", "Range start for --model (ISO-8601)")
	toTime := flag.String("to-time", "9999", "Range end for --model (ISO-8601)")
	runLimit := flag.Int("runs", 10, "Number of recent ingest runs to show")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[stats] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	decisions := pgstore.NewDecisionStore(pool)
	runs := pgstore.NewIngestRunStore(pool)

	if *model != "" {
		rows, err := decisions.GetByModelTimeRange(ctx, *model, *fromTime, *toTime)
		if err != nil {
			logger.Fatalf("query decisions for %s: %v", *model, err)
		}
		if *outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(rows)
			return
		}
		for _, d := range rows {
			action := "-"
			if d.Action != nil {
				action = *d.Action
			}
			fmt.Printf("%s  %s  %-6s  %s\n", d.Timestamp, d.MessageHash, action, d.ModelName)
		}
		fmt.Printf("%d decisions\n", len(rows))
		return
	}

	total, err := decisions.Count(ctx)
	if err != nil {
		logger.Fatalf("count decisions: %v", err)
	}
	byModel, err := decisions.CountByModel(ctx)
	if err != nil {
		logger.Fatalf("count by model: %v", err)
	}
	recent, err := runs.GetRecent(ctx, *runLimit)
	if err != nil {
		logger.Fatalf("recent runs: %v", err)
	}

	fmt.Printf("decisions: %d\n\n", total)

	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		fmt.Printf("  %-24s %d\n", m, byModel[m])
	}

	fmt.Printf("\nrecent ingest runs:\n")
	for _, r := range recent {
		errs := ""
		if r.ErrorSummary != nil {
			errs = "  errors=" + *r.ErrorSummary
		}
		fmt.Printf("  %s  events=%d rows=%d%s\n", r.RunTimestamp, r.EventsProcessed, r.RowsInserted, errs)
	}
}
