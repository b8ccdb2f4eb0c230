// Package main re-runs extraction over stored raw content and reports
// divergence from the persisted decision rows.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/replay"
	pgstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	messageHash := flag.String("hash", "", "Verify a single decision by message hash")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	verifier := replay.NewVerifier(pgstore.NewDecisionStore(pool))

	if *messageHash != "" {
		result, err := verifier.VerifyDecision(ctx, *messageHash)
		if err != nil {
			logger.Fatalf("verify %s: %v", *messageHash, err)
		}
		printResults(*outputJSON, []replay.VerificationResult{*result})
		if !result.Match {
			os.Exit(1)
		}
		return
	}

	report, err := verifier.VerifyAll(ctx)
	if err != nil {
		logger.Fatalf("verify all: %v", err)
	}

	printResults(*outputJSON, report.Results)
	fmt.Printf("verified %d decisions: %d matched, %d divergent\n",
		report.TotalDecisions, report.MatchedDecisions, report.DivergentDecisions)
	if report.DivergentDecisions > 0 {
		os.Exit(1)
	}
}

func printResults(asJSON bool, results []replay.VerificationResult) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(results)
		return
	}

	for _, r := range results {
		if r.Match {
			continue
		}
		fmt.Printf("%s (%s):\n", r.MessageHash, r.ModelName)
		for _, d := range r.Divergences {
			fmt.Printf("  %-12s stored=%v replayed=%v\n", d.Field, d.Stored, d.Replayed)
		}
	}
}
