// Package main runs the capture ingestion server: HTTP and WebSocket batch
// ingestion, per-origin buffering with flush policy, extraction, and
// consolidated decision storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/consolidate"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/ingest"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/server"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage"
	chstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/clickhouse"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/memory"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/migrations"
	pgstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	decisionStore storage.DecisionStore
	runStore      storage.IngestRunStore
	eventStore    storage.ExtractionEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8420"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", true, "Apply schema migrations on startup")
	quietPeriod := flag.Duration("quiet-period", 500*time.Millisecond, "Buffer quiet-period flush threshold")
	maxChunks := flag.Int("max-chunks", 15, "Buffer chunk-count flush threshold")
	maxContentLen := flag.Int("max-content-len", 5000, "Buffer size-ceiling flush threshold (chars)")
	minContentLen := flag.Int("min-content-len", 20, "Minimum combined content to persist a flush (chars)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Wire the pipeline
	policy := ingest.FlushPolicy{
		QuietPeriod:   *quietPeriod,
		MaxChunks:     *maxChunks,
		MaxContentLen: *maxContentLen,
		MinContentLen: *minContentLen,
	}
	engine := consolidate.New(stores.decisionStore, stores.eventStore, logger)
	manager := ingest.NewManager(ingest.Options{
		Buffers: ingest.NewBufferStore(policy, ingest.SystemClock{}),
		Engine:  engine,
		Runs:    stores.runStore,
		Logger:  log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile),
	})

	srv := server.New(server.Options{
		Manager:   manager,
		Decisions: stores.decisionStore,
		Runs:      stores.runStore,
		Logger:    logger,
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: srv.Routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Drain buffers before the listener goes away so partial
		// accumulations are not lost.
		res := manager.FlushAll(shutdownCtx)
		logger.Printf("Shutdown flush: %d flushed, %d discarded", res.Flushes, res.Discarded)

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			decisionStore: memory.NewDecisionStore(),
			runStore:      memory.NewIngestRunStore(),
			eventStore:    memory.NewExtractionEventStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	stores := &allStores{
		decisionStore: pgstore.NewDecisionStore(pool),
		runStore:      pgstore.NewIngestRunStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse is optional; without it the extraction analytics stream is
	// kept in memory for the process lifetime.
	if clickhouseDSN == "" {
		logger.Println("No ClickHouse DSN, extraction analytics will not be persisted")
		stores.eventStore = memory.NewExtractionEventStore()
		return stores, cleanup, nil
	}

	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if migrate {
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
	}
	stores.eventStore = chstore.NewExtractionEventStore(chConn)

	return stores, func() {
		chConn.Close()
		pool.Close()
	}, nil
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
