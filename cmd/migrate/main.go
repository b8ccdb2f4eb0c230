// Package main applies the embedded schema migrations to PostgreSQL and,
// when a DSN is given, ClickHouse.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	chstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/clickhouse"
	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/migrations"
	pgstore "github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")

	flag.Parse()

	logger := log.New(os.Stderr, "[migrate] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("postgres migrations: %v", err)
	}
	logger.Println("PostgreSQL migrations applied")

	if *clickhouseDSN == "" {
		return
	}

	chConn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer chConn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		logger.Fatalf("clickhouse migrations: %v", err)
	}
	logger.Println("ClickHouse migrations applied")
}
