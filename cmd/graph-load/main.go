// Package main bulk-loads a finished gridatlas export into Neo4j.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gridatlas/gridatlas/engine/graphload"
	"github.com/gridatlas/gridatlas/pkg/repo"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		dir       = flag.String("dir", "output", "export root directory to load")
		uri       = flag.String("neo4j", envOr("NEO4J_URL", "neo4j://localhost:7687"), "Neo4j connection URI")
		user      = flag.String("user", envOr("NEO4J_USER", "neo4j"), "Neo4j user")
		pass      = flag.String("pass", envOr("NEO4J_PASS", "password"), "Neo4j password")
		batchSize = flag.Int("batch-size", 500, "rows per MERGE statement")
		timeout   = flag.Duration("timeout", 30*time.Minute, "load timeout")
	)
	flag.Parse()

	if err := run(*dir, *uri, *user, *pass, *batchSize, *timeout, logger); err != nil {
		logger.Error("load failed", "error", err)
		os.Exit(1)
	}
}

func run(dir, uri, user, pass string, batchSize int, timeout time.Duration, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	loader := graphload.New(repo.NewGraph(driver, repo.WithBatchSize(batchSize)), logger)
	stats, err := loader.LoadDir(ctx, dir)
	if err != nil {
		return err
	}
	logger.Info("load complete", "files", stats.Files,
		"nodes", stats.Nodes, "relationships", stats.Relationships)
	return nil
}
