package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"VowCollider/internal/logger"
	"VowCollider/internal/search"
)

func main() {
	cfg := parseFlags()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(cfg *Config) error {
	params, err := cfg.params()
	if err != nil {
		return fmt.Errorf("configuration:\n%w", err)
	}

	engine, err := search.New(params, search.Options{TracePath: cfg.TracePath})
	if err != nil {
		return err
	}
	defer engine.Close()

	// Ctrl-C cancels cooperatively between batches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	collision, err := engine.Run(ctx)
	if errors.Is(err, search.ErrNoCollision) {
		// A spurious DP hit ends the run cleanly; rerun with a fresh
		// -seed-salt.
		logger.Warn("no collision")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("done",
		"matched_bytes", collision.Matched,
		"total_hashes", collision.TotalHashes,
		"batches", collision.Batches,
	)

	return nil
}
