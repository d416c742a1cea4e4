// Package main is the entry point for the moviecat CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"moviecat/internal/backend/firestore"
	"moviecat/internal/backend/sqlite"
	"moviecat/internal/cli"
	"moviecat/internal/commands"
	"moviecat/internal/config"
	"moviecat/internal/store"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Run and exit with code
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, openStore)
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// openStore opens the backend named in the config.
func openStore(ctx context.Context, cfg *config.Config) (store.Catalog, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		return firestore.New(ctx, cfg)
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath())
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
