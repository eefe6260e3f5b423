package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"example.com/storefront-go/internal/catalog"
	"example.com/storefront-go/internal/logging"
	"example.com/storefront-go/internal/sqliteutil"
)

func main() {
	_ = godotenv.Load()

	var (
		dbPath = flag.String("db", "catalog.db", "path to the catalog sqlite database file")
		addr   = flag.String("addr", ":8081", "HTTP listen address for the catalog API")
		seed   = flag.Int("seed", 0, "seed this many random sneakers on startup")
	)
	flag.Parse()

	ctx := context.Background()
	logger := logging.New()

	db, err := sqliteutil.Open(*dbPath)
	if err != nil {
		logger.Error("open catalog db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := catalog.NewStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Error("init catalog schema failed", "error", err)
		os.Exit(1)
	}

	if *seed > 0 {
		seeded, err := store.Seed(ctx, *seed)
		if err != nil {
			logger.Error("seed catalog failed", "error", err)
			os.Exit(1)
		}
		logger.Info("catalog seeded", "count", len(seeded))
	}

	serverLogger := logger.With("component", "catalog.http")
	server := &http.Server{
		Addr:    *addr,
		Handler: catalog.NewServer(store, serverLogger).Router(),
	}

	go func() {
		serverLogger.Info("catalog API listening", "addr", *addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("catalog server error", "error", err)
		}
	}()

	waitForShutdown(serverLogger, server)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("catalog server stopped")
}
