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
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	temporalworker "go.temporal.io/sdk/worker"

	"example.com/storefront-go/internal/logging"
	"example.com/storefront-go/internal/shop"
	"example.com/storefront-go/internal/sqliteutil"
)

func main() {
	_ = godotenv.Load()

	var (
		dbPath       = flag.String("db", "storefront.db", "path to the storefront sqlite database file")
		addr         = flag.String("addr", ":8082", "HTTP listen address for the storefront API")
		catalogURL   = flag.String("catalog", "http://localhost:8081", "base URL of the catalog service")
		temporalHost = flag.String("temporal", "", "Temporal frontend host:port; empty runs checkouts in-process")
		authLatency  = flag.Duration("auth-latency", time.Second, "simulated auth round-trip latency")
		payLatency   = flag.Duration("payment-latency", 3*time.Second, "simulated payment processing latency")
		declineRate  = flag.Float64("decline-rate", 0.1, "fraction of simulated charges that decline")
	)
	flag.Parse()

	ctx := context.Background()
	logger := logging.New()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
		secret = time.Now().Format(time.RFC3339Nano)
	}

	db, err := sqliteutil.Open(*dbPath)
	if err != nil {
		logger.Error("open storefront db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	snapshots := shop.NewSQLiteSnapshots(db)
	if err := snapshots.Init(ctx); err != nil {
		logger.Error("init snapshot schema failed", "error", err)
		os.Exit(1)
	}

	sessions := shop.NewSessions(snapshots, shop.SimulatedAuthenticator{Latency: *authLatency})
	orders, err := shop.NewOrdersStore(ctx, snapshots)
	if err != nil {
		logger.Error("load orders failed", "error", err)
		os.Exit(1)
	}

	processor := shop.NewSimulatedProcessor(*payLatency, *declineRate)
	activities := shop.NewCheckoutActivities(sessions, orders, processor, logger.With("component", "checkout.activities"))

	var orchestrator shop.CheckoutOrchestrator
	if *temporalHost != "" {
		c, err := client.Dial(client.Options{
			HostPort: *temporalHost,
			Logger:   temporallog.NewStructuredLogger(logger.With("component", "temporal")),
		})
		if err != nil {
			logger.Error("dial temporal failed", "host", *temporalHost, "error", err)
			os.Exit(1)
		}
		defer c.Close()

		w := shop.RegisterCheckoutWorker(c, activities)
		go func() {
			if err := w.Run(temporalworker.InterruptCh()); err != nil {
				logger.Error("checkout worker stopped", "error", err)
			}
		}()
		orchestrator = shop.NewTemporalOrchestrator(c, logger)
		logger.Info("checkout orchestration via temporal", "host", *temporalHost, "task_queue", shop.CheckoutTaskQueue())
	} else {
		orchestrator = shop.NewInlineOrchestrator(activities, logger)
		logger.Info("checkout orchestration in-process")
	}

	serverLogger := logger.With("component", "storefront.http")
	srv := shop.NewServer(
		sessions,
		orders,
		shop.NewCatalogClient(*catalogURL),
		orchestrator,
		shop.NewTokenIssuer([]byte(secret), 24*time.Hour),
		shop.DefaultPricing(),
		serverLogger,
	)
	server := &http.Server{
		Addr:    *addr,
		Handler: srv.Router(),
	}

	go func() {
		serverLogger.Info("storefront API listening", "addr", *addr, "db", *dbPath, "catalog", *catalogURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("storefront server error", "error", err)
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
	logger.Info("storefront server stopped")
}
