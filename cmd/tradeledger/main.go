package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/tradeledger/internal/config"
	"github.com/efreitasn/tradeledger/internal/engine"
	"github.com/efreitasn/tradeledger/internal/handler"
	"github.com/efreitasn/tradeledger/internal/ledger"
	"github.com/efreitasn/tradeledger/internal/service"
	"github.com/efreitasn/tradeledger/internal/store"
	"github.com/efreitasn/tradeledger/internal/stream"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// World-state ledger.
	var worldState ledger.Ledger
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		pg, err := ledger.OpenPostgres(context.Background(), cfg.PostgresDSN)
		if err != nil {
			logger.Error("failed to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		worldState = pg
	default:
		worldState = ledger.NewMemoryLedger()
	}

	// Optional Kafka event producer.
	var events service.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := stream.NewProducer(logger,
			stream.WithBrokers(cfg.KafkaBrokers...),
			stream.WithClientID(cfg.KafkaClientID),
			stream.WithTopic(cfg.KafkaTopic),
		)
		if err != nil {
			logger.Error("failed to create kafka producer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer producer.Close()
		events = producer
	}

	// Store, matcher, service, router.
	tradeStore := store.NewTradeStore(worldState)
	matcher := engine.NewMatcher(tradeStore)
	tradeSvc := service.NewTradeService(tradeStore, matcher, events)
	router := handler.NewRouter(tradeSvc, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("ledger_backend", cfg.LedgerBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
