package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solsweep/service/config"
	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/notify"
	"github.com/brojonat/solsweep/service/registry"
	"github.com/brojonat/solsweep/service/server"
	"github.com/brojonat/solsweep/service/solana"
	"github.com/brojonat/solsweep/service/sweep"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.SolanaNetwork,
		"mode", string(cfg.Mode()),
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	m := metrics.NewMetrics(nil)

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	ledger := solana.NewClient(rpcClient, cfg.SolanaNetwork, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	// Start the one-time token registry load. Requests gate on its
	// readiness barrier rather than racing the load.
	reg := registry.New(cfg.TokenListURL, cfg.ChainID(), nil, logger)
	go func() {
		if err := reg.Load(ctx); err != nil {
			logger.Warn("token registry unavailable, metadata will fall back to chain lookups", "error", err)
		}
	}()

	// Initialize the NATS alert dispatcher. Alerts are best-effort, so a
	// missing broker degrades to log-only operation instead of halting.
	var dispatcher notify.Dispatcher
	natsDispatcher, err := notify.NewNATSDispatcher(cfg.NATSURL, cfg.AlertSubject, cfg.SolanaNetwork, m, logger)
	if err != nil {
		logger.Warn("NATS unavailable, operator alerts disabled", "error", err)
	} else {
		dispatcher = natsDispatcher
		defer natsDispatcher.Close()
	}

	// Assemble the sweep pipeline
	pipeline := &server.SweepPipeline{
		Aggregator:  sweep.NewAggregator(ledger, reg, cfg.SolanaNetwork, m, logger),
		Fees:        sweep.NewFeeEstimator(ledger, cfg.FeeBufferMultiplier, logger),
		Builder:     sweep.NewBuilder(ledger, cfg.SolanaNetwork, m, logger),
		Dispatcher:  dispatcher,
		Mode:        cfg.Mode(),
		Destination: cfg.Destination(),
	}
	if cfg.Mode() == config.ModeBackendSigned {
		pipeline.Signer = sweep.NewSigner(ledger, cfg.Signer(), cfg.ConfirmTimeout, cfg.SolanaNetwork, m, logger)
		logger.Info("backend signing enabled", "signer", pipeline.Signer.PublicKey().String())
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, pipeline, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
