package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fantasim/crowdfund/internal/api"
	"github.com/Fantasim/crowdfund/internal/chain"
	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/ipfs"
	"github.com/Fantasim/crowdfund/internal/logging"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/Fantasim/crowdfund/internal/price"
	"github.com/Fantasim/crowdfund/internal/watcher"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "sync":
		if err := runSync(); err != nil {
			slog.Error("sync error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("crowdfund %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: crowdfund <command>

Commands:
  serve     Start the watcher and the HTTP API
  sync      Run one snapshot refresh cycle and exit
  version   Print version information
`)
}

// app bundles the long-lived services shared by serve and sync.
type app struct {
	cfg       *config.Config
	db        *db.DB
	reader    *chain.Reader
	hub       *events.Hub
	watcher   *watcher.Watcher
	logCloser io.Closer
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	removed := logging.CleanOldLogs(cfg.LogDir, config.LogMaxAgeDays)
	slog.Info("starting crowdfund",
		"version", version,
		"network", cfg.Network,
		"contract", cfg.ContractAddress,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
		"logLevel", cfg.LogLevel,
		"oldLogsRemoved", removed,
	)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.RunMigrations(); err != nil {
		database.Close()
		logCloser.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	reader, err := chain.NewReader(cfg.RPCURL, cfg.ContractAddress, cfg.RPCRateLimit)
	if err != nil {
		database.Close()
		logCloser.Close()
		return nil, fmt.Errorf("failed to setup contract reader: %w", err)
	}

	// A mismatch is logged, not fatal: the node may be temporarily unreachable.
	verifyCtx, cancel := context.WithTimeout(context.Background(), config.ProviderRequestTimeout)
	if err := reader.VerifyNetwork(verifyCtx, models.NetworkMode(cfg.Network)); err != nil {
		slog.Warn("rpc network check failed", "network", cfg.Network, "error", err)
	}
	cancel()

	hub := events.NewHub()
	metadata := ipfs.NewClient(cfg.IPFSGateway, cfg.IPFSRateLimit)

	return &app{
		cfg:       cfg,
		db:        database,
		reader:    reader,
		hub:       hub,
		watcher:   watcher.New(database, reader, metadata, hub, cfg),
		logCloser: logCloser,
	}, nil
}

func (a *app) close() {
	a.reader.Close()
	a.db.Close()
	a.logCloser.Close()
}

func runSync() error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "Maximum duration of the refresh cycle")
	fs.Parse(os.Args[2:])

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := a.watcher.SyncOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("sync %s: %d campaigns, %d refreshed, %d failures in %s\n",
		result.SyncID, result.Total, result.Refreshed, result.Failures, result.Duration.Round(time.Millisecond))
	return nil
}

func runServe() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go a.hub.Run(hubCtx)

	a.watcher.Start(hubCtx)

	deps := api.Dependencies{
		DB:        a.db,
		Refresher: a.watcher,
		Hub:       a.hub,
		Config:    a.cfg,
	}
	if a.cfg.PriceEnabled {
		deps.Prices = price.NewPriceService()
	}

	api.Version = version
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    config.ServerReadTimeout,
		WriteTimeout:   config.ServerWriteTimeout,
		IdleTimeout:    config.ServerIdleTimeout,
		MaxHeaderBytes: config.ServerMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownTimeout)

	// Stop polling first so no refresh writes race the shutdown, then close SSE streams.
	a.watcher.Stop()
	hubCancel()

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
