package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeSixtyGiving/grantnav/internal/config"
	"github.com/ThreeSixtyGiving/grantnav/internal/opensearch/client"
	"github.com/ThreeSixtyGiving/grantnav/internal/server"
	"github.com/ThreeSixtyGiving/grantnav/pkg/logger"
	"github.com/ThreeSixtyGiving/grantnav/pkg/metrics"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("GRANTNAV_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	osClient, err := client.New(cfg.OpenSearch, log)
	if err != nil {
		return fmt.Errorf("failed to create opensearch client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Движок должен быть доступен до приема трафика
	checker := client.NewHealthChecker(osClient)
	if err := checker.WaitForHealthy(ctx, 10, 3*time.Second); err != nil {
		return fmt.Errorf("opensearch is not available: %w", err)
	}

	metricsServer := metrics.NewMetricsServer(cfg.Metrics.Addr, log)
	metricsServer.StartUptimeUpdater("grantnav")
	environment := os.Getenv("GRANTNAV_ENV")
	if environment == "" {
		environment = "production"
	}
	metrics.SetServiceInfo(version, "grantnav", environment)

	go func() {
		if err := metricsServer.Start(); err != nil {
			log.Error("Metrics server failed", "error", err)
		}
	}()

	srv := server.NewServer(cfg, osClient, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server cleanly", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop metrics server cleanly", "error", err)
	}

	return nil
}
