package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/config"
	"github.com/garyjia/kyc-review/internal/container"
	kychttp "github.com/garyjia/kyc-review/internal/interfaces/http"
	"github.com/garyjia/kyc-review/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "kyc-review",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting KYC review workflow service",
		zap.String("version", cfg.Server.Version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("redis_enabled", cfg.Redis.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	if err := c.Start(ctx); err != nil {
		logger.Error("Failed to start container", zap.Error(err))
		_ = c.Close()
		os.Exit(1)
	}

	checks := make(map[string]kychttp.HealthCheck)
	for name, check := range c.HealthChecks() {
		checks[name] = check
	}

	server := kychttp.NewServer(
		kychttp.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			Version:      cfg.Server.Version,
		},
		c.Engine(),
		c.Gatherer(),
		checks,
		container.NewLoggerAdapter(logger),
	)

	// Blocks until a signal arrives or the listener fails
	serverErr := server.Start(ctx)
	if serverErr != nil {
		logger.Error("HTTP server failed", zap.Error(serverErr))
	}

	logger.Info("Shutting down...")

	done := make(chan error, 1)
	go func() { done <- c.Close() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Shutdown completed with errors", zap.Error(err))
			os.Exit(1)
		}
	case <-time.After(30 * time.Second):
		logger.Error("Shutdown timed out")
		os.Exit(1)
	}

	if serverErr != nil {
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}
