// Package container provides dependency injection and lifecycle management
// for the KYC review service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/kyc-review/internal/application/service"
	"github.com/garyjia/kyc-review/internal/application/workflow"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	"github.com/garyjia/kyc-review/internal/infrastructure/queue"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Workflow WorkflowConfig
	Audit    AuditConfig
	Server   ServerConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the next-step queue connection.
// With Enabled false, transitions still commit but no trigger is emitted.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

// WorkflowConfig holds the review workflow parameters.
type WorkflowConfig struct {
	Thresholds        scoring.Thresholds
	RequiredDocuments []string
	ExpiryWindow      time.Duration
	MaxRetries        int
}

// AuditConfig holds audit retention settings.
type AuditConfig struct {
	RetentionDays int
}

// ServerConfig holds ops HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	ExpiryInterval time.Duration
	ExpiryBatch    int
	TriggerQueue   string
	TriggerBlock   time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/kyc.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 0,
		},
		Redis: RedisConfig{
			Enabled: true,
			Address: "localhost:6379",
		},
		Workflow: WorkflowConfig{
			Thresholds:        scoring.DefaultThresholds(),
			RequiredDocuments: append([]string(nil), workflow.DefaultRequiredDocuments...),
			ExpiryWindow:      service.DefaultExpiryWindow,
			MaxRetries:        workflow.DefaultMaxRetries,
		},
		Audit: AuditConfig{
			RetentionDays: service.DefaultRetentionDays,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Version:      "dev",
		},
		Worker: WorkerConfig{
			ExpiryInterval: time.Hour,
			ExpiryBatch:    100,
			TriggerQueue:   queue.DefaultKey,
			TriggerBlock:   queue.DefaultBlock,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis is enabled")
	}
	if err := c.Workflow.Thresholds.Validate(); err != nil {
		return fmt.Errorf("workflow thresholds: %w", err)
	}
	if c.Workflow.ExpiryWindow <= 0 {
		return fmt.Errorf("workflow.expiry_window must be positive")
	}
	if c.Workflow.MaxRetries < 0 {
		return fmt.Errorf("workflow.max_retries must not be negative")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit.retention_days must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
