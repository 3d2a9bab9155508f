package config

import (
	"github.com/garyjia/kyc-review/internal/container"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Redis: container.RedisConfig{
			Enabled:  c.Redis.Enabled,
			Address:  c.Redis.Address,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
		Workflow: container.WorkflowConfig{
			Thresholds: scoring.Thresholds{
				AutoApprove:  c.Workflow.AutoApproveThreshold,
				ManualReview: c.Workflow.ManualReviewThreshold,
				Reject:       c.Workflow.RejectThreshold,
			},
			RequiredDocuments: append([]string(nil), c.Workflow.RequiredDocuments...),
			ExpiryWindow:      c.Workflow.ExpiryWindow,
			MaxRetries:        c.Workflow.MaxRetries,
		},
		Audit: container.AuditConfig{
			RetentionDays: c.Audit.RetentionDays,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			Version:      c.Server.Version,
		},
		Worker: container.WorkerConfig{
			ExpiryInterval: c.Worker.ExpiryInterval,
			ExpiryBatch:    c.Worker.ExpiryBatch,
			TriggerQueue:   c.Worker.TriggerQueue,
			TriggerBlock:   c.Worker.TriggerBlock,
		},
	}
}
