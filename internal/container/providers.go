package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/application/dispatcher"
	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/application/service"
	"github.com/garyjia/kyc-review/internal/application/workflow"
	"github.com/garyjia/kyc-review/internal/domain/event"
	"github.com/garyjia/kyc-review/internal/infrastructure/export"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/repository"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/kyc-review/internal/infrastructure/queue"
	"github.com/garyjia/kyc-review/internal/infrastructure/worker"
	"github.com/garyjia/kyc-review/internal/metrics"
	"github.com/garyjia/kyc-review/migrations"
	"github.com/garyjia/kyc-review/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// QueueBundle holds the Redis client and the trigger queue built on it.
type QueueBundle struct {
	Client  *redis.Client
	Trigger *queue.RedisTrigger
}

// ProvideDatabase opens the SQLite database, applies the embedded migrations
// and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Application:  repository.NewApplicationRepository(sqlDB, logger),
		Document:     repository.NewDocumentRepository(sqlDB, logger),
		Verification: repository.NewVerificationRepository(sqlDB, logger),
		Audit:        repository.NewAuditRepository(sqlDB, logger),
	}, nil
}

// ProvideQueue connects to Redis and builds the next-step trigger queue.
// Returns nil when Redis is disabled.
func ProvideQueue(ctx context.Context, cfg *RedisConfig, workerCfg *WorkerConfig, logger *zap.Logger) (*QueueBundle, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Redis disabled, next-step triggers will not be emitted")
		return nil, nil
	}

	client := queue.NewClient(queue.ClientConfig{
		Address:  cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	trigger := queue.NewRedisTrigger(client, logger,
		queue.WithKey(workerCfg.TriggerQueue),
		queue.WithBlock(workerCfg.TriggerBlock),
	)

	if err := trigger.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	if _, err := trigger.Recover(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Redis connected", zap.String("address", cfg.Address))
	return &QueueBundle{Client: client, Trigger: trigger}, nil
}

// ProvideMetrics registers the workflow metrics with reg.
func ProvideMetrics(reg prometheus.Registerer) *metrics.Metrics {
	return metrics.New(reg)
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Workflow  *WorkflowConfig
	Audit     *AuditConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	audit := service.NewAuditService(
		deps.Repos.Audit,
		deps.Repos.Application,
		export.NewAuditWorkbook(deps.Logger),
		deps.Audit.RetentionDays,
		serviceLogger,
	)

	return &ServiceBundle{
		Application: service.NewApplicationService(
			deps.Repos.Application,
			deps.Repos.Document,
			deps.Repos.Verification,
			audit,
			deps.TxManager,
			serviceLogger,
			service.ApplicationServiceConfig{ExpiryWindow: deps.Workflow.ExpiryWindow},
		),
		Audit: audit,
	}, nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the default handlers.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	adapter := &zapLoggerAdapter{logger: logger}
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(adapter))

	disp.SubscribeNamed(event.TypeNextStepRequested, "next_step_logger", workflow.NextStepHandler(adapter))
	for _, t := range []event.Type{
		event.TypeApplicationSubmitted,
		event.TypeApplicationTransitioned,
		event.TypeApplicationApproved,
		event.TypeApplicationRejected,
		event.TypeApplicationExpired,
	} {
		disp.SubscribeNamed(t, "event_logger", dispatcher.LogHandler(adapter))
	}

	return disp, nil
}

// LifecycleDeps holds dependencies required for creating the lifecycle coordinator.
type LifecycleDeps struct {
	Config     *WorkflowConfig
	Repos      *RepositoryBundle
	Audit      port.AuditSink
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Trigger    port.NextStepTrigger
	Metrics    port.TransitionMetrics
	Logger     *zap.Logger
}

// ProvideLifecycle builds the workflow coordinator. A malformed transition table
// or invalid thresholds fail here, at startup.
func ProvideLifecycle(deps *LifecycleDeps) (*workflow.Coordinator, error) {
	if deps == nil {
		return nil, fmt.Errorf("lifecycle dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	var opts []workflow.CoordinatorOption
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Trigger != nil {
		opts = append(opts, workflow.WithTrigger(deps.Trigger))
	}
	if deps.Metrics != nil {
		opts = append(opts, workflow.WithMetrics(deps.Metrics))
	}

	return workflow.BuildLifecycle(
		workflow.Settings{
			Thresholds:        deps.Config.Thresholds,
			RequiredDocuments: deps.Config.RequiredDocuments,
			MaxRetries:        deps.Config.MaxRetries,
		},
		deps.Repos.Application,
		deps.Audit,
		deps.TxManager,
		&zapLoggerAdapter{logger: deps.Logger},
		opts...,
	)
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Config     *WorkerConfig
	Services   *ServiceBundle
	Lifecycle  workflow.Lifecycle
	Dispatcher dispatcher.Dispatcher
	Queue      *QueueBundle
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// ProvideWorkers creates the worker manager. The trigger worker is only
// registered when a queue is available.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Services == nil || deps.Lifecycle == nil {
		return nil, fmt.Errorf("services and lifecycle are required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	manager.Register(worker.NewExpirySweeper(
		worker.ExpirySweeperConfig{
			Interval:  deps.Config.ExpiryInterval,
			BatchSize: deps.Config.ExpiryBatch,
		},
		deps.Services.Application,
		deps.Lifecycle,
		deps.Services.Audit,
		deps.Metrics,
		deps.Logger,
	))

	if deps.Queue != nil {
		manager.Register(worker.NewTriggerWorker(
			worker.DefaultTriggerWorkerConfig(),
			deps.Queue.Trigger,
			deps.Dispatcher,
			deps.Metrics,
			deps.Logger,
		))
	}

	return manager, nil
}
