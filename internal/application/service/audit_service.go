package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
)

// DefaultRetentionDays is the audit retention period, roughly seven years
const DefaultRetentionDays = 2555

// AuditService records and reads the audit trail
type AuditService interface {
	port.AuditSink

	// Trail returns the most recent entries for an application, newest first
	Trail(ctx context.Context, applicationID string, limit int) ([]*entity.AuditEntry, error)

	// ExportTrail writes an application's trail through the configured exporter
	ExportTrail(ctx context.Context, w io.Writer, applicationID string) error

	// PurgeExpired deletes entries whose retention period has elapsed
	PurgeExpired(ctx context.Context) (int64, error)
}

type auditServiceImpl struct {
	auditRepo     port.AuditRepository
	appRepo       port.ApplicationRepository
	exporter      port.AuditExporter
	retentionDays int
	now           func() time.Time
	logger        Logger
}

// NewAuditService creates a new AuditService. exporter may be nil when export is not needed.
func NewAuditService(
	auditRepo port.AuditRepository,
	appRepo port.ApplicationRepository,
	exporter port.AuditExporter,
	retentionDays int,
	logger Logger,
) AuditService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &auditServiceImpl{
		auditRepo:     auditRepo,
		appRepo:       appRepo,
		exporter:      exporter,
		retentionDays: retentionDays,
		now:           time.Now,
		logger:        logger,
	}
}

// Record stores an entry, filling in ID, timestamp and retention
func (s *auditServiceImpl) Record(ctx context.Context, entry *entity.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if entry.IPAddress == "" {
		entry.IPAddress = entity.SystemActor.IPAddress
	}
	if entry.RetentionUntil == nil {
		until := entry.Timestamp.AddDate(0, 0, s.retentionDays)
		entry.RetentionUntil = &until
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit entry",
			"error", err,
			"action", entry.Action,
			"application_id", entry.ApplicationID,
		)
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

func (s *auditServiceImpl) Trail(ctx context.Context, applicationID string, limit int) ([]*entity.AuditEntry, error) {
	entries, err := s.auditRepo.GetByApplicationID(ctx, applicationID, limit)
	if err != nil {
		return nil, fmt.Errorf("get audit trail: %w", err)
	}
	return entries, nil
}

func (s *auditServiceImpl) ExportTrail(ctx context.Context, w io.Writer, applicationID string) error {
	if s.exporter == nil {
		return fmt.Errorf("audit export is not configured")
	}

	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("get application: %w", err)
	}

	entries, err := s.auditRepo.GetByApplicationID(ctx, applicationID, 0)
	if err != nil {
		return fmt.Errorf("get audit trail: %w", err)
	}

	if err := s.exporter.Export(w, app, entries); err != nil {
		return fmt.Errorf("export audit trail: %w", err)
	}

	s.logger.Info("Audit trail exported", "application_id", applicationID, "entries", len(entries))
	return nil
}

func (s *auditServiceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.auditRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	if n > 0 {
		s.logger.Info("Purged expired audit entries", "count", n)
	}
	return n, nil
}
