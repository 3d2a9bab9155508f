package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit entry; metadata is stored as a JSON object
func (r *AuditRepository) Create(ctx context.Context, entry *entity.AuditEntry) error {
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_logs (
			id, actor_id, actor_username, actor_role, ip_address, action,
			resource, resource_id, application_id, description,
			from_state, to_state, metadata, timestamp, retention_until
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getExecutor(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.ActorUsername,
		string(entry.ActorRole),
		entry.IPAddress,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.ApplicationID,
		entry.Description,
		string(entry.FromState),
		string(entry.ToState),
		string(metaJSON),
		entry.Timestamp.UTC(),
		nullTime(entry.RetentionUntil),
	)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			zap.String("action", entry.Action),
			zap.String("application_id", entry.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// GetByApplicationID returns an application's audit entries, newest first.
// A limit of zero or less returns the whole trail.
func (r *AuditRepository) GetByApplicationID(ctx context.Context, applicationID string, limit int) ([]*entity.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, actor_id, actor_username, actor_role, ip_address, action,
			resource, resource_id, application_id, description,
			from_state, to_state, metadata, timestamp, retention_until
		FROM audit_logs
		WHERE application_id = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, applicationID, limit)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.String("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var (
			e              entity.AuditEntry
			role, from, to string
			metaJSON       string
			retention      sql.NullTime
		)
		if err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.ActorUsername,
			&role,
			&e.IPAddress,
			&e.Action,
			&e.Resource,
			&e.ResourceID,
			&e.ApplicationID,
			&e.Description,
			&from,
			&to,
			&metaJSON,
			&e.Timestamp,
			&retention,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		e.ActorRole = workflow.Role(role)
		e.FromState = workflow.State(from)
		e.ToState = workflow.State(to)
		e.RetentionUntil = timePtr(retention)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteExpired removes entries whose retention ended before now
func (r *AuditRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		"DELETE FROM audit_logs WHERE retention_until IS NOT NULL AND retention_until < ?",
		now.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to purge audit entries", zap.Error(err))
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}
	return result.RowsAffected()
}

// getExecutor returns appropriate executor based on context
func (r *AuditRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
