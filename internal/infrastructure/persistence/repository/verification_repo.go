package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// VerificationRepository implements port.VerificationRepository.
// Rows are append-only; the schema rejects updates with a trigger.
type VerificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *sql.DB, logger *zap.Logger) *VerificationRepository {
	return &VerificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a verification record
func (r *VerificationRepository) Create(ctx context.Context, v *entity.Verification) error {
	query := `
		INSERT INTO kyc_verifications (
			id, application_id, verification_type, result, confidence_score,
			details, error_message, provider, processing_time_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		v.ID,
		v.ApplicationID,
		v.Type,
		v.Result,
		nullFloat(v.ConfidenceScore),
		v.Details,
		v.ErrorMessage,
		v.Provider,
		v.ProcessingTimeMS,
		v.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create verification",
			zap.String("application_id", v.ApplicationID),
			zap.String("type", v.Type),
			zap.Error(err))
		return fmt.Errorf("failed to create verification: %w", err)
	}
	return nil
}

// GetByApplicationID lists an application's verifications, oldest first
func (r *VerificationRepository) GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Verification, error) {
	query := `
		SELECT id, application_id, verification_type, result, confidence_score,
			details, error_message, provider, processing_time_ms, created_at
		FROM kyc_verifications
		WHERE application_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list verifications", zap.String("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	var out []entity.Verification
	for rows.Next() {
		var (
			v    entity.Verification
			conf sql.NullFloat64
		)
		if err := rows.Scan(
			&v.ID,
			&v.ApplicationID,
			&v.Type,
			&v.Result,
			&conf,
			&v.Details,
			&v.ErrorMessage,
			&v.Provider,
			&v.ProcessingTimeMS,
			&v.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		v.ConfidenceScore = floatPtr(conf)
		out = append(out, v)
	}
	return out, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *VerificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.VerificationRepository = (*VerificationRepository)(nil)
