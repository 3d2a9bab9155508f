package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const applicationColumns = `
	id, application_number, customer_id, cin_number, first_name, last_name,
	date_of_birth, place_of_birth, nationality, phone, email, address,
	state, risk_level, document_score, face_score, fraud_score, overall_score,
	assigned_agent_id, reviewed_by_id, review_notes, reviewed_at,
	decision_reason, decision_made_at, ip_address, user_agent,
	version, created_at, updated_at, submitted_at, expires_at`

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	docs   *DocumentRepository
	checks *VerificationRepository
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		docs:   NewDocumentRepository(db, logger),
		checks: NewVerificationRepository(db, logger),
		logger: logger,
	}
}

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	query := `INSERT INTO kyc_applications (` + applicationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		app.ID,
		app.ApplicationNumber,
		app.CustomerID,
		app.CINNumber,
		app.FirstName,
		app.LastName,
		app.DateOfBirth,
		app.PlaceOfBirth,
		app.Nationality,
		app.Phone,
		app.Email,
		app.Address,
		string(app.State),
		string(app.RiskLevel),
		nullFloat(app.DocumentScore),
		nullFloat(app.FaceScore),
		nullFloat(app.FraudScore),
		nullFloat(app.OverallScore),
		app.AssignedAgentID,
		app.ReviewedByID,
		app.ReviewNotes,
		nullTime(app.ReviewedAt),
		app.DecisionReason,
		nullTime(app.DecisionMadeAt),
		app.IPAddress,
		app.UserAgent,
		app.Version,
		app.CreatedAt.UTC(),
		app.UpdatedAt.UTC(),
		nullTime(app.SubmittedAt),
		nullTime(app.ExpiresAt),
	)
	if err != nil {
		r.logger.Error("Failed to create application", zap.String("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID retrieves an application with its documents and verifications
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	app, err := r.getOne(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}

	if app.Documents, err = r.docs.GetByApplicationID(ctx, app.ID); err != nil {
		return nil, err
	}
	if app.Verifications, err = r.checks.GetByApplicationID(ctx, app.ID); err != nil {
		return nil, err
	}
	return app, nil
}

// GetByNumber retrieves an application by its public application number
func (r *ApplicationRepository) GetByNumber(ctx context.Context, number string) (*entity.Application, error) {
	return r.getOne(ctx, "application_number = ?", number)
}

// LatestByCIN returns the most recently created application for a CIN
func (r *ApplicationRepository) LatestByCIN(ctx context.Context, cin string) (*entity.Application, error) {
	return r.getOne(ctx, "cin_number = ? ORDER BY created_at DESC, rowid DESC LIMIT 1", cin)
}

// CompareAndSwap writes app only if the stored version still equals expectedVersion
func (r *ApplicationRepository) CompareAndSwap(ctx context.Context, app *entity.Application, expectedVersion int64) error {
	query := `
		UPDATE kyc_applications SET
			customer_id = ?, first_name = ?, last_name = ?, date_of_birth = ?,
			place_of_birth = ?, nationality = ?, phone = ?, email = ?, address = ?,
			state = ?, risk_level = ?, document_score = ?, face_score = ?,
			fraud_score = ?, overall_score = ?, assigned_agent_id = ?,
			reviewed_by_id = ?, review_notes = ?, reviewed_at = ?,
			decision_reason = ?, decision_made_at = ?, updated_at = ?,
			submitted_at = ?, expires_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		app.CustomerID,
		app.FirstName,
		app.LastName,
		app.DateOfBirth,
		app.PlaceOfBirth,
		app.Nationality,
		app.Phone,
		app.Email,
		app.Address,
		string(app.State),
		string(app.RiskLevel),
		nullFloat(app.DocumentScore),
		nullFloat(app.FaceScore),
		nullFloat(app.FraudScore),
		nullFloat(app.OverallScore),
		app.AssignedAgentID,
		app.ReviewedByID,
		app.ReviewNotes,
		nullTime(app.ReviewedAt),
		app.DecisionReason,
		nullTime(app.DecisionMadeAt),
		app.UpdatedAt.UTC(),
		nullTime(app.SubmittedAt),
		nullTime(app.ExpiresAt),
		app.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update application", zap.String("id", app.ID), zap.Error(err))
		return fmt.Errorf("failed to update application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := r.getExecutor(ctx).QueryRowContext(ctx, "SELECT 1 FROM kyc_applications WHERE id = ?", app.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("application %s: %w", app.ID, port.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check application: %w", err)
		}
		return fmt.Errorf("application %s at version %d: %w", app.ID, expectedVersion, port.ErrVersionConflict)
	}

	app.Version = expectedVersion + 1
	return nil
}

// ListByStates lists applications in any of the given states, oldest first
func (r *ApplicationRepository) ListByStates(ctx context.Context, states []workflow.State, limit, offset int) ([]*entity.Application, error) {
	filter, args := stateFilter("state", states)
	query := `SELECT ` + applicationColumns + ` FROM kyc_applications
		WHERE ` + filter + ` ORDER BY created_at ASC, rowid ASC LIMIT ? OFFSET ?`
	return r.list(ctx, query, append(args, limit, offset)...)
}

// ListExpired lists applications in the given states whose expiry is before now
func (r *ApplicationRepository) ListExpired(ctx context.Context, now time.Time, states []workflow.State, limit int) ([]*entity.Application, error) {
	filter, args := stateFilter("state", states)
	query := `SELECT ` + applicationColumns + ` FROM kyc_applications
		WHERE expires_at IS NOT NULL AND expires_at < ? AND ` + filter + `
		ORDER BY expires_at ASC LIMIT ?`
	args = append([]interface{}{now.UTC()}, args...)
	return r.list(ctx, query, append(args, limit)...)
}

// CountByIPSince counts applications created from ip at or after since
func (r *ApplicationRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM kyc_applications WHERE ip_address = ? AND created_at >= ?",
		ip, since.UTC(),
	).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count applications by ip", zap.Error(err))
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return n, nil
}

func (r *ApplicationRepository) getOne(ctx context.Context, where string, args ...interface{}) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM kyc_applications WHERE ` + where
	app, err := scanApplication(r.getExecutor(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application: %w", port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Application, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func scanApplication(row scanner) (*entity.Application, error) {
	var (
		app                                   entity.Application
		state, risk                           string
		docScore, faceScore, fraud, overall   sql.NullFloat64
		reviewedAt, decidedAt, submitted, exp sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&app.ApplicationNumber,
		&app.CustomerID,
		&app.CINNumber,
		&app.FirstName,
		&app.LastName,
		&app.DateOfBirth,
		&app.PlaceOfBirth,
		&app.Nationality,
		&app.Phone,
		&app.Email,
		&app.Address,
		&state,
		&risk,
		&docScore,
		&faceScore,
		&fraud,
		&overall,
		&app.AssignedAgentID,
		&app.ReviewedByID,
		&app.ReviewNotes,
		&reviewedAt,
		&app.DecisionReason,
		&decidedAt,
		&app.IPAddress,
		&app.UserAgent,
		&app.Version,
		&app.CreatedAt,
		&app.UpdatedAt,
		&submitted,
		&exp,
	)
	if err != nil {
		return nil, err
	}

	app.State = workflow.State(state)
	app.RiskLevel = scoring.RiskLevel(risk)
	app.DocumentScore = floatPtr(docScore)
	app.FaceScore = floatPtr(faceScore)
	app.FraudScore = floatPtr(fraud)
	app.OverallScore = floatPtr(overall)
	app.ReviewedAt = timePtr(reviewedAt)
	app.DecisionMadeAt = timePtr(decidedAt)
	app.SubmittedAt = timePtr(submitted)
	app.ExpiresAt = timePtr(exp)
	return &app, nil
}

// getExecutor returns appropriate executor based on context
func (r *ApplicationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
