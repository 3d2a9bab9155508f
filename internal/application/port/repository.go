package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when a compare-and-swap write lost the race
	ErrVersionConflict = errors.New("version conflict")
)

// ApplicationRepository defines persistence operations for the Application aggregate
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.Application) error

	// GetByID loads the application together with its documents and verifications
	GetByID(ctx context.Context, id string) (*entity.Application, error)

	GetByNumber(ctx context.Context, number string) (*entity.Application, error)

	// LatestByCIN returns the most recently created application for a CIN
	LatestByCIN(ctx context.Context, cin string) (*entity.Application, error)

	// CompareAndSwap stores app only if the stored version still equals expectedVersion.
	// On success app.Version is advanced; otherwise ErrVersionConflict is returned.
	CompareAndSwap(ctx context.Context, app *entity.Application, expectedVersion int64) error

	ListByStates(ctx context.Context, states []workflow.State, limit, offset int) ([]*entity.Application, error)

	// ListExpired returns applications in the given states whose expiry is before now
	ListExpired(ctx context.Context, now time.Time, states []workflow.State, limit int) ([]*entity.Application, error)

	CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
}

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Document, error)
	UpdateStatus(ctx context.Context, id, status string, processedAt *time.Time) error
}

// VerificationRepository defines persistence operations for Verification.
// Verifications are append-only, so there is no update.
type VerificationRepository interface {
	Create(ctx context.Context, v *entity.Verification) error
	GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Verification, error)
}

// AuditRepository defines persistence operations for AuditEntry
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	GetByApplicationID(ctx context.Context, applicationID string, limit int) ([]*entity.AuditEntry, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
