package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/kyc-review/migrations"
	"github.com/garyjia/kyc-review/pkg/database"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "kyc.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))
	return db.DB
}

func floatp(v float64) *float64 { return &v }

func newApplication(id, cin string, state workflow.State, created time.Time) *entity.Application {
	expires := created.Add(30 * 24 * time.Hour)
	return &entity.Application{
		ID:                id,
		ApplicationNumber: "KYC-" + id,
		CINNumber:         cin,
		FirstName:         "Amina",
		LastName:          "Benali",
		DateOfBirth:       "1990-04-12",
		Nationality:       entity.DefaultNationality,
		State:             state,
		IPAddress:         "10.0.0.1",
		Version:           1,
		CreatedAt:         created,
		UpdatedAt:         created,
		ExpiresAt:         &expires,
	}
}

func TestApplicationRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	apps := NewApplicationRepository(db, zap.NewNop())
	docs := NewDocumentRepository(db, zap.NewNop())
	checks := NewVerificationRepository(db, zap.NewNop())

	app := newApplication("app-1", "AB123456", workflow.StateDraft, baseTime)
	app.DocumentScore = floatp(0.91)
	require.NoError(t, apps.Create(ctx, app))

	require.NoError(t, docs.Create(ctx, &entity.Document{
		ID: "doc-1", ApplicationID: "app-1", Type: entity.DocumentTypeCINFront,
		Status: entity.DocumentStatusVerified, FileName: "front.jpg",
		OCRConfidence: floatp(0.88), CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	require.NoError(t, docs.Create(ctx, &entity.Document{
		ID: "doc-2", ApplicationID: "app-1", Type: entity.DocumentTypeSelfie,
		Status: entity.DocumentStatusUploaded, CreatedAt: baseTime.Add(time.Minute), UpdatedAt: baseTime,
	}))
	require.NoError(t, checks.Create(ctx, &entity.Verification{
		ID: "ver-1", ApplicationID: "app-1", Type: entity.VerificationTypeDocumentOCR,
		Result: entity.VerificationResultPass, ConfidenceScore: floatp(0.9), CreatedAt: baseTime,
	}))

	got, err := apps.GetByID(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, "KYC-app-1", got.ApplicationNumber)
	assert.Equal(t, workflow.StateDraft, got.State)
	require.NotNil(t, got.DocumentScore)
	assert.InDelta(t, 0.91, *got.DocumentScore, 1e-9)
	assert.Nil(t, got.FaceScore)
	assert.Nil(t, got.SubmittedAt)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(*app.ExpiresAt))
	assert.True(t, got.CreatedAt.Equal(baseTime))
	assert.EqualValues(t, 1, got.Version)

	require.Len(t, got.Documents, 2)
	assert.Equal(t, "doc-1", got.Documents[0].ID)
	require.NotNil(t, got.Documents[0].OCRConfidence)
	assert.Nil(t, got.Documents[1].OCRConfidence)
	require.Len(t, got.Verifications, 1)
	assert.True(t, got.Verifications[0].Passed())

	byNumber, err := apps.GetByNumber(ctx, "KYC-app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", byNumber.ID)
}

func TestApplicationRepository_NotFound(t *testing.T) {
	apps := NewApplicationRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	_, err := apps.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)

	_, err = apps.LatestByCIN(ctx, "ZZ000000")
	assert.ErrorIs(t, err, port.ErrNotFound)

	err = apps.CompareAndSwap(ctx, newApplication("missing", "X", workflow.StateSubmitted, baseTime), 1)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestApplicationRepository_CompareAndSwap(t *testing.T) {
	apps := NewApplicationRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	app := newApplication("app-1", "AB123456", workflow.StateSubmitted, baseTime)
	require.NoError(t, apps.Create(ctx, app))

	next := app.Clone()
	next.State = workflow.StateDocumentVerification
	next.OverallScore = floatp(0.8)
	require.NoError(t, apps.CompareAndSwap(ctx, next, 1))
	assert.EqualValues(t, 2, next.Version)

	stale := app.Clone()
	stale.State = workflow.StateExpired
	err := apps.CompareAndSwap(ctx, stale, 1)
	assert.ErrorIs(t, err, port.ErrVersionConflict)
	assert.EqualValues(t, 1, stale.Version, "losing write must not advance the version")

	got, err := apps.GetByID(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateDocumentVerification, got.State)
	assert.EqualValues(t, 2, got.Version)
	require.NotNil(t, got.OverallScore)
	assert.InDelta(t, 0.8, *got.OverallScore, 1e-9)
}

func TestApplicationRepository_Queries(t *testing.T) {
	apps := NewApplicationRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	old := newApplication("a-old", "CIN1", workflow.StateRejected, baseTime.Add(-48*time.Hour))
	recent := newApplication("a-new", "CIN1", workflow.StateManualReview, baseTime)
	draft := newApplication("a-draft", "CIN2", workflow.StateDraft, baseTime.Add(-40*24*time.Hour))
	draft.IPAddress = "10.0.0.9"
	for _, a := range []*entity.Application{old, recent, draft} {
		require.NoError(t, apps.Create(ctx, a))
	}

	latest, err := apps.LatestByCIN(ctx, "CIN1")
	require.NoError(t, err)
	assert.Equal(t, "a-new", latest.ID)

	review, err := apps.ListByStates(ctx, []workflow.State{workflow.StateManualReview}, 10, 0)
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "a-new", review[0].ID)

	all, err := apps.ListByStates(ctx, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := apps.ListByStates(ctx, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a-old", page[0].ID)

	expired, err := apps.ListExpired(ctx, baseTime, []workflow.State{workflow.StateDraft, workflow.StateSubmitted}, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "a-draft", expired[0].ID)

	n, err := apps.CountByIPSince(ctx, "10.0.0.1", baseTime.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewApplicationRepository(db, zap.NewNop()).Create(ctx, newApplication("app-1", "CIN", workflow.StateDraft, baseTime)))

	docs := NewDocumentRepository(db, zap.NewNop())
	require.NoError(t, docs.Create(ctx, &entity.Document{
		ID: "doc-1", ApplicationID: "app-1", Type: entity.DocumentTypeCINFront,
		Status: entity.DocumentStatusUploaded, CreatedAt: baseTime, UpdatedAt: baseTime,
	}))

	processed := baseTime.Add(time.Hour)
	require.NoError(t, docs.UpdateStatus(ctx, "doc-1", entity.DocumentStatusVerified, &processed))

	got, err := docs.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusVerified, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.True(t, got.ProcessedAt.Equal(processed))

	assert.ErrorIs(t, docs.UpdateStatus(ctx, "nope", entity.DocumentStatusVerified, nil), port.ErrNotFound)
	_, err = docs.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestVerificationRepository_AppendOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewApplicationRepository(db, zap.NewNop()).Create(ctx, newApplication("app-1", "CIN", workflow.StateDraft, baseTime)))

	checks := NewVerificationRepository(db, zap.NewNop())
	require.NoError(t, checks.Create(ctx, &entity.Verification{
		ID: "ver-1", ApplicationID: "app-1", Type: entity.VerificationTypeFaceMatch,
		Result: entity.VerificationResultFail, CreatedAt: baseTime,
	}))

	_, err := db.ExecContext(ctx, "UPDATE kyc_verifications SET result = 'pass' WHERE id = 'ver-1'")
	assert.ErrorContains(t, err, "append-only")

	got, err := checks.GetByApplicationID(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.VerificationResultFail, got[0].Result)
	assert.Nil(t, got[0].ConfidenceScore)
}

func TestAuditRepository_TrailAndPurge(t *testing.T) {
	audit := NewAuditRepository(newTestDB(t), zap.NewNop())
	ctx := context.Background()

	keep := baseTime.Add(24 * time.Hour)
	gone := baseTime.Add(-time.Hour)
	entries := []*entity.AuditEntry{
		{ID: "e1", ApplicationID: "app-1", Action: entity.AuditActionCreate, Resource: entity.ResourceKYCApplication,
			ActorRole: workflow.RoleAPIClient, ToState: workflow.StateDraft, Timestamp: baseTime, RetentionUntil: &gone},
		{ID: "e2", ApplicationID: "app-1", Action: entity.AuditActionWorkflowTransition, Resource: entity.ResourceKYCApplication,
			ActorRole: workflow.RoleSystem, FromState: workflow.StateDraft, ToState: workflow.StateSubmitted,
			Metadata: map[string]string{"old_status": "DRAFT", "new_status": "SUBMITTED"},
			Timestamp: baseTime.Add(time.Minute), RetentionUntil: &keep},
		{ID: "e3", ApplicationID: "app-2", Action: entity.AuditActionCreate, Resource: entity.ResourceKYCApplication,
			Timestamp: baseTime},
	}
	for _, e := range entries {
		require.NoError(t, audit.Create(ctx, e))
	}

	trail, err := audit.GetByApplicationID(ctx, "app-1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "e2", trail[0].ID, "newest first")
	assert.Equal(t, workflow.StateDraft, trail[0].FromState)
	assert.Equal(t, "SUBMITTED", trail[0].Metadata["new_status"])
	assert.Nil(t, trail[1].Metadata)

	unbounded, err := audit.GetByApplicationID(ctx, "app-1", 0)
	require.NoError(t, err)
	assert.Len(t, unbounded, 2)

	purged, err := audit.DeleteExpired(ctx, baseTime)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	trail, err = audit.GetByApplicationID(ctx, "app-1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "e2", trail[0].ID)
}

func TestRepositories_ShareContextTransaction(t *testing.T) {
	db := newTestDB(t)
	tx := sqlite.NewDB(db, zap.NewNop())
	apps := NewApplicationRepository(db, zap.NewNop())
	audit := NewAuditRepository(db, zap.NewNop())
	boom := errors.New("boom")

	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := apps.Create(ctx, newApplication("app-1", "CIN", workflow.StateDraft, baseTime)); err != nil {
			return err
		}
		if err := audit.Create(ctx, &entity.AuditEntry{ID: "e1", ApplicationID: "app-1", Action: entity.AuditActionCreate,
			Resource: entity.ResourceKYCApplication, Timestamp: baseTime}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = apps.GetByID(context.Background(), "app-1")
	assert.ErrorIs(t, err, port.ErrNotFound)
	trail, err := audit.GetByApplicationID(context.Background(), "app-1", 10)
	require.NoError(t, err)
	assert.Empty(t, trail)
}
