package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type svcFixture struct {
	apps  *mockAppRepo
	docs  *mockDocRepo
	vers  *mockVerRepo
	audit *mockAuditSink
	svc   ApplicationService
}

func newSvcFixture() *svcFixture {
	f := &svcFixture{
		apps:  newMockAppRepo(),
		docs:  newMockDocRepo(),
		vers:  &mockVerRepo{},
		audit: &mockAuditSink{},
	}
	f.svc = NewApplicationService(f.apps, f.docs, f.vers, f.audit, &mockTxManager{}, &mockLogger{},
		ApplicationServiceConfig{Clock: func() time.Time { return testNow }})
	return f
}

func validInput() CreateApplicationInput {
	return CreateApplicationInput{
		CINNumber:   "ab123456",
		FirstName:   "Youssef",
		LastName:    "Amrani",
		DateOfBirth: "1988-11-02",
		IPAddress:   "196.12.1.4",
		Actor:       entity.Actor{ID: "mobile-app", Role: domainwf.RoleAPIClient},
	}
}

func TestApplicationService_CreateApplication(t *testing.T) {
	f := newSvcFixture()

	app, err := f.svc.CreateApplication(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, domainwf.StateDraft, app.State)
	assert.Equal(t, "AB123456", app.CINNumber)
	assert.Equal(t, entity.DefaultNationality, app.Nationality)
	assert.Equal(t, int64(1), app.Version)
	assert.Regexp(t, regexp.MustCompile(`^KYC-20260504093000-[0-9A-F]{8}$`), app.ApplicationNumber)
	require.NotNil(t, app.ExpiresAt)
	assert.Equal(t, testNow.Add(DefaultExpiryWindow), *app.ExpiresAt)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditActionCreate, f.audit.entries[0].Action)
	assert.Equal(t, "196.12.1.4", f.audit.entries[0].IPAddress)
	assert.Contains(t, f.apps.apps, app.ID)
}

func TestApplicationService_CreateApplication_Validation(t *testing.T) {
	f := newSvcFixture()
	in := validInput()
	in.CINNumber = " "

	_, err := f.svc.CreateApplication(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, mutate := range []func(*CreateApplicationInput){
		func(in *CreateApplicationInput) { in.CINNumber = "123456" },
		func(in *CreateApplicationInput) { in.Phone = "0612345678" },
		func(in *CreateApplicationInput) { in.Email = "nobody@" },
	} {
		in := validInput()
		mutate(&in)
		_, err := f.svc.CreateApplication(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestApplicationService_CreateApplication_Duplicates(t *testing.T) {
	tests := []struct {
		existing domainwf.State
		blocked  bool
	}{
		{domainwf.StateDraft, false},
		{domainwf.StateSubmitted, true},
		{domainwf.StateManualReview, true},
		{domainwf.StateApproved, true},
		{domainwf.StateRejected, false},
		{domainwf.StateExpired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.existing), func(t *testing.T) {
			f := newSvcFixture()
			f.apps.apps["old"] = &entity.Application{
				ID:                "old",
				ApplicationNumber: "KYC-20250101000000-AAAAAAAA",
				CINNumber:         "AB123456",
				State:             tt.existing,
				CreatedAt:         testNow.Add(-time.Hour),
			}

			_, err := f.svc.CreateApplication(context.Background(), validInput())
			if tt.blocked {
				assert.ErrorIs(t, err, ErrDuplicateApplication)
				assert.Len(t, f.apps.apps, 1)
			} else {
				assert.NoError(t, err)
				assert.Len(t, f.apps.apps, 2)
			}
		})
	}
}

func TestApplicationService_AttachDocument(t *testing.T) {
	f := newSvcFixture()
	f.apps.apps["a1"] = &entity.Application{ID: "a1", State: domainwf.StateDraft}
	agent := entity.Actor{ID: "agent-1", Role: domainwf.RoleAgent}

	doc, err := f.svc.AttachDocument(context.Background(), "a1", &entity.Document{
		Type:     entity.DocumentTypeCINFront,
		FileName: "front.jpg",
	}, agent)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "a1", doc.ApplicationID)
	assert.Equal(t, entity.DocumentStatusUploaded, doc.Status)
	assert.Contains(t, f.docs.docs, doc.ID)
	assert.Equal(t, entity.AuditActionDocumentUpload, f.audit.entries[0].Action)

	_, err = f.svc.AttachDocument(context.Background(), "a1", &entity.Document{Type: "utility_bill"}, agent)
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.apps.apps["a2"] = &entity.Application{ID: "a2", State: domainwf.StateApproved}
	_, err = f.svc.AttachDocument(context.Background(), "a2", &entity.Document{Type: entity.DocumentTypeSelfie}, agent)
	assert.ErrorIs(t, err, domainwf.ErrAlreadyTerminal)

	_, err = f.svc.AttachDocument(context.Background(), "missing", &entity.Document{Type: entity.DocumentTypeSelfie}, agent)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestApplicationService_UpdateDocumentStatus(t *testing.T) {
	f := newSvcFixture()
	f.apps.apps["a1"] = &entity.Application{ID: "a1", State: domainwf.StateDocumentVerification}
	f.docs.docs["d1"] = &entity.Document{ID: "d1", ApplicationID: "a1", Type: entity.DocumentTypeCINFront, Status: entity.DocumentStatusUploaded}
	agent := entity.Actor{ID: "agent-1", Role: domainwf.RoleAgent}

	require.NoError(t, f.svc.UpdateDocumentStatus(context.Background(), "d1", entity.DocumentStatusVerified, agent))
	assert.Equal(t, entity.DocumentStatusVerified, f.docs.statuses["d1"])

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, entity.AuditActionDocumentStatus, entry.Action)
	assert.Equal(t, "d1", entry.ResourceID)
	assert.Equal(t, "a1", entry.ApplicationID)
	assert.Equal(t, "agent-1", entry.ActorID)
	assert.Equal(t, entity.DocumentStatusUploaded, entry.Metadata["previous_status"])
	assert.Equal(t, entity.DocumentStatusVerified, entry.Metadata["status"])
	assert.Equal(t, testNow, entry.Timestamp)

	assert.ErrorIs(t, f.svc.UpdateDocumentStatus(context.Background(), "d1", "great", agent), ErrInvalidInput)
	assert.ErrorIs(t, f.svc.UpdateDocumentStatus(context.Background(), "nope", entity.DocumentStatusRejected, agent), port.ErrNotFound)
	assert.Len(t, f.audit.entries, 1)
}

func TestApplicationService_UpdateDocumentStatus_TerminalApplication(t *testing.T) {
	for _, s := range []domainwf.State{domainwf.StateApproved, domainwf.StateRejected, domainwf.StateExpired} {
		f := newSvcFixture()
		f.apps.apps["a1"] = &entity.Application{ID: "a1", State: s}
		f.docs.docs["d1"] = &entity.Document{ID: "d1", ApplicationID: "a1", Status: entity.DocumentStatusUploaded}

		err := f.svc.UpdateDocumentStatus(context.Background(), "d1", entity.DocumentStatusRejected, entity.SystemActor)
		assert.ErrorIs(t, err, domainwf.ErrAlreadyTerminal, s)
		assert.NotContains(t, f.docs.statuses, "d1")
		assert.Empty(t, f.audit.entries)
	}
}

func TestApplicationService_RecordVerification(t *testing.T) {
	f := newSvcFixture()
	f.apps.apps["a1"] = &entity.Application{ID: "a1", State: domainwf.StateFaceVerification}

	v, err := f.svc.RecordVerification(context.Background(), "a1", &entity.Verification{
		Type:            entity.VerificationTypeFaceMatch,
		Result:          entity.VerificationResultPass,
		ConfidenceScore: scoring.Score(0.97),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, testNow, v.CreatedAt)
	require.Len(t, f.vers.created, 1)
	assert.Equal(t, "0.9700", f.audit.entries[0].Metadata["confidence_score"])

	_, err = f.svc.RecordVerification(context.Background(), "a1", &entity.Verification{Result: "unsure"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.RecordVerification(context.Background(), "a1", &entity.Verification{
		Result: entity.VerificationResultPass, ConfidenceScore: scoring.Score(1.2),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplicationService_RecordVerification_TerminalApplication(t *testing.T) {
	f := newSvcFixture()
	f.apps.apps["a1"] = &entity.Application{ID: "a1", State: domainwf.StateRejected}

	_, err := f.svc.RecordVerification(context.Background(), "a1", &entity.Verification{
		Type:   entity.VerificationTypeFaceMatch,
		Result: entity.VerificationResultPass,
	})
	assert.ErrorIs(t, err, domainwf.ErrAlreadyTerminal)
	assert.Empty(t, f.vers.created)
	assert.Empty(t, f.audit.entries)
}

func TestApplicationService_Queries(t *testing.T) {
	f := newSvcFixture()
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	f.apps.apps["r1"] = &entity.Application{ID: "r1", State: domainwf.StateManualReview}
	f.apps.apps["x1"] = &entity.Application{ID: "x1", State: domainwf.StateDraft, ExpiresAt: &past}
	f.apps.apps["x2"] = &entity.Application{ID: "x2", State: domainwf.StateSubmitted, ExpiresAt: &future}
	f.apps.apps["x3"] = &entity.Application{ID: "x3", State: domainwf.StateFaceVerification, ExpiresAt: &past}

	pending, err := f.svc.ListPendingReview(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].ID)

	expired, err := f.svc.ListExpired(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "x1", expired[0].ID)

	got, err := f.svc.GetApplication(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domainwf.StateManualReview, got.State)
}

func TestApplicationService_FraudScore(t *testing.T) {
	f := newSvcFixture()
	f.apps.apps["a1"] = &entity.Application{ID: "a1", IPAddress: "196.12.1.4"}
	f.apps.apps["a2"] = &entity.Application{ID: "a2"}

	f.apps.ipCount = 3
	score, err := f.svc.FraudScore(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, testNow.Add(-scoring.FraudWindow), f.apps.ipSince)

	f.apps.ipCount = 6
	score, err = f.svc.FraudScore(context.Background(), "a1")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, score, 1e-9)

	score, err = f.svc.FraudScore(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}
