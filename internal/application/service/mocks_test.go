package service

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

type mockAppRepo struct {
	apps      map[string]*entity.Application
	ipCount   int
	ipSince   time.Time
	createErr error
}

func newMockAppRepo() *mockAppRepo {
	return &mockAppRepo{apps: make(map[string]*entity.Application)}
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.Application) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.apps[app.ID] = app.Clone()
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return a.Clone(), nil
}

func (m *mockAppRepo) GetByNumber(ctx context.Context, number string) (*entity.Application, error) {
	for _, a := range m.apps {
		if a.ApplicationNumber == number {
			return a.Clone(), nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockAppRepo) LatestByCIN(ctx context.Context, cin string) (*entity.Application, error) {
	var latest *entity.Application
	for _, a := range m.apps {
		if a.CINNumber == cin && (latest == nil || a.CreatedAt.After(latest.CreatedAt)) {
			latest = a
		}
	}
	if latest == nil {
		return nil, port.ErrNotFound
	}
	return latest.Clone(), nil
}

func (m *mockAppRepo) CompareAndSwap(ctx context.Context, app *entity.Application, expectedVersion int64) error {
	return nil
}

func (m *mockAppRepo) ListByStates(ctx context.Context, states []domainwf.State, limit, offset int) ([]*entity.Application, error) {
	var out []*entity.Application
	for _, a := range m.apps {
		for _, s := range states {
			if a.State == s {
				out = append(out, a.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAppRepo) ListExpired(ctx context.Context, now time.Time, states []domainwf.State, limit int) ([]*entity.Application, error) {
	var out []*entity.Application
	for _, a := range m.apps {
		if a.ExpiresAt == nil || !a.ExpiresAt.Before(now) {
			continue
		}
		for _, s := range states {
			if a.State == s {
				out = append(out, a.Clone())
			}
		}
	}
	return out, nil
}

func (m *mockAppRepo) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	m.ipSince = since
	return m.ipCount, nil
}

type mockDocRepo struct {
	docs     map[string]*entity.Document
	statuses map[string]string
}

func newMockDocRepo() *mockDocRepo {
	return &mockDocRepo{docs: map[string]*entity.Document{}, statuses: map[string]string{}}
}

func (m *mockDocRepo) Create(ctx context.Context, doc *entity.Document) error {
	d := *doc
	m.docs[doc.ID] = &d
	return nil
}

func (m *mockDocRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return d, nil
}

func (m *mockDocRepo) GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Document, error) {
	return nil, nil
}

func (m *mockDocRepo) UpdateStatus(ctx context.Context, id, status string, processedAt *time.Time) error {
	if _, ok := m.docs[id]; !ok {
		return port.ErrNotFound
	}
	m.statuses[id] = status
	return nil
}

type mockVerRepo struct {
	created []*entity.Verification
}

func (m *mockVerRepo) Create(ctx context.Context, v *entity.Verification) error {
	m.created = append(m.created, v)
	return nil
}

func (m *mockVerRepo) GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Verification, error) {
	return nil, nil
}

type mockAuditRepo struct {
	entries    []*entity.AuditEntry
	purgedAt   time.Time
	purgeCount int64
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *entity.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) GetByApplicationID(ctx context.Context, applicationID string, limit int) ([]*entity.AuditEntry, error) {
	var out []*entity.AuditEntry
	for _, e := range m.entries {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockAuditRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.purgedAt = now
	return m.purgeCount, nil
}

type mockAuditSink struct {
	entries []*entity.AuditEntry
}

func (m *mockAuditSink) Record(ctx context.Context, entry *entity.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockExporter struct {
	app     *entity.Application
	entries []*entity.AuditEntry
}

func (m *mockExporter) Export(w io.Writer, app *entity.Application, entries []*entity.AuditEntry) error {
	m.app = app
	m.entries = entries
	_, err := w.Write([]byte("ok"))
	return err
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
