package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/event"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Mock implementations

type mockAppRepo struct {
	mu        sync.Mutex
	apps      map[string]*entity.Application
	casCalls  int
	beforeCAS func(stored *entity.Application)
	getErr    error
}

func newMockAppRepo(apps ...*entity.Application) *mockAppRepo {
	m := &mockAppRepo{apps: make(map[string]*entity.Application)}
	for _, a := range apps {
		m.apps[a.ID] = a.Clone()
	}
	return m
}

func (m *mockAppRepo) stored(id string) *entity.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id].Clone()
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = app.Clone()
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id string) (*entity.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	a, ok := m.apps[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return a.Clone(), nil
}

func (m *mockAppRepo) GetByNumber(ctx context.Context, number string) (*entity.Application, error) {
	return nil, port.ErrNotFound
}

func (m *mockAppRepo) LatestByCIN(ctx context.Context, cin string) (*entity.Application, error) {
	return nil, port.ErrNotFound
}

func (m *mockAppRepo) CompareAndSwap(ctx context.Context, app *entity.Application, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++

	stored, ok := m.apps[app.ID]
	if !ok {
		return port.ErrNotFound
	}
	if m.beforeCAS != nil {
		m.beforeCAS(stored)
	}
	if stored.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	app.Version = expectedVersion + 1
	m.apps[app.ID] = app.Clone()
	return nil
}

func (m *mockAppRepo) ListByStates(ctx context.Context, states []domainwf.State, limit, offset int) ([]*entity.Application, error) {
	return nil, nil
}

func (m *mockAppRepo) ListExpired(ctx context.Context, now time.Time, states []domainwf.State, limit int) ([]*entity.Application, error) {
	return nil, nil
}

func (m *mockAppRepo) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	return 0, nil
}

type mockAuditSink struct {
	entries   []*entity.AuditEntry
	recordErr error
}

func (m *mockAuditSink) Record(ctx context.Context, entry *entity.AuditEntry) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockTxManager struct {
	commitErr error
	calls     int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.commitErr != nil {
		return m.commitErr
	}
	return fn(ctx)
}

type notification struct {
	applicationID string
	state         domainwf.State
}

type mockTrigger struct {
	mu       sync.Mutex
	notified []notification
	ctxErrs  []error
	err      error

	// release, when set, blocks Notify until it is closed
	release chan struct{}
}

func (m *mockTrigger) Notify(ctx context.Context, applicationID string, state domainwf.State) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, notification{applicationID, state})
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

type mockPublisher struct {
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.events = append(m.events, evt)
}

type observed struct {
	from, to domainwf.State
	outcome  string
}

type mockMetrics struct {
	transitions []observed
	conflicts   int
}

func (m *mockMetrics) ObserveTransition(from, to domainwf.State, outcome string) {
	m.transitions = append(m.transitions, observed{from, to, outcome})
}

func (m *mockMetrics) ObserveConflict() {
	m.conflicts++
}

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

var errBoom = errors.New("boom")
