package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
	"github.com/garyjia/kyc-review/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrDuplicateApplication is returned when the CIN already has an active or approved application
	ErrDuplicateApplication = errors.New("an active application already exists for this CIN")

	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultExpiryWindow is how long a new application stays open
const DefaultExpiryWindow = 30 * 24 * time.Hour

// ExpirableStates are the states from which an application can expire
var ExpirableStates = []domainwf.State{
	domainwf.StateDraft,
	domainwf.StateSubmitted,
	domainwf.StateDocumentVerification,
}

// blockingStates are the states of an earlier application that block a new one for the same CIN
var blockingStates = map[domainwf.State]bool{
	domainwf.StateSubmitted:            true,
	domainwf.StateDocumentVerification: true,
	domainwf.StateFaceVerification:     true,
	domainwf.StateManualReview:         true,
	domainwf.StateApproved:             true,
}

// CreateApplicationInput carries the applicant data for a new application
type CreateApplicationInput struct {
	CustomerID   string
	CINNumber    string
	FirstName    string
	LastName     string
	DateOfBirth  string
	PlaceOfBirth string
	Nationality  string
	Phone        string
	Email        string
	Address      string
	IPAddress    string
	UserAgent    string
	Actor        entity.Actor
}

// ApplicationService manages KYC applications outside of state transitions
type ApplicationService interface {
	CreateApplication(ctx context.Context, in CreateApplicationInput) (*entity.Application, error)
	AttachDocument(ctx context.Context, applicationID string, doc *entity.Document, actor entity.Actor) (*entity.Document, error)
	UpdateDocumentStatus(ctx context.Context, documentID, status string, actor entity.Actor) error
	RecordVerification(ctx context.Context, applicationID string, v *entity.Verification) (*entity.Verification, error)
	GetApplication(ctx context.Context, id string) (*entity.Application, error)
	ListPendingReview(ctx context.Context, limit, offset int) ([]*entity.Application, error)
	ListExpired(ctx context.Context, limit int) ([]*entity.Application, error)
	FraudScore(ctx context.Context, applicationID string) (float64, error)
}

// ApplicationServiceConfig holds the tunables of the application service
type ApplicationServiceConfig struct {
	ExpiryWindow time.Duration
	Clock        func() time.Time
}

type applicationServiceImpl struct {
	appRepo   port.ApplicationRepository
	docRepo   port.DocumentRepository
	verRepo   port.VerificationRepository
	audit     port.AuditSink
	txManager port.TransactionManager
	logger    Logger

	expiryWindow time.Duration
	now          func() time.Time
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	appRepo port.ApplicationRepository,
	docRepo port.DocumentRepository,
	verRepo port.VerificationRepository,
	audit port.AuditSink,
	txManager port.TransactionManager,
	logger Logger,
	cfg ApplicationServiceConfig,
) ApplicationService {
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = DefaultExpiryWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &applicationServiceImpl{
		appRepo:      appRepo,
		docRepo:      docRepo,
		verRepo:      verRepo,
		audit:        audit,
		txManager:    txManager,
		logger:       logger,
		expiryWindow: cfg.ExpiryWindow,
		now:          cfg.Clock,
	}
}

// CreateApplication stores a new DRAFT application
func (s *applicationServiceImpl) CreateApplication(ctx context.Context, in CreateApplicationInput) (*entity.Application, error) {
	if strings.TrimSpace(in.CINNumber) == "" {
		return nil, fmt.Errorf("%w: cin_number is required", ErrInvalidInput)
	}
	if err := validateApplicant(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	expires := now.Add(s.expiryWindow)
	nationality := in.Nationality
	if nationality == "" {
		nationality = entity.DefaultNationality
	}

	app := &entity.Application{
		ID:                uuid.NewString(),
		ApplicationNumber: applicationNumber(now),
		CustomerID:        in.CustomerID,
		CINNumber:         utils.NormalizeCIN(in.CINNumber),
		FirstName:         utils.SanitizeString(in.FirstName),
		LastName:          utils.SanitizeString(in.LastName),
		DateOfBirth:       in.DateOfBirth,
		PlaceOfBirth:      in.PlaceOfBirth,
		Nationality:       nationality,
		Phone:             in.Phone,
		Email:             in.Email,
		Address:           in.Address,
		State:             domainwf.StateDraft,
		IPAddress:         in.IPAddress,
		UserAgent:         in.UserAgent,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         &expires,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.appRepo.LatestByCIN(txCtx, app.CINNumber)
		switch {
		case err == nil && blockingStates[existing.State]:
			return fmt.Errorf("%w: %s is %s", ErrDuplicateApplication, existing.ApplicationNumber, existing.State)
		case err != nil && !errors.Is(err, port.ErrNotFound):
			return fmt.Errorf("check existing application: %w", err)
		}

		if err := s.appRepo.Create(txCtx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}

		return s.audit.Record(txCtx, &entity.AuditEntry{
			ActorID:       in.Actor.ID,
			ActorUsername: in.Actor.Username,
			ActorRole:     in.Actor.Role,
			IPAddress:     firstNonEmpty(in.IPAddress, in.Actor.IPAddress),
			Action:        entity.AuditActionCreate,
			Resource:      entity.ResourceKYCApplication,
			ResourceID:    app.ID,
			ApplicationID: app.ID,
			Description:   fmt.Sprintf("KYC application %s created", app.ApplicationNumber),
			ToState:       app.State,
			Timestamp:     now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to create application", "error", err, "cin", maskCIN(in.CINNumber))
		return nil, err
	}

	s.logger.Info("Application created", "id", app.ID, "application_number", app.ApplicationNumber)
	return app, nil
}

// AttachDocument adds a document to a non-terminal application
func (s *applicationServiceImpl) AttachDocument(ctx context.Context, applicationID string, doc *entity.Document, actor entity.Actor) (*entity.Document, error) {
	if !entity.IsValidDocumentType(doc.Type) {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, doc.Type)
	}

	now := s.now()
	stored := *doc
	stored.ID = uuid.NewString()
	stored.ApplicationID = applicationID
	if stored.Status == "" {
		stored.Status = entity.DocumentStatusUploaded
	}
	if !entity.IsValidDocumentStatus(stored.Status) {
		return nil, fmt.Errorf("%w: unknown document status %q", ErrInvalidInput, stored.Status)
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.appRepo.GetByID(txCtx, applicationID)
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}
		if app.State.IsTerminal() {
			return &domainwf.TransitionError{Kind: domainwf.ErrAlreadyTerminal, From: app.State}
		}

		if err := s.docRepo.Create(txCtx, &stored); err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		return s.audit.Record(txCtx, &entity.AuditEntry{
			ActorID:       actor.ID,
			ActorUsername: actor.Username,
			ActorRole:     actor.Role,
			IPAddress:     actor.IPAddress,
			Action:        entity.AuditActionDocumentUpload,
			Resource:      entity.ResourceKYCApplication,
			ResourceID:    stored.ID,
			ApplicationID: applicationID,
			Description:   fmt.Sprintf("Document %s uploaded", stored.Type),
			Metadata:      map[string]string{"document_type": stored.Type, "file_name": stored.FileName},
			Timestamp:     now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to attach document", "error", err, "application_id", applicationID)
		return nil, err
	}

	s.logger.Info("Document attached", "application_id", applicationID, "document_id", stored.ID, "type", stored.Type)
	return &stored, nil
}

// UpdateDocumentStatus records the outcome of processing a document of a non-terminal application
func (s *applicationServiceImpl) UpdateDocumentStatus(ctx context.Context, documentID, status string, actor entity.Actor) error {
	if !entity.IsValidDocumentStatus(status) {
		return fmt.Errorf("%w: unknown document status %q", ErrInvalidInput, status)
	}

	now := s.now()
	var processedAt *time.Time
	if status != entity.DocumentStatusUploaded {
		processedAt = &now
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByID(txCtx, documentID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		app, err := s.appRepo.GetByID(txCtx, doc.ApplicationID)
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}
		if app.State.IsTerminal() {
			return &domainwf.TransitionError{Kind: domainwf.ErrAlreadyTerminal, From: app.State}
		}

		if err := s.docRepo.UpdateStatus(txCtx, documentID, status, processedAt); err != nil {
			return fmt.Errorf("update document status: %w", err)
		}

		return s.audit.Record(txCtx, &entity.AuditEntry{
			ActorID:       actor.ID,
			ActorUsername: actor.Username,
			ActorRole:     actor.Role,
			IPAddress:     actor.IPAddress,
			Action:        entity.AuditActionDocumentStatus,
			Resource:      entity.ResourceKYCApplication,
			ResourceID:    documentID,
			ApplicationID: doc.ApplicationID,
			Description:   fmt.Sprintf("Document %s %s -> %s", doc.Type, doc.Status, status),
			Metadata:      map[string]string{"document_type": doc.Type, "previous_status": doc.Status, "status": status},
			Timestamp:     now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to update document status", "error", err, "document_id", documentID)
		return err
	}

	s.logger.Info("Document status updated", "document_id", documentID, "status", status)
	return nil
}

// RecordVerification appends an immutable verification record to a non-terminal application
func (s *applicationServiceImpl) RecordVerification(ctx context.Context, applicationID string, v *entity.Verification) (*entity.Verification, error) {
	if !entity.IsValidVerificationResult(v.Result) {
		return nil, fmt.Errorf("%w: unknown verification result %q", ErrInvalidInput, v.Result)
	}
	if v.ConfidenceScore != nil && (*v.ConfidenceScore < 0 || *v.ConfidenceScore > 1) {
		return nil, fmt.Errorf("%w: confidence score %.3f outside [0,1]", ErrInvalidInput, *v.ConfidenceScore)
	}

	now := s.now()
	rec := *v
	rec.ID = uuid.NewString()
	rec.ApplicationID = applicationID
	rec.CreatedAt = now

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.appRepo.GetByID(txCtx, applicationID)
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}
		if app.State.IsTerminal() {
			return &domainwf.TransitionError{Kind: domainwf.ErrAlreadyTerminal, From: app.State}
		}
		if err := s.verRepo.Create(txCtx, &rec); err != nil {
			return fmt.Errorf("create verification: %w", err)
		}

		meta := map[string]string{"verification_type": rec.Type, "result": rec.Result}
		if rec.ConfidenceScore != nil {
			meta["confidence_score"] = fmt.Sprintf("%.4f", *rec.ConfidenceScore)
		}
		return s.audit.Record(txCtx, &entity.AuditEntry{
			ActorID:       entity.SystemActor.ID,
			ActorUsername: entity.SystemActor.Username,
			ActorRole:     entity.SystemActor.Role,
			IPAddress:     entity.SystemActor.IPAddress,
			Action:        entity.AuditActionVerification,
			Resource:      entity.ResourceKYCApplication,
			ResourceID:    rec.ID,
			ApplicationID: applicationID,
			Description:   fmt.Sprintf("Verification %s: %s", rec.Type, rec.Result),
			Metadata:      meta,
			Timestamp:     now,
		})
	})
	if err != nil {
		s.logger.Error("Failed to record verification", "error", err, "application_id", applicationID)
		return nil, err
	}

	return &rec, nil
}

// GetApplication retrieves an application with its documents and verifications
func (s *applicationServiceImpl) GetApplication(ctx context.Context, id string) (*entity.Application, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get application", "error", err, "id", id)
		return nil, err
	}
	return app, nil
}

// ListPendingReview lists applications waiting for a reviewer
func (s *applicationServiceImpl) ListPendingReview(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	apps, err := s.appRepo.ListByStates(ctx, []domainwf.State{domainwf.StateManualReview}, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending review: %w", err)
	}
	return apps, nil
}

// ListExpired lists open applications whose expiry has passed
func (s *applicationServiceImpl) ListExpired(ctx context.Context, limit int) ([]*entity.Application, error) {
	apps, err := s.appRepo.ListExpired(ctx, s.now(), ExpirableStates, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired: %w", err)
	}
	return apps, nil
}

// FraudScore computes the fraud score from the application's origin signals
func (s *applicationServiceImpl) FraudScore(ctx context.Context, applicationID string) (float64, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return 0, fmt.Errorf("get application: %w", err)
	}

	var ind scoring.FraudIndicators
	if app.IPAddress != "" {
		n, err := s.appRepo.CountByIPSince(ctx, app.IPAddress, s.now().Add(-scoring.FraudWindow))
		if err != nil {
			return 0, fmt.Errorf("count applications by ip: %w", err)
		}
		ind.ApplicationsFromIP = n
	}

	return scoring.FraudScore(ind), nil
}

func applicationNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("KYC-%s-%s", now.Format("20060102150405"), suffix)
}

func maskCIN(cin string) string {
	if len(cin) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(cin)-4) + cin[len(cin)-4:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// validateApplicant checks identity and contact formats; contact fields are optional
func validateApplicant(in CreateApplicationInput) error {
	if err := utils.ValidateCIN(in.CINNumber); err != nil {
		return err
	}
	if in.Phone != "" {
		if err := utils.ValidatePhone(in.Phone); err != nil {
			return err
		}
	}
	if in.Email != "" {
		if err := utils.ValidateEmail(in.Email); err != nil {
			return err
		}
	}
	return nil
}
