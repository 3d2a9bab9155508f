package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const documentColumns = `
	id, application_id, document_type, status, file_name, file_path, file_size,
	mime_type, file_hash, ocr_data, ocr_confidence, quality_score,
	validation_errors, processed_at, created_at, updated_at`

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `INSERT INTO kyc_documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.ID,
		doc.ApplicationID,
		doc.Type,
		doc.Status,
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.FileHash,
		doc.OCRData,
		nullFloat(doc.OCRConfidence),
		nullFloat(doc.QualityScore),
		doc.ValidationErrors,
		nullTime(doc.ProcessedAt),
		doc.CreatedAt.UTC(),
		doc.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.String("application_id", doc.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE id = ?`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetByApplicationID lists an application's documents in upload order
func (r *DocumentRepository) GetByApplicationID(ctx context.Context, applicationID string) ([]entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents
		WHERE application_id = ? ORDER BY created_at ASC, rowid ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, applicationID)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.String("application_id", applicationID), zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// UpdateStatus sets a document's processing status
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id, status string, processedAt *time.Time) error {
	query := `UPDATE kyc_documents SET status = ?, processed_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, nullTime(processedAt), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update document status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update document status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, port.ErrNotFound)
	}
	return nil
}

func scanDocument(row scanner) (*entity.Document, error) {
	var (
		doc              entity.Document
		ocrConf, quality sql.NullFloat64
		processedAt      sql.NullTime
	)

	err := row.Scan(
		&doc.ID,
		&doc.ApplicationID,
		&doc.Type,
		&doc.Status,
		&doc.FileName,
		&doc.FilePath,
		&doc.FileSize,
		&doc.MimeType,
		&doc.FileHash,
		&doc.OCRData,
		&ocrConf,
		&quality,
		&doc.ValidationErrors,
		&processedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.OCRConfidence = floatPtr(ocrConf)
	doc.QualityScore = floatPtr(quality)
	doc.ProcessedAt = timePtr(processedAt)
	return &doc, nil
}

// getExecutor returns appropriate executor based on context
func (r *DocumentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
