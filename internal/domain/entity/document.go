package entity

import "time"

// Document is evidence attached to an application
type Document struct {
	ID               string     `json:"id"`
	ApplicationID    string     `json:"application_id"`
	Type             string     `json:"document_type"`
	Status           string     `json:"status"`
	FileName         string     `json:"file_name"`
	FilePath         string     `json:"file_path"`
	FileSize         int64      `json:"file_size"`
	MimeType         string     `json:"mime_type"`
	FileHash         string     `json:"file_hash,omitempty"`
	OCRData          string     `json:"ocr_data,omitempty"`
	OCRConfidence    *float64   `json:"ocr_confidence,omitempty"`
	QualityScore     *float64   `json:"quality_score,omitempty"`
	ValidationErrors string     `json:"validation_errors,omitempty"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Verification is the immutable record of one check performed on an application
type Verification struct {
	ID               string    `json:"id"`
	ApplicationID    string    `json:"application_id"`
	Type             string    `json:"verification_type"`
	Result           string    `json:"result"`
	ConfidenceScore  *float64  `json:"confidence_score,omitempty"`
	Details          string    `json:"details,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	ProcessingTimeMS int64     `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Passed reports whether the check passed
func (v Verification) Passed() bool {
	return v.Result == VerificationResultPass
}
