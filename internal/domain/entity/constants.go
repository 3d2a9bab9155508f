package entity

// DocumentType values
const (
	DocumentTypeCINFront       = "cin_front"
	DocumentTypeCINBack        = "cin_back"
	DocumentTypePassport       = "passport"
	DocumentTypeSelfie         = "selfie"
	DocumentTypeLivenessVideo  = "liveness_video"
	DocumentTypeProofOfAddress = "proof_of_address"
	DocumentTypeOther          = "other"
)

// DocumentStatus values
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusVerified   = "verified"
	DocumentStatusRejected   = "rejected"
	DocumentStatusExpired    = "expired"
)

// VerificationType values
const (
	VerificationTypeDocumentOCR        = "document_ocr"
	VerificationTypeFaceMatch          = "face_match"
	VerificationTypeLivenessCheck      = "liveness_check"
	VerificationTypeDataValidation     = "data_validation"
	VerificationTypeFraudCheck         = "fraud_check"
	VerificationTypeWatchlistScreening = "watchlist_screening"
)

// VerificationResult values
const (
	VerificationResultPass         = "pass"
	VerificationResultFail         = "fail"
	VerificationResultManualReview = "manual_review"
	VerificationResultError        = "error"
)

// Audit action constants
const (
	AuditActionCreate             = "CREATE"
	AuditActionSubmit             = "SUBMIT"
	AuditActionWorkflowTransition = "WORKFLOW_TRANSITION"
	AuditActionApprove            = "APPROVE"
	AuditActionReject             = "REJECT"
	AuditActionExpire             = "EXPIRE"
	AuditActionDocumentUpload     = "DOCUMENT_UPLOAD"
	AuditActionDocumentStatus     = "DOCUMENT_STATUS"
	AuditActionVerification       = "VERIFICATION"
)

// ResourceKYCApplication is the audit resource type for applications
const ResourceKYCApplication = "KYC_APPLICATION"

// DefaultNationality is the nationality recorded when none is supplied
const DefaultNationality = "MA"

var validDocumentTypes = map[string]bool{
	DocumentTypeCINFront:       true,
	DocumentTypeCINBack:        true,
	DocumentTypePassport:       true,
	DocumentTypeSelfie:         true,
	DocumentTypeLivenessVideo:  true,
	DocumentTypeProofOfAddress: true,
	DocumentTypeOther:          true,
}

var validDocumentStatuses = map[string]bool{
	DocumentStatusUploaded:   true,
	DocumentStatusProcessing: true,
	DocumentStatusVerified:   true,
	DocumentStatusRejected:   true,
	DocumentStatusExpired:    true,
}

var validVerificationResults = map[string]bool{
	VerificationResultPass:         true,
	VerificationResultFail:         true,
	VerificationResultManualReview: true,
	VerificationResultError:        true,
}

// IsValidDocumentType reports whether t is a known document type
func IsValidDocumentType(t string) bool { return validDocumentTypes[t] }

// IsValidDocumentStatus reports whether s is a known document status
func IsValidDocumentStatus(s string) bool { return validDocumentStatuses[s] }

// IsValidVerificationResult reports whether r is a known verification result
func IsValidVerificationResult(r string) bool { return validVerificationResults[r] }
