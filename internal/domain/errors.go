package domain

import "errors"

// Extraction taxonomy.
var (
	ErrUnsupportedDocumentFormat = errors.New("document type cannot be determined")
	ErrLayoutAmbiguous           = errors.New("layout is ambiguous")
	ErrPatternNotFound           = errors.New("pattern not found")
	ErrValidationMismatch        = errors.New("validation mismatch")
	ErrExtractionTimeout         = errors.New("extraction timed out")
	ErrEmptyInput                = errors.New("input text is empty")
)

// Host errors.
var (
	ErrExtractionNotFound  = errors.New("extraction not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidExportFormat = errors.New("invalid export format")
	ErrSourceTooLarge      = errors.New("source exceeds maximum allowed size")
	ErrCacheMiss           = errors.New("cache miss")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrSourceNotArchived   = errors.New("source was not archived")
)
