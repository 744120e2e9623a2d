package port

import (
	"context"

	"ddtft/internal/domain"
)

// ResultCache keeps finished extractions keyed by input content hash.
// Get returns domain.ErrCacheMiss when nothing is stored.
type ResultCache interface {
	Get(ctx context.Context, contentHash string) (*domain.ExtractionRecord, error)
	Set(ctx context.Context, contentHash string, rec *domain.ExtractionRecord) error
}
