package port

import (
	"context"

	"github.com/google/uuid"

	"ddtft/internal/domain"
)

// ExtractionRepository defines the contract for extraction persistence.
type ExtractionRepository interface {
	Create(ctx context.Context, rec *domain.ExtractionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
	// GetByContentHash returns the most recent extraction of identical input.
	GetByContentHash(ctx context.Context, hash string) (*domain.ExtractionRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error)
	// ListByIDs preserves the order of ids and skips unknown ones.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ExtractionRecord, error)
}
