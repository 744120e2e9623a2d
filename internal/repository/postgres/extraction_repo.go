package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ddtft/internal/domain"
	"ddtft/internal/port"
)

type extractionRepo struct {
	db *sqlx.DB
}

// NewExtractionRepo creates a new PostgreSQL-backed ExtractionRepository.
func NewExtractionRepo(db *sqlx.DB) port.ExtractionRepository {
	return &extractionRepo{db: db}
}

func (r *extractionRepo) Create(ctx context.Context, rec *domain.ExtractionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO extractions (
		id, file_name, document_type, document, diagnostics,
		validation_status, validation_results, content_hash, source_key,
		created_by, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9,
		$10, $11
	)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.FileName, rec.DocumentType, rec.Document, jsonOrEmpty(rec.Diagnostics),
		rec.ValidationStatus, jsonOrEmpty(rec.ValidationResults), rec.ContentHash, rec.SourceKey,
		rec.CreatedBy, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	var rec domain.ExtractionRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM extractions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *extractionRepo) GetByContentHash(ctx context.Context, hash string) (*domain.ExtractionRecord, error) {
	var rec domain.ExtractionRecord
	err := r.db.GetContext(ctx, &rec,
		`SELECT * FROM extractions WHERE content_hash = $1
		 ORDER BY created_at DESC LIMIT 1`, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetByContentHash: %w", err)
	}
	return &rec, nil
}

func (r *extractionRepo) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM extractions"); err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List count: %w", err)
	}

	var recs []domain.ExtractionRecord
	err := r.db.SelectContext(ctx, &recs,
		`SELECT * FROM extractions ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List: %w", err)
	}
	return recs, total, nil
}

func (r *extractionRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ExtractionRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM extractions WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("extractionRepo.ListByIDs build: %w", err)
	}

	var recs []domain.ExtractionRecord
	if err := r.db.SelectContext(ctx, &recs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("extractionRepo.ListByIDs: %w", err)
	}

	byID := make(map[uuid.UUID]domain.ExtractionRecord, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	out := make([]domain.ExtractionRecord, 0, len(recs))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

func jsonOrEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte("[]")
	}
	return b
}
