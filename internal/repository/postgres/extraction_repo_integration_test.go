//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ddtft/internal/config"
	"ddtft/internal/domain"
	"ddtft/internal/port"
	"ddtft/internal/repository/postgres"
)

func setupRepo(t *testing.T) port.ExtractionRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ddtft_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	pgPort, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	cfg := &config.DBConfig{
		Host: host, Port: pgPort, User: "test", Password: "test",
		Name: "ddtft_test", SSLMode: "disable", MaxOpen: 5, MaxIdle: 2,
	}

	m, err := migrate.New("file://../../../db/migrations", cfg.DSN())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	_, _ = m.Close()

	db, err := postgres.NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return postgres.NewExtractionRepo(db)
}

func newRecord(hash string, at time.Time) *domain.ExtractionRecord {
	doc, _ := json.Marshal(&domain.Document{Type: domain.DocumentTypeDDT, Number: "4521"})
	return &domain.ExtractionRecord{
		ID:               uuid.New(),
		FileName:         "DDV_4521.pdf",
		DocumentType:     domain.DocumentTypeDDT,
		Document:         doc,
		ValidationStatus: domain.ValidationStatusWarning,
		ContentHash:      hash,
		CreatedBy:        "operator",
		CreatedAt:        at,
	}
}

func TestExtractionRepo(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 19, 10, 0, 0, 0, time.UTC)
	hash := "a3f1c2d4e5b6a7980a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6071"
	older := newRecord(hash, base)
	newer := newRecord(hash, base.Add(time.Hour))
	other := newRecord("b3f1c2d4e5b6a7980a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f6071", base.Add(2*time.Hour))
	for _, rec := range []*domain.ExtractionRecord{older, newer, other} {
		require.NoError(t, repo.Create(ctx, rec))
	}

	t.Run("get_by_id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "DDV_4521.pdf", got.FileName)
		assert.JSONEq(t, "[]", string(got.Diagnostics))

		doc, err := got.DecodeDocument()
		require.NoError(t, err)
		assert.Equal(t, "4521", doc.Number)
	})

	t.Run("get_by_id_not_found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrExtractionNotFound)
	})

	t.Run("content_hash_returns_newest", func(t *testing.T) {
		got, err := repo.GetByContentHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)

		_, err = repo.GetByContentHash(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrExtractionNotFound)
	})

	t.Run("list_newest_first", func(t *testing.T) {
		recs, total, err := repo.List(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, recs, 2)
		assert.Equal(t, other.ID, recs[0].ID)
		assert.Equal(t, newer.ID, recs[1].ID)
	})

	t.Run("list_by_ids_keeps_order", func(t *testing.T) {
		recs, err := repo.ListByIDs(ctx, []uuid.UUID{older.ID, uuid.New(), other.ID})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, older.ID, recs[0].ID)
		assert.Equal(t, other.ID, recs[1].ID)
	})
}
