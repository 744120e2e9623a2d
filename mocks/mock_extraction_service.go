package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ddtft/internal/domain"
	"ddtft/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, input *service.ExtractInput) (*service.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) ExtractPDF(ctx context.Context, input *service.PDFInput) (*service.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) ExtractBatch(ctx context.Context, inputs []service.ExtractInput) []service.BatchItemResult {
	args := m.Called(ctx, inputs)
	return args.Get(0).([]service.BatchItemResult)
}

func (m *MockExtractionService) GetByID(ctx context.Context, id uuid.UUID) (*service.ExtractionResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRecord), args.Int(1), args.Error(2)
}

func (m *MockExtractionService) Export(ctx context.Context, ids []uuid.UUID, format domain.ExportFormat, w io.Writer) error {
	args := m.Called(ctx, ids, format, w)
	return args.Error(0)
}

func (m *MockExtractionService) SourceURL(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockExtractionService) Reextract(ctx context.Context, id uuid.UUID, createdBy string) (*service.ExtractionResult, error) {
	args := m.Called(ctx, id, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractionResult), args.Error(1)
}
