package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ddtft/internal/domain"
)

// MockResultCache is a mock implementation of port.ResultCache.
type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, contentHash string) (*domain.ExtractionRecord, error) {
	args := m.Called(ctx, contentHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRecord), args.Error(1)
}

func (m *MockResultCache) Set(ctx context.Context, contentHash string, rec *domain.ExtractionRecord) error {
	args := m.Called(ctx, contentHash, rec)
	return args.Error(0)
}
