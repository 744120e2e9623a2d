package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"ddtft/internal/port"
)

// MockTextSource is a mock implementation of port.TextSource.
type MockTextSource struct {
	mock.Mock
}

func (m *MockTextSource) ExtractText(ctx context.Context, r io.ReaderAt, size int64) (*port.SourceText, error) {
	args := m.Called(ctx, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SourceText), args.Error(1)
}
