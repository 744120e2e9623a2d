package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ddtft/internal/port"
)

// MockObjectStorage is a mock implementation of port.ObjectStorage used for
// the source archive.
type MockObjectStorage struct {
	mock.Mock
}

// ExpectArchive accepts one upload into bucket and returns a pointer that
// holds the archived key once the upload has happened.
func (m *MockObjectStorage) ExpectArchive(bucket string) *string {
	key := new(string)
	m.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == bucket
	})).
		Run(func(args mock.Arguments) { *key = args.Get(1).(port.UploadInput).Key }).
		Return(&port.UploadOutput{Location: "s3://" + bucket}, nil).
		Once()
	return key
}

func (m *MockObjectStorage) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.UploadOutput), args.Error(1)
}

// Download returns the archived bytes of a source; a nil first value means
// the object could not be read.
func (m *MockObjectStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	return m.Called(ctx, bucket, key).Error(0)
}

func (m *MockObjectStorage) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	args := m.Called(ctx, bucket, key, expirySeconds)
	return args.String(0), args.Error(1)
}
