package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"imgmeta/internal/port"
)

// MockObjectStorage is a mock implementation of port.ObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiry)
	var expiresAt time.Time
	if t, ok := args.Get(1).(time.Time); ok {
		expiresAt = t
	}
	return args.String(0), expiresAt, args.Error(2)
}

func (m *MockObjectStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Upload(ctx context.Context, input port.UploadInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
