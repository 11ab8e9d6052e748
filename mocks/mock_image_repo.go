package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

// MockImageRepo is a mock implementation of port.ImageRepository.
type MockImageRepo struct {
	mock.Mock
}

func (m *MockImageRepo) Create(ctx context.Context, img *domain.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *MockImageRepo) GetByID(ctx context.Context, imageID string) (*domain.Image, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *MockImageRepo) ListByUser(ctx context.Context, q port.ListQuery) ([]domain.Image, string, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.Image), args.String(1), args.Error(2)
}

func (m *MockImageRepo) Delete(ctx context.Context, imageID string) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

func (m *MockImageRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
