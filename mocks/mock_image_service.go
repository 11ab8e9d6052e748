package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imgmeta/internal/domain"
	"imgmeta/internal/service"
)

// MockImageService is a mock implementation of service.ImageService.
type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Create(ctx context.Context, input service.CreateImageInput) (*domain.CreatedImage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreatedImage), args.Error(1)
}

func (m *MockImageService) List(ctx context.Context, input service.ListImagesInput) (*domain.ImagePage, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImagePage), args.Error(1)
}

func (m *MockImageService) Get(ctx context.Context, imageID string) (*domain.ImageView, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImageView), args.Error(1)
}

func (m *MockImageService) Delete(ctx context.Context, imageID string) error {
	args := m.Called(ctx, imageID)
	return args.Error(0)
}

func (m *MockImageService) Export(ctx context.Context, userID string) ([]domain.Image, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Image), args.Error(1)
}

func (m *MockImageService) Import(ctx context.Context, input service.ImportImageInput) (*domain.Image, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}
