// Package memory keeps image metadata in process memory. It backs tests and
// single-process demos; data does not survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

type imageRepo struct {
	mu     sync.RWMutex
	images map[string]domain.Image
}

// NewImageRepo creates an empty in-memory ImageRepository.
func NewImageRepo() port.ImageRepository {
	return &imageRepo{images: make(map[string]domain.Image)}
}

func (r *imageRepo) Create(_ context.Context, img *domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.images[img.ImageID]; ok {
		return fmt.Errorf("memory.Create: image %s already exists", img.ImageID)
	}
	r.images[img.ImageID] = img.Clone()
	return nil
}

func (r *imageRepo) GetByID(_ context.Context, imageID string) (*domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[imageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := img.Clone()
	return &out, nil
}

func (r *imageRepo) ListByUser(_ context.Context, q port.ListQuery) ([]domain.Image, string, error) {
	r.mu.RLock()
	var candidates []domain.Image
	for _, img := range r.images {
		if img.UserID != q.UserID || !q.Matches(&img) {
			continue
		}
		if q.After != nil && !q.After.Precedes(&img) {
			continue
		}
		candidates = append(candidates, img.Clone())
	}
	r.mu.RUnlock()

	domain.SortNewerFirst(candidates)
	if len(candidates) > q.Limit+1 {
		candidates = candidates[:q.Limit+1]
	}
	page, next := domain.PageOf(candidates, q.Limit)
	return page, next, nil
}

func (r *imageRepo) Delete(_ context.Context, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.images[imageID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.images, imageID)
	return nil
}

func (r *imageRepo) Ping(context.Context) error {
	return nil
}
