package port

import (
	"context"
	"time"

	"imgmeta/internal/domain"
)

// ListQuery selects one page of a user's images. Filters are applied before
// pagination so every page except the last is full.
type ListQuery struct {
	UserID string
	Limit  int
	After  *domain.Cursor
	Tag    string
	From   *time.Time
	To     *time.Time
}

// Matches reports whether img passes the tag and time-range filters.
// Ownership and cursor position are checked separately by each store.
func (q *ListQuery) Matches(img *domain.Image) bool {
	if q.Tag != "" && !img.HasTag(q.Tag) {
		return false
	}
	if q.From != nil && img.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && img.CreatedAt.After(*q.To) {
		return false
	}
	return true
}

// ImageRepository defines the contract for image metadata persistence.
// Single-item writes must be atomic: Create fails if the id already exists and
// Delete returns domain.ErrNotFound when no row was removed, so concurrent
// deletes of one id have exactly one winner.
type ImageRepository interface {
	Create(ctx context.Context, img *domain.Image) error
	GetByID(ctx context.Context, imageID string) (*domain.Image, error)
	ListByUser(ctx context.Context, q ListQuery) ([]domain.Image, string, error)
	Delete(ctx context.Context, imageID string) error
	Ping(ctx context.Context) error
}
