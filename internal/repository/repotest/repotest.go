// Package repotest is a behavioural test suite shared by every
// port.ImageRepository implementation.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) port.ImageRepository

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func image(id, user string, age time.Duration, tags ...string) *domain.Image {
	if tags == nil {
		tags = []string{}
	}
	return &domain.Image{
		ImageID:     id,
		UserID:      user,
		Filename:    id + ".jpg",
		ContentType: "image/jpeg",
		S3Key:       domain.ObjectKey(id),
		Tags:        tags,
		Description: "desc " + id,
		CreatedAt:   base.Add(-age),
	}
}

func ids(images []domain.Image) []string {
	out := make([]string, 0, len(images))
	for i := range images {
		out = append(out, images[i].ImageID)
	}
	return out
}

// Run executes the suite against repositories produced by newRepo.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("CreateThenGet", func(t *testing.T) {
		repo := newRepo(t)
		img := image("a", "u1", 0, "vacation", "test")
		require.NoError(t, repo.Create(ctx, img))

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, img.UserID, got.UserID)
		assert.Equal(t, img.Filename, got.Filename)
		assert.Equal(t, img.ContentType, got.ContentType)
		assert.Equal(t, img.S3Key, got.S3Key)
		assert.Equal(t, img.Tags, got.Tags)
		assert.Equal(t, img.Description, got.Description)
		assert.True(t, img.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("CreateDuplicateFails", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))
		assert.Error(t, repo.Create(ctx, image("a", "u2", 0)))

		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "nope")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("EmptyTagsStayEmpty", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))
		got, err := repo.GetByID(ctx, "a")
		require.NoError(t, err)
		assert.NotNil(t, got.Tags)
		assert.Empty(t, got.Tags)
	})

	t.Run("ListOrderAndOwnership", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("old", "u1", 2*time.Hour)))
		require.NoError(t, repo.Create(ctx, image("new", "u1", 0)))
		require.NoError(t, repo.Create(ctx, image("tie-b", "u1", time.Hour)))
		require.NoError(t, repo.Create(ctx, image("tie-a", "u1", time.Hour)))
		require.NoError(t, repo.Create(ctx, image("other", "u2", 0)))

		page, next, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, ids(page))
		assert.Empty(t, next)
	})

	t.Run("ListIgnoresUsersSharingAPrefix", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("mine", "a", time.Hour)))
		require.NoError(t, repo.Create(ctx, image("nul", "a\x00b", 0)))
		require.NoError(t, repo.Create(ctx, image("longer", "ab", 0)))
		require.NoError(t, repo.Create(ctx, image("slash", "a/b", 0)))

		page, next, err := repo.ListByUser(ctx, port.ListQuery{UserID: "a", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"mine"}, ids(page))
		assert.Empty(t, next)

		page, _, err = repo.ListByUser(ctx, port.ListQuery{UserID: "a\x00b", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"nul"}, ids(page))
	})

	t.Run("ListUnknownUser", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))
		page, next, err := repo.ListByUser(ctx, port.ListQuery{UserID: "ghost", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
		assert.Empty(t, next)
	})

	t.Run("PaginationVisitsEveryRecordOnce", func(t *testing.T) {
		repo := newRepo(t)
		const total = 7
		for i := 0; i < total; i++ {
			// Two records share each timestamp to exercise the tie-break.
			age := time.Duration(i/2) * time.Minute
			require.NoError(t, repo.Create(ctx, image(fmt.Sprintf("img-%02d", i), "u1", age)))
		}

		var seen []string
		q := port.ListQuery{UserID: "u1", Limit: 3}
		for pages := 0; ; pages++ {
			require.Less(t, pages, total, "pagination did not terminate")
			page, next, err := repo.ListByUser(ctx, q)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page), 3)
			seen = append(seen, ids(page)...)
			if next == "" {
				break
			}
			after, err := domain.DecodeCursor(next)
			require.NoError(t, err)
			q.After = after
		}

		assert.Equal(t, []string{"img-00", "img-01", "img-02", "img-03", "img-04", "img-05", "img-06"}, seen)
	})

	t.Run("ExactPageHasNoCursor", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, image(fmt.Sprintf("i%d", i), "u1", time.Duration(i)*time.Second)))
		}
		page, next, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 3})
		require.NoError(t, err)
		assert.Len(t, page, 3)
		assert.Empty(t, next)
	})

	t.Run("ListFilters", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0, "sun")))
		require.NoError(t, repo.Create(ctx, image("b", "u1", time.Hour, "sun", "sea")))
		require.NoError(t, repo.Create(ctx, image("c", "u1", 2*time.Hour, "mountain")))
		require.NoError(t, repo.Create(ctx, image("d", "u1", 3*time.Hour, "sun")))

		page, _, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 10, Tag: "sun"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "d"}, ids(page))

		from := base.Add(-150 * time.Minute)
		to := base.Add(-30 * time.Minute)
		page, _, err = repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 10, From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, ids(page))

		// Filtered pages stay full.
		page, next, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 2, Tag: "sun"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(page))
		require.NotEmpty(t, next)
		after, err := domain.DecodeCursor(next)
		require.NoError(t, err)
		page, next, err = repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 2, Tag: "sun", After: after})
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, ids(page))
		assert.Empty(t, next)
	})

	t.Run("DeleteThenGet", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))
		require.NoError(t, repo.Delete(ctx, "a"))

		_, err := repo.GetByID(ctx, "a")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		page, _, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("DoubleDelete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))
		require.NoError(t, repo.Delete(ctx, "a"))
		assert.True(t, errors.Is(repo.Delete(ctx, "a"), domain.ErrNotFound))
	})

	t.Run("ConcurrentDeleteHasOneWinner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, image("a", "u1", 0)))

		const workers = 8
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			notFound atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Delete(ctx, "a")
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, domain.ErrNotFound):
					notFound.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(workers-1), notFound.Load())
	})

	t.Run("Ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}
