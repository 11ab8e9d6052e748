package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

const imageColumns = `image_id, user_id, filename, content_type, s3_key, tags, description, created_at`

type imageRepo struct {
	db *sqlx.DB
}

// NewImageRepo creates a new PostgreSQL-backed ImageRepository.
func NewImageRepo(db *sqlx.DB) port.ImageRepository {
	return &imageRepo{db: db}
}

func (r *imageRepo) Create(ctx context.Context, img *domain.Image) error {
	query := `INSERT INTO images (` + imageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		img.ImageID, img.UserID, img.Filename, img.ContentType, img.S3Key,
		img.Tags, img.Description, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("imageRepo.Create: %w", err)
	}
	return nil
}

func (r *imageRepo) GetByID(ctx context.Context, imageID string) (*domain.Image, error) {
	var img domain.Image
	err := r.db.GetContext(ctx, &img,
		"SELECT "+imageColumns+" FROM images WHERE image_id = $1", imageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("imageRepo.GetByID: %w", err)
	}
	img.CreatedAt = img.CreatedAt.UTC()
	return &img, nil
}

// buildListQuery renders the page query for q. It selects one row more than
// the limit so the caller can tell whether another page exists.
func buildListQuery(q port.ListQuery) (string, []interface{}) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{q.UserID}
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Tag != "" {
		clauses = append(clauses, "tags @> jsonb_build_array("+bind(q.Tag)+"::text)")
	}
	if q.From != nil {
		clauses = append(clauses, "created_at >= "+bind(*q.From))
	}
	if q.To != nil {
		clauses = append(clauses, "created_at <= "+bind(*q.To))
	}
	if q.After != nil {
		ts := bind(q.After.CreatedAt)
		id := bind(q.After.ImageID)
		clauses = append(clauses, fmt.Sprintf("(created_at < %s OR (created_at = %s AND image_id > %s))", ts, ts, id))
	}

	query := fmt.Sprintf(`SELECT %s FROM images
		WHERE %s
		ORDER BY created_at DESC, image_id ASC
		LIMIT %s`, imageColumns, strings.Join(clauses, " AND "), bind(q.Limit+1))
	return query, args
}

func (r *imageRepo) ListByUser(ctx context.Context, q port.ListQuery) ([]domain.Image, string, error) {
	query, args := buildListQuery(q)

	var images []domain.Image
	if err := r.db.SelectContext(ctx, &images, query, args...); err != nil {
		return nil, "", fmt.Errorf("imageRepo.ListByUser: %w", err)
	}
	for i := range images {
		images[i].CreatedAt = images[i].CreatedAt.UTC()
	}

	page, next := domain.PageOf(images, q.Limit)
	return page, next, nil
}

func (r *imageRepo) Delete(ctx context.Context, imageID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM images WHERE image_id = $1", imageID)
	if err != nil {
		return fmt.Errorf("imageRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *imageRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
