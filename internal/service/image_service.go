package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"imgmeta/internal/config"
	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

// CreateImageInput is the DTO for image creation requests.
type CreateImageInput struct {
	UserID      string
	Filename    string
	ContentType string
	Tags        []string
	Description string
}

// ListImagesInput is the DTO for listing a user's images. Cursor is the
// opaque token returned by the previous page.
type ListImagesInput struct {
	UserID string
	Limit  int
	Cursor string
	Tag    string
	From   *time.Time
	To     *time.Time
}

// ImportImageInput is the DTO for server-side ingestion of image bytes.
type ImportImageInput struct {
	CreateImageInput
	Body io.Reader
	Size int64
}

// ImageService defines the image metadata contract.
type ImageService interface {
	Create(ctx context.Context, input CreateImageInput) (*domain.CreatedImage, error)
	List(ctx context.Context, input ListImagesInput) (*domain.ImagePage, error)
	Get(ctx context.Context, imageID string) (*domain.ImageView, error)
	Delete(ctx context.Context, imageID string) error
	Export(ctx context.Context, userID string) ([]domain.Image, error)
	Import(ctx context.Context, input ImportImageInput) (*domain.Image, error)
}

// Option customises an ImageService.
type Option func(*imageService)

// WithClock overrides the source of created_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *imageService) { s.now = now }
}

type imageService struct {
	repo    port.ImageRepository
	storage port.ObjectStorage
	s3Cfg   *config.S3Config
	listCfg *config.ListConfig
	now     func() time.Time
}

// NewImageService creates a new ImageService implementation.
func NewImageService(
	repo port.ImageRepository,
	storage port.ObjectStorage,
	s3Cfg *config.S3Config,
	listCfg *config.ListConfig,
	opts ...Option,
) ImageService {
	s := &imageService{
		repo:    repo,
		storage: storage,
		s3Cfg:   s3Cfg,
		listCfg: listCfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}

// checkUserID rejects ids containing control characters, which stores that
// build composite keys from user_id cannot keep apart.
func checkUserID(userID string) error {
	if strings.IndexFunc(userID, unicode.IsControl) >= 0 {
		return validationErr("user_id must not contain control characters")
	}
	return nil
}

func (in *CreateImageInput) normalize() error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Filename = strings.TrimSpace(in.Filename)
	in.ContentType = strings.TrimSpace(in.ContentType)

	var missing []string
	if in.UserID == "" {
		missing = append(missing, "user_id")
	}
	if in.Filename == "" {
		missing = append(missing, "filename")
	}
	if in.ContentType == "" {
		missing = append(missing, "content_type")
	}
	if len(missing) > 0 {
		return validationErr("%s required", strings.Join(missing, ", "))
	}
	if err := checkUserID(in.UserID); err != nil {
		return err
	}
	if _, _, err := mime.ParseMediaType(in.ContentType); err != nil {
		return validationErr("content_type %q is not a valid media type", in.ContentType)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	return nil
}

func (s *imageService) Create(ctx context.Context, input CreateImageInput) (*domain.CreatedImage, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	imageID := uuid.NewString()
	img := domain.Image{
		ImageID:     imageID,
		UserID:      input.UserID,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		S3Key:       domain.ObjectKey(imageID),
		Tags:        append(domain.Tags{}, input.Tags...),
		Description: input.Description,
		// Microseconds are the finest precision every store keeps.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	uploadURL, expiresAt, err := s.storage.PresignPut(ctx, img.S3Key, img.ContentType, s.s3Cfg.UploadTTL())
	if err != nil {
		log.Error().Err(err).Str("image_id", imageID).Msg("imageService.Create: presign upload failed")
		return nil, storeErr("presigning upload", err)
	}

	if err := s.repo.Create(ctx, &img); err != nil {
		log.Error().Err(err).Str("image_id", imageID).Msg("imageService.Create: persisting metadata failed")
		return nil, storeErr("persisting image metadata", err)
	}

	log.Info().
		Str("image_id", imageID).
		Str("user_id", img.UserID).
		Str("s3_key", img.S3Key).
		Msg("image metadata created; awaiting client upload")

	return &domain.CreatedImage{
		Image:           img,
		UploadURL:       uploadURL,
		UploadExpiresAt: expiresAt,
	}, nil
}

func (s *imageService) List(ctx context.Context, input ListImagesInput) (*domain.ImagePage, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return nil, validationErr("user_id required")
	}
	if err := checkUserID(input.UserID); err != nil {
		return nil, err
	}
	if input.Limit <= 0 {
		return nil, validationErr("limit must be a positive integer")
	}
	limit := input.Limit
	if limit > s.listCfg.MaxLimit {
		limit = s.listCfg.MaxLimit
	}
	if input.From != nil && input.To != nil && input.From.After(*input.To) {
		return nil, validationErr("from must not be after to")
	}

	q := port.ListQuery{
		UserID: input.UserID,
		Limit:  limit,
		Tag:    input.Tag,
		From:   input.From,
		To:     input.To,
	}
	if input.Cursor != "" {
		after, err := domain.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, err
		}
		q.After = after
	}

	images, next, err := s.repo.ListByUser(ctx, q)
	if err != nil {
		return nil, storeErr("listing images", err)
	}

	items := make([]domain.ImageView, 0, len(images))
	for i := range images {
		items = append(items, s.view(ctx, images[i]))
	}
	return &domain.ImagePage{Items: items, NextCursor: next}, nil
}

func (s *imageService) Get(ctx context.Context, imageID string) (*domain.ImageView, error) {
	img, err := s.lookup(ctx, imageID)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, *img)
	return &v, nil
}

func (s *imageService) Delete(ctx context.Context, imageID string) error {
	img, err := s.lookup(ctx, imageID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, imageID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storeErr("deleting image metadata", err)
	}

	// Metadata is authoritative; a blob left behind is only logged.
	if err := s.storage.Delete(ctx, img.S3Key); err != nil {
		log.Warn().Err(err).
			Str("image_id", imageID).
			Str("s3_key", img.S3Key).
			Msg("imageService.Delete: blob cleanup failed")
	}

	log.Info().Str("image_id", imageID).Msg("image deleted")
	return nil
}

func (s *imageService) Export(ctx context.Context, userID string) ([]domain.Image, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationErr("user_id required")
	}
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	q := port.ListQuery{UserID: userID, Limit: s.listCfg.MaxLimit}
	all := []domain.Image{}
	for {
		page, next, err := s.repo.ListByUser(ctx, q)
		if err != nil {
			return nil, storeErr("exporting images", err)
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		after, err := domain.DecodeCursor(next)
		if err != nil {
			return nil, storeErr("exporting images", err)
		}
		q.After = after
	}
}

func (s *imageService) Import(ctx context.Context, input ImportImageInput) (*domain.Image, error) {
	if input.Body == nil {
		return nil, validationErr("image body required")
	}

	created, err := s.Create(ctx, input.CreateImageInput)
	if err != nil {
		return nil, err
	}

	err = s.storage.Upload(ctx, port.UploadInput{
		Key:         created.S3Key,
		Body:        input.Body,
		ContentType: created.ContentType,
		Size:        input.Size,
	})
	if err != nil {
		log.Error().Err(err).Str("image_id", created.ImageID).Msg("imageService.Import: upload failed")
		if rbErr := s.repo.Delete(ctx, created.ImageID); rbErr != nil {
			log.Warn().Err(rbErr).Str("image_id", created.ImageID).Msg("imageService.Import: metadata rollback failed")
		}
		return nil, storeErr("uploading image", err)
	}

	img := created.Image
	return &img, nil
}

func (s *imageService) lookup(ctx context.Context, imageID string) (*domain.Image, error) {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return nil, validationErr("image_id required")
	}
	img, err := s.repo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storeErr("reading image metadata", err)
	}
	return img, nil
}

// view attaches a download URL. The blob may never have been uploaded, and a
// failed presign only drops the URL.
func (s *imageService) view(ctx context.Context, img domain.Image) domain.ImageView {
	url, err := s.storage.PresignGet(ctx, img.S3Key, s.s3Cfg.DownloadTTL())
	if err != nil {
		log.Warn().Err(err).Str("image_id", img.ImageID).Msg("presign download failed")
		return domain.ImageView{Image: img}
	}
	return domain.ImageView{Image: img, DownloadURL: url}
}
