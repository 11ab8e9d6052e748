package port

import (
	"context"
	"io"
	"time"
)

// UploadInput encapsulates the parameters needed to upload an object.
type UploadInput struct {
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// ObjectStorage abstracts the blob store holding image bytes.
type ObjectStorage interface {
	// PresignPut issues a URL that accepts a single PUT of key with the given
	// content type until the returned expiry.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, time.Time, error)
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Upload(ctx context.Context, input UploadInput) error
	Delete(ctx context.Context, key string) error
}
