// Package smoke runs the create, list, get and delete round trip against a
// deployed API.
package smoke

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"imgmeta/internal/client"
	"imgmeta/internal/domain"
)

// Scenario is the image registered by Run. Body, when set, is uploaded to
// the presigned URL between create and list.
type Scenario struct {
	UserID      string
	Filename    string
	ContentType string
	Tags        []string
	Description string
	Body        []byte
}

// DefaultScenario is the canonical smoke image.
func DefaultScenario() Scenario {
	return Scenario{
		UserID:      "u1",
		Filename:    "pic.jpg",
		ContentType: "image/jpeg",
		Tags:        []string{"vacation", "test"},
		Description: "Testing upload",
	}
}

// Report summarises a successful run.
type Report struct {
	ImageID   string
	S3Key     string
	UploadURL string
	Uploaded  bool
}

// Run executes the scenario and returns the first deviation as an error.
func Run(ctx context.Context, c *client.Client, sc Scenario, logger zerolog.Logger) (*Report, error) {
	created, err := c.Create(ctx, client.CreateRequest{
		UserID:      sc.UserID,
		Filename:    sc.Filename,
		ContentType: sc.ContentType,
		Tags:        sc.Tags,
		Description: sc.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	if created.ImageID == "" || created.UploadURL == "" || created.S3Key == "" {
		return nil, fmt.Errorf("create: response missing image_id, upload_url or s3_key")
	}
	logger.Info().Str("image_id", created.ImageID).Str("s3_key", created.S3Key).Msg("created")

	report := &Report{ImageID: created.ImageID, S3Key: created.S3Key, UploadURL: created.UploadURL}

	if sc.Body != nil {
		if err := c.Upload(ctx, created.UploadURL, sc.ContentType, bytes.NewReader(sc.Body), int64(len(sc.Body))); err != nil {
			return report, fmt.Errorf("upload: %w", err)
		}
		report.Uploaded = true
		logger.Info().Int("bytes", len(sc.Body)).Msg("uploaded")
	}

	page, err := c.List(ctx, sc.UserID, client.ListOptions{Limit: 10})
	if err != nil {
		return report, fmt.Errorf("list: %w", err)
	}
	found := slices.ContainsFunc(page.Items, func(v domain.ImageView) bool { return v.ImageID == created.ImageID })
	if !found {
		return report, fmt.Errorf("list: image %s not in first page for %s", created.ImageID, sc.UserID)
	}
	logger.Info().Int("items", len(page.Items)).Msg("listed")

	got, err := c.Get(ctx, created.ImageID)
	if err != nil {
		return report, fmt.Errorf("get: %w", err)
	}
	if got.UserID != sc.UserID || got.Filename != sc.Filename || got.ContentType != sc.ContentType ||
		got.Description != sc.Description || !slices.Equal([]string(got.Tags), sc.Tags) {
		return report, fmt.Errorf("get: record does not match what was created")
	}
	logger.Info().Bool("download_url", got.DownloadURL != "").Msg("fetched")

	del, err := c.Delete(ctx, created.ImageID)
	if err != nil {
		return report, fmt.Errorf("delete: %w", err)
	}
	if !del.Deleted {
		return report, fmt.Errorf("delete: response did not report deleted")
	}
	logger.Info().Msg("deleted")

	if _, err := c.Get(ctx, created.ImageID); !client.IsNotFound(err) {
		return report, fmt.Errorf("get after delete: want not found, got %v", err)
	}
	logger.Info().Msg("confirmed gone")

	return report, nil
}
