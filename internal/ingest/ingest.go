// Package ingest imports local image files through the image service.
package ingest

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"imgmeta/internal/domain"
	"imgmeta/internal/service"
)

// Options apply to every imported file.
type Options struct {
	UserID      string
	Tags        []string
	Description string
	// Concurrency bounds parallel uploads; values below 1 mean 1.
	Concurrency int
}

// Result is the outcome for one file.
type Result struct {
	Path  string
	Image *domain.Image
	Err   error
}

// DetectContentType guesses a file's media type from its extension, falling
// back to sniffing the first 512 bytes.
func DetectContentType(path string, head []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(head)
}

func importOne(ctx context.Context, svc service.ImageService, path string, opts Options) (*domain.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	return svc.Import(ctx, service.ImportImageInput{
		CreateImageInput: service.CreateImageInput{
			UserID:      opts.UserID,
			Filename:    filepath.Base(path),
			ContentType: DetectContentType(path, head[:n]),
			Tags:        opts.Tags,
			Description: opts.Description,
		},
		Body: f,
		Size: info.Size(),
	})
}

// Files imports every path and returns one Result per path in input order.
// A failed file does not stop the others; the returned error is non-nil if
// any file failed or ctx was cancelled.
func Files(ctx context.Context, svc service.ImageService, paths []string, opts Options) ([]Result, error) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]Result, len(paths))
	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: p, Err: err}
				return err
			}
			img, err := importOne(gctx, svc, p, opts)
			results[i] = Result{Path: p, Image: img, Err: err}
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Warn().Err(err).Str("path", p).Msg("import failed")
				return nil
			}
			log.Info().Str("path", p).Str("image_id", img.ImageID).Msg("imported")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d files failed to import", failed, len(paths))
	}
	return results, nil
}
