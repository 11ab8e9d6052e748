// Package export renders a user's image metadata as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"imgmeta/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns is the header row shared by every export format.
var Columns = []string{
	"Image ID",
	"User ID",
	"Filename",
	"Content Type",
	"S3 Key",
	"Tags",
	"Description",
	"Created At",
}

// Writer wraps csv.Writer for exporting images as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(Columns)
}

// WriteImages converts a batch of images to CSV rows and writes them.
func (w *Writer) WriteImages(images []domain.Image) error {
	for i := range images {
		if err := w.csv.Write(imageToRow(&images[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, header and every image to out.
func WriteCSV(out io.Writer, images []domain.Image) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteImages(images); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// imageToRow converts one image to a row aligned with Columns. Tags are
// joined with "; " since a tag may itself contain a comma.
func imageToRow(img *domain.Image) []string {
	return []string{
		img.ImageID,
		img.UserID,
		img.Filename,
		img.ContentType,
		img.S3Key,
		strings.Join(img.Tags, "; "),
		img.Description,
		img.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars. An empty result becomes "images".
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		return "images"
	}
	return s
}

// BuildFilename returns a sanitized attachment name.
// Format: images_{sanitized_user_id}_{YYYY-MM-DD}.{ext}
func BuildFilename(userID, ext string, now time.Time) string {
	return fmt.Sprintf("images_%s_%s.%s", SanitizeFilename(userID), now.Format("2006-01-02"), ext)
}
