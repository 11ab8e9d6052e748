package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Cursor marks the last item of a page in (created_at DESC, image_id ASC)
// order. Listing resumes strictly after it.
type Cursor struct {
	CreatedAt time.Time
	ImageID   string
}

type cursorWire struct {
	T  int64  `json:"t"`
	ID string `json:"id"`
}

// CursorAt returns the cursor positioned on img.
func CursorAt(img *Image) Cursor {
	return Cursor{CreatedAt: img.CreatedAt, ImageID: img.ImageID}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorWire{T: c.CreatedAt.UnixNano(), ID: c.ImageID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.ID == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	return &Cursor{CreatedAt: time.Unix(0, w.T).UTC(), ImageID: w.ID}, nil
}

// Precedes reports whether the cursor position comes before img, i.e. img
// belongs to a later page.
func (c Cursor) Precedes(img *Image) bool {
	if !img.CreatedAt.Equal(c.CreatedAt) {
		return img.CreatedAt.Before(c.CreatedAt)
	}
	return img.ImageID > c.ImageID
}

// NewerFirst is the listing order: newest created_at first, ties by image_id.
func NewerFirst(a, b *Image) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ImageID < b.ImageID
}

// SortNewerFirst sorts images in listing order.
func SortNewerFirst(images []Image) {
	sort.Slice(images, func(i, j int) bool { return NewerFirst(&images[i], &images[j]) })
}

// PageOf trims candidates (already in listing order, at most limit+1 long)
// to one page and returns the cursor of the next page, or "" when the
// candidates are exhausted.
func PageOf(candidates []Image, limit int) ([]Image, string) {
	if len(candidates) <= limit {
		return candidates, ""
	}
	page := candidates[:limit]
	return page, CursorAt(&page[limit-1]).Encode()
}
