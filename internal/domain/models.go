package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Tags is the ordered tag list of an image. It is stored as a JSON array in
// SQL backends and always serialises as an array, never null.
type Tags []string

// MarshalJSON renders a nil tag list as [].
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported scan type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

// Image is the metadata record of one uploaded (or pending) image.
type Image struct {
	ImageID     string    `db:"image_id" json:"image_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	S3Key       string    `db:"s3_key" json:"s3_key"`
	Tags        Tags      `db:"tags" json:"tags"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Clone returns a copy that shares no memory with img.
func (img Image) Clone() Image {
	if img.Tags != nil {
		img.Tags = append(Tags{}, img.Tags...)
	}
	return img
}

// HasTag reports whether tag is one of the image's tags.
func (img *Image) HasTag(tag string) bool {
	for _, t := range img.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CreatedImage is returned by Create: the persisted record and the presigned
// URL the client uses to PUT the bytes.
type CreatedImage struct {
	Image
	UploadURL       string    `json:"upload_url"`
	UploadExpiresAt time.Time `json:"upload_expires_at"`
}

// ImageView is a record as served to readers, with a short-lived download URL
// when one could be issued.
type ImageView struct {
	Image
	DownloadURL string `json:"download_url,omitempty"`
}

// ImagePage is one page of a List call.
type ImagePage struct {
	Items      []ImageView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
