// Package client is a Go client for the image metadata HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"imgmeta/internal/domain"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("imgmeta: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	UserID      string   `json:"user_id"`
	Filename    string   `json:"filename"`
	ContentType string   `json:"content_type"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}

// ListOptions narrows a list call. Zero values are omitted.
type ListOptions struct {
	Limit  int
	Cursor string
	Tag    string
	From   time.Time
	To     time.Time
}

// DeleteResult is the body of a successful delete.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ImageID string `json:"image_id"`
}

// Client talks to one deployment of the API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient uses a client with a
// 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Create registers an image and returns the record with its upload URL.
func (c *Client) Create(ctx context.Context, in CreateRequest) (*domain.CreatedImage, error) {
	var out domain.CreatedImage
	if err := c.do(ctx, http.MethodPost, "/images", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of a user's images.
func (c *Client) List(ctx context.Context, userID string, opts ListOptions) (*domain.ImagePage, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if opts.Limit != 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	if !opts.From.IsZero() {
		q.Set("from", opts.From.UTC().Format(time.RFC3339Nano))
	}
	if !opts.To.IsZero() {
		q.Set("to", opts.To.UTC().Format(time.RFC3339Nano))
	}

	var out domain.ImagePage
	if err := c.do(ctx, http.MethodGet, "/images?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one image.
func (c *Client) Get(ctx context.Context, imageID string) (*domain.ImageView, error) {
	var out domain.ImageView
	if err := c.do(ctx, http.MethodGet, "/images/"+url.PathEscape(imageID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes one image.
func (c *Client) Delete(ctx context.Context, imageID string) (*DeleteResult, error) {
	var out DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/images/"+url.PathEscape(imageID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload PUTs body to a presigned upload URL. contentType must match the
// one the URL was issued for.
func (c *Client) Upload(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("uploading: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Code: "UPLOAD_FAILED", Message: resp.Status}
	}
	return nil
}
