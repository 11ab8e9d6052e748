package handler

// Swagger type definitions for API documentation.

// CreateImageRequest represents the create image request body.
type CreateImageRequest struct {
	UserID      string   `json:"user_id" example:"u1"`
	Filename    string   `json:"filename" example:"pic.jpg"`
	ContentType string   `json:"content_type" example:"image/jpeg"`
	Tags        []string `json:"tags" example:"vacation,test"`
	Description string   `json:"description" example:"Testing upload"`
}

// DeleteImageResponse is returned by a successful delete.
type DeleteImageResponse struct {
	Deleted bool   `json:"deleted" example:"true"`
	ImageID string `json:"image_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}
