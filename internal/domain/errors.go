package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("image not found")
	ErrStore      = errors.New("storage backend failure")
)
