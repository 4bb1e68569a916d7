package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrCycle            = errors.New("move would create a cycle")
	ErrInvalidPath      = errors.New("invalid file path")
	ErrFileNotFound     = errors.New("PDF file not found or invalid")
	ErrPermissionDenied = errors.New("permission denied")
)
