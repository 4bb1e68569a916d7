package library

import (
	"errors"
	"io/fs"

	"github.com/nikbrunner/pdfshelf/internal/model"
)

// Reason codes returned by Code.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION"
	CodeCycle            = "CYCLE"
	CodeInvalidPath      = "INVALID_PATH"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeIOError          = "IO_ERROR"
)

// Code maps an error to a stable reason code. It returns "" for nil.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrCycle):
		return CodeCycle
	case errors.Is(err, model.ErrValidation):
		return CodeValidation
	case errors.Is(err, model.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, model.ErrInvalidPath):
		return CodeInvalidPath
	case errors.Is(err, model.ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return CodePermissionDenied
	case errors.Is(err, model.ErrFileNotFound), errors.Is(err, fs.ErrNotExist):
		return CodeFileNotFound
	default:
		return CodeIOError
	}
}
