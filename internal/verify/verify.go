package verify

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nikbrunner/pdfshelf/internal/model"
)

// Status represents the health of a PDF on disk.
type Status int

const (
	Healthy    Status = iota // file exists and matches the stored hash (or none is stored)
	Changed                  // file exists but its content hash differs
	Missing                  // file is gone or is not a PDF file
	Unreadable               // file exists but could not be hashed
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Changed:
		return "changed"
	case Missing:
		return "missing"
	default:
		return "unreadable"
	}
}

// MarshalText makes Status render as its name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Target is a PDF to check together with the hash recorded for it.
type Target struct {
	Path       string
	StoredHash string
}

// Result holds the check result for a single PDF.
type Result struct {
	Path        string `json:"path" yaml:"path"`
	Status      Status `json:"status" yaml:"status"`
	Exists      bool   `json:"exists" yaml:"exists"`
	Hash        string `json:"hash,omitempty" yaml:"hash,omitempty"`
	HashChanged bool   `json:"hashChanged" yaml:"hashChanged"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProgressFunc is called after each PDF is checked.
// completed is the number of PDFs checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// CheckFiles checks all targets concurrently and returns results in input order.
// Targets not reached before ctx is cancelled are reported as Unreadable.
func CheckFiles(ctx context.Context, targets []Target, concurrency int, onProgress ProgressFunc) []Result {
	if len(targets) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(targets))
	jobs := make(chan int, len(targets))
	var wg sync.WaitGroup

	// Progress tracking
	var progressMu sync.Mutex
	completed := 0

	// Start workers
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Path: targets[idx].Path, Status: Unreadable, Error: err.Error()}
				} else {
					results[idx] = Check(targets[idx])
				}

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(targets))
					progressMu.Unlock()
				}
			}
		}()
	}

	// Send jobs
	for i := range targets {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// Check verifies a single PDF. It never mutates anything.
func Check(target Target) Result {
	result := Result{Path: target.Path}

	if err := ValidatePath(target.Path); err != nil {
		result.Status = Missing
		result.Error = normalizeError(err)
		return result
	}
	result.Exists = true

	hash, err := HashFile(target.Path)
	if err != nil {
		result.Status = Unreadable
		result.Error = normalizeError(err)
		return result
	}
	result.Hash = hash
	result.HashChanged = target.StoredHash != "" && target.StoredHash != hash

	if result.HashChanged {
		result.Status = Changed
	} else {
		result.Status = Healthy
	}
	return result
}

// ValidatePath checks that path names an existing regular file with a .pdf extension.
func ValidatePath(path string) error {
	if path == "" || !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%w: %q", model.ErrInvalidPath, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %w", model.ErrPermissionDenied, err)
		}
		return fmt.Errorf("%w: %w", model.ErrFileNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %q is not a regular file", model.ErrFileNotFound, path)
	}
	return nil
}

// HashFile returns the hex MD5 of the file content, read as a stream.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeError simplifies error messages into readable categories.
func normalizeError(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidPath):
		return "Not a PDF path"
	case errors.Is(err, fs.ErrPermission):
		return "Permission denied"
	case errors.Is(err, fs.ErrNotExist):
		return "File not found"
	case errors.Is(err, model.ErrFileNotFound):
		return "Not a regular file"
	default:
		return err.Error()
	}
}
