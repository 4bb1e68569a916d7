package thumbnail

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nikbrunner/pdfshelf/internal/logger"
)

// Dir is the name of the thumbnail cache directory inside the config directory.
const Dir = "thumbnails"

const hashLen = 12

var dataURLPrefix = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// ErrInvalidDataURL is returned when an image payload is not a base64 image data URL.
var ErrInvalidDataURL = errors.New("invalid image data URL")

// Store is a content-addressed cache of page thumbnails. It knows nothing about
// bookmarks: callers pass the paths they want removed or kept.
type Store struct {
	dir string
	log logger.Logger
}

// SweepResult summarizes an orphan sweep.
type SweepResult struct {
	Kept    int              `json:"kept" yaml:"kept"`
	Removed []string         `json:"removed" yaml:"removed"`
	Failed  map[string]error `json:"-" yaml:"-"`
}

// New creates a Store rooted at dir. log may be nil.
func New(dir string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Filename returns the cache file name for a page: the first 12 hex characters
// of md5(pdfPath) followed by _page{N}.jpg.
func Filename(pdfPath string, page int) string {
	sum := md5.Sum([]byte(pdfPath))
	return fmt.Sprintf("%s_page%d.jpg", hex.EncodeToString(sum[:])[:hashLen], page)
}

// PathFor returns the cache path for a page. The same inputs always give the same path.
func (s *Store) PathFor(pdfPath string, page int) string {
	return filepath.Join(s.dir, Filename(pdfPath, page))
}

// Save writes image to the page's cache path, replacing any previous thumbnail.
func (s *Store) Save(pdfPath string, page int, image []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create thumbnail directory: %w", err)
	}
	path := s.PathFor(pdfPath, page)
	if err := os.WriteFile(path, image, 0644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	s.log.Debug("thumbnail saved", logger.String("path", path), logger.Int("bytes", len(image)))
	return path, nil
}

// SaveDataURL decodes a data:image/...;base64 payload and saves it.
func (s *Store) SaveDataURL(pdfPath string, page int, dataURL string) (string, error) {
	image, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.Save(pdfPath, page, image)
}

// Cached returns the page's cache path if the thumbnail already exists.
func (s *Store) Cached(pdfPath string, page int) (string, bool) {
	path := s.PathFor(pdfPath, page)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Read returns the thumbnail bytes.
func (s *Store) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadDataURL returns the thumbnail as a data:image/jpeg;base64 URL.
func (s *Store) ReadDataURL(path string) (string, error) {
	data, err := s.Read(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Delete removes a thumbnail file. A file that is already gone is not an error.
func (s *Store) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete thumbnail %s: %w", path, err)
	}
	return nil
}

// DeleteAll removes every path independently and returns the failures. One
// failing file does not stop the others.
func (s *Store) DeleteAll(paths []string) map[string]error {
	failed := map[string]error{}
	for _, path := range paths {
		if err := s.Delete(path); err != nil {
			s.log.Warn("failed to delete thumbnail", logger.String("path", path), logger.Error(err))
			failed[path] = err
		}
	}
	return failed
}

// SweepOrphans deletes every file in the cache directory whose name does not
// match the base name of one of valid. Individual failures are collected, not
// returned. A missing cache directory is an empty sweep.
func (s *Store) SweepOrphans(ctx context.Context, valid []string) (SweepResult, error) {
	result := SweepResult{Failed: map[string]error{}}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("list thumbnails: %w", err)
	}

	keep := make(map[string]struct{}, len(valid))
	for _, p := range valid {
		keep[filepath.Base(p)] = struct{}{}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if entry.IsDir() {
			continue
		}
		if _, ok := keep[entry.Name()]; ok {
			result.Kept++
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := s.Delete(path); err != nil {
			s.log.Warn("failed to delete orphaned thumbnail", logger.String("path", path), logger.Error(err))
			result.Failed[path] = err
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	if len(result.Removed) > 0 {
		s.log.Info("orphaned thumbnails removed",
			logger.Int("removed", len(result.Removed)),
			logger.Int("kept", result.Kept),
			logger.Int("failed", len(result.Failed)))
	} else {
		s.log.Debug("no orphaned thumbnails")
	}
	return result, nil
}

// DecodeDataURL extracts the image bytes from a data:image/<fmt>;base64,<data> URL.
func DecodeDataURL(dataURL string) ([]byte, error) {
	loc := dataURLPrefix.FindStringIndex(dataURL)
	if loc == nil {
		return nil, ErrInvalidDataURL
	}
	payload := strings.TrimSpace(dataURL[loc[1]:])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataURL, err)
	}
	return data, nil
}
