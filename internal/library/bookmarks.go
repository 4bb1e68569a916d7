package library

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/pdfshelf/internal/bookmarks"
	"github.com/nikbrunner/pdfshelf/internal/logger"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/thumbnail"
)

// AddBookmark trims the title and adds the bookmark. No title means "Page N".
func (l *Library) AddBookmark(pdfPath string, page int, title string) (model.Bookmark, []model.Bookmark, error) {
	if strings.TrimSpace(pdfPath) == "" {
		return model.Bookmark{}, nil, fmt.Errorf("%w: empty path", model.ErrInvalidPath)
	}
	return l.bookmarks.Add(pdfPath, page, strings.TrimSpace(title))
}

// BookmarkEdit holds the user-facing bookmark changes.
type BookmarkEdit struct {
	Title          *string
	ThumbnailPath  *string
	ClearThumbnail bool
}

// UpdateBookmark applies a user edit. Unlike the registry, an empty title is
// rejected instead of being replaced by the default.
func (l *Library) UpdateBookmark(pdfPath, bookmarkID string, edit BookmarkEdit) (model.Bookmark, []model.Bookmark, error) {
	var upd bookmarks.Update
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return model.Bookmark{}, nil, fmt.Errorf("%w: bookmark title must not be empty", model.ErrValidation)
		}
		upd.Title = &title
	}
	switch {
	case edit.ClearThumbnail:
		var none *string
		upd.ThumbnailPath = &none
	case edit.ThumbnailPath != nil:
		upd.ThumbnailPath = &edit.ThumbnailPath
	}

	b, err := l.bookmarks.Update(pdfPath, bookmarkID, upd)
	if err != nil {
		return model.Bookmark{}, nil, err
	}
	return b, l.bookmarks.List(pdfPath), nil
}

// DeleteBookmark removes a bookmark and its thumbnail file when no other
// bookmark still points at it. A thumbnail failure is logged, not returned.
func (l *Library) DeleteBookmark(pdfPath, bookmarkID string) ([]model.Bookmark, error) {
	deleted, err := l.bookmarks.Delete(pdfPath, bookmarkID)
	if err != nil {
		return nil, err
	}

	if deleted.ThumbnailPath != nil {
		thumb := *deleted.ThumbnailPath
		if _, shared := slices.BinarySearch(l.bookmarks.ThumbnailPaths(), thumb); !shared {
			if err := l.thumbnails.Delete(thumb); err != nil {
				l.log.Warn("failed to delete thumbnail", logger.String("path", thumb), logger.Error(err))
			}
		}
	}
	return l.bookmarks.List(pdfPath), nil
}

// ReorderBookmarks sets the bookmark order. Duplicate IDs are rejected.
func (l *Library) ReorderBookmarks(pdfPath string, orderedIDs []string) ([]model.Bookmark, error) {
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: bookmark %q listed twice", model.ErrValidation, id)
		}
		seen[id] = true
	}
	return l.bookmarks.Reorder(pdfPath, orderedIDs)
}

// GenerateThumbnail stores a rendered page image and returns its cache path.
// image may be raw bytes or a data:image/...;base64 URL.
func (l *Library) GenerateThumbnail(pdfPath string, page int, image []byte) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("%w: page must be positive, got %d", model.ErrValidation, page)
	}
	if len(image) == 0 {
		if path, ok := l.thumbnails.Cached(pdfPath, page); ok {
			return path, nil
		}
		return "", fmt.Errorf("%w: no image data and no cached thumbnail", model.ErrValidation)
	}
	if bytes.HasPrefix(image, []byte("data:image/")) {
		decoded, err := thumbnail.DecodeDataURL(string(image))
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrValidation, err)
		}
		image = decoded
	}
	return l.thumbnails.Save(pdfPath, page, image)
}

// AttachThumbnail stores the image for the bookmark's page and records the path
// on the bookmark.
func (l *Library) AttachThumbnail(pdfPath, bookmarkID string, image []byte) (model.Bookmark, error) {
	idx := slices.IndexFunc(l.bookmarks.List(pdfPath), func(b model.Bookmark) bool { return b.ID == bookmarkID })
	if idx < 0 {
		return model.Bookmark{}, fmt.Errorf("%w: bookmark %q", model.ErrNotFound, bookmarkID)
	}
	page := l.bookmarks.List(pdfPath)[idx].Page

	path, err := l.GenerateThumbnail(pdfPath, page, image)
	if err != nil {
		return model.Bookmark{}, err
	}
	b, _, err := l.UpdateBookmark(pdfPath, bookmarkID, BookmarkEdit{ThumbnailPath: &path})
	return b, err
}

// ThumbnailDataURL returns a cached thumbnail as a data URL.
func (l *Library) ThumbnailDataURL(path string) (string, error) {
	url, err := l.thumbnails.ReadDataURL(path)
	if err != nil {
		return "", fmt.Errorf("%w: thumbnail %s: %w", model.ErrNotFound, path, err)
	}
	return url, nil
}

// SweepThumbnails removes cache files that no bookmark references.
func (l *Library) SweepThumbnails(ctx context.Context) (thumbnail.SweepResult, error) {
	return l.thumbnails.SweepOrphans(ctx, l.bookmarks.ThumbnailPaths())
}
