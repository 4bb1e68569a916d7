package model

import (
	"fmt"
	"strings"
	"time"
)

// Bookmark marks a page of a PDF.
type Bookmark struct {
	ID            string    `json:"id" yaml:"id"`
	Page          int       `json:"page" yaml:"page"`
	Title         string    `json:"title" yaml:"title"`
	ThumbnailPath *string   `json:"thumbnailPath" yaml:"thumbnailPath"` // nil until a thumbnail is generated
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Page      int
	Title     string
	CreatedAt time.Time
}

// NewBookmark creates a Bookmark with a generated UUID and a normalized title.
func NewBookmark(params NewBookmarkParams) Bookmark {
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return Bookmark{
		ID:            GenerateUUID(),
		Page:          params.Page,
		Title:         NormalizeTitle(params.Title, params.Page),
		ThumbnailPath: nil,
		CreatedAt:     createdAt,
	}
}

// DefaultTitle returns the title used when none is given: "Page N".
func DefaultTitle(page int) string {
	return fmt.Sprintf("Page %d", page)
}

// NormalizeTitle returns title, or the default title when title is blank.
func NormalizeTitle(title string, page int) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle(page)
	}
	return title
}

// Clone returns a deep copy of the bookmark.
func (b Bookmark) Clone() Bookmark {
	b.ThumbnailPath = CopyPtr(b.ThumbnailPath)
	return b
}
