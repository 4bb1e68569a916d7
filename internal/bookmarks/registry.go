package bookmarks

import (
	"fmt"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
)

// Registry manages the ordered bookmark list of each PDF.
type Registry struct {
	store *storage.ConfigStore
	now   func() time.Time
}

// NewRegistry creates a Registry on top of store.
func NewRegistry(store *storage.ConfigStore) *Registry {
	return &Registry{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the registry using now for timestamps.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	c := *r
	c.now = now
	return &c
}

// Update holds optional bookmark field changes. Nil fields are left untouched.
type Update struct {
	Title         *string
	ThumbnailPath **string // set to a nil *string to clear the thumbnail
}

// Deleted is returned by Delete so the caller can remove the thumbnail file.
type Deleted struct {
	Bookmark      model.Bookmark
	ThumbnailPath *string
}

// Add appends a bookmark for page to the PDF's list and returns it together
// with the updated list. A blank title becomes "Page N".
func (r *Registry) Add(pdfPath string, page int, title string) (model.Bookmark, []model.Bookmark, error) {
	if page < 1 {
		return model.Bookmark{}, nil, fmt.Errorf("%w: page must be positive, got %d", model.ErrValidation, page)
	}

	b := model.NewBookmark(model.NewBookmarkParams{
		Page:      page,
		Title:     title,
		CreatedAt: r.now(),
	})

	var list []model.Bookmark
	err := r.store.Mutate(func(doc *model.Document) error {
		rec := doc.EnsureRecord(pdfPath)
		rec.Bookmarks = append(rec.Bookmarks, b)
		list = cloneList(rec.Bookmarks)
		return nil
	})
	if err != nil {
		return model.Bookmark{}, nil, err
	}
	return b.Clone(), list, nil
}

// Update changes the title and/or thumbnail path of a bookmark. A blank title is
// coerced to "Page N" rather than rejected.
func (r *Registry) Update(pdfPath, bookmarkID string, upd Update) (model.Bookmark, error) {
	var updated model.Bookmark
	err := r.store.Mutate(func(doc *model.Document) error {
		b, err := findBookmark(doc, pdfPath, bookmarkID)
		if err != nil {
			return err
		}
		if upd.Title != nil {
			b.Title = model.NormalizeTitle(*upd.Title, b.Page)
		}
		if upd.ThumbnailPath != nil {
			b.ThumbnailPath = model.CopyPtr(*upd.ThumbnailPath)
		}
		updated = b.Clone()
		return nil
	})
	if err != nil {
		return model.Bookmark{}, err
	}
	return updated, nil
}

// Delete removes a bookmark and returns it with its thumbnail path (possibly nil).
func (r *Registry) Delete(pdfPath, bookmarkID string) (Deleted, error) {
	var deleted Deleted
	err := r.store.Mutate(func(doc *model.Document) error {
		rec := doc.Record(pdfPath)
		if rec == nil {
			return fmt.Errorf("%w: no record for PDF %q", model.ErrNotFound, pdfPath)
		}
		idx := rec.BookmarkIndex(bookmarkID)
		if idx < 0 {
			return fmt.Errorf("%w: bookmark %q", model.ErrNotFound, bookmarkID)
		}

		b := rec.Bookmarks[idx].Clone()
		rec.Bookmarks = append(rec.Bookmarks[:idx], rec.Bookmarks[idx+1:]...)
		deleted = Deleted{Bookmark: b, ThumbnailPath: b.ThumbnailPath}
		return nil
	})
	if err != nil {
		return Deleted{}, err
	}
	return deleted, nil
}

// Reorder rebuilds the list in the order of orderedIDs. Unknown IDs are ignored
// and bookmarks not mentioned keep their relative order after the listed ones.
// It does nothing if the PDF has no record.
func (r *Registry) Reorder(pdfPath string, orderedIDs []string) ([]model.Bookmark, error) {
	var list []model.Bookmark
	err := r.store.Mutate(func(doc *model.Document) error {
		rec := doc.Record(pdfPath)
		if rec == nil {
			list = []model.Bookmark{}
			return storage.ErrUnchanged
		}
		rec.Bookmarks = reorder(rec.Bookmarks, orderedIDs)
		list = cloneList(rec.Bookmarks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// List returns the PDF's bookmarks, or an empty list if it has no record.
func (r *Registry) List(pdfPath string) []model.Bookmark {
	list := []model.Bookmark{}
	r.store.View(func(doc *model.Document) {
		if rec := doc.Record(pdfPath); rec != nil {
			list = cloneList(rec.Bookmarks)
		}
	})
	return list
}

// Record returns a copy of the PDF's record, or nil.
func (r *Registry) Record(pdfPath string) *model.PdfRecord {
	var rec *model.PdfRecord
	r.store.View(func(doc *model.Document) {
		if found := doc.Record(pdfPath); found != nil {
			rec = found.Clone()
		}
	})
	return rec
}

// UpdateMetadata stores the hash and last-opened time, creating the record if needed.
func (r *Registry) UpdateMetadata(pdfPath, hash string, lastOpened time.Time) error {
	return r.store.Mutate(func(doc *model.Document) error {
		rec := doc.EnsureRecord(pdfPath)
		rec.Hash = hash
		rec.LastOpened = &lastOpened
		return nil
	})
}

// ThumbnailPaths returns every thumbnail path referenced by any bookmark.
func (r *Registry) ThumbnailPaths() []string {
	var paths []string
	r.store.View(func(doc *model.Document) {
		paths = doc.ThumbnailPaths()
	})
	return paths
}

// FindByPage returns the bookmarks of pdfPath that point at page.
func (r *Registry) FindByPage(pdfPath string, page int) []model.Bookmark {
	var found []model.Bookmark
	for _, b := range r.List(pdfPath) {
		if b.Page == page {
			found = append(found, b)
		}
	}
	return found
}

// HasBookmark reports whether pdfPath already has a bookmark with this page and
// title. A blank title matches the default "Page N" title, as Add would store it.
func (r *Registry) HasBookmark(pdfPath string, page int, title string) bool {
	title = model.NormalizeTitle(title, page)
	for _, b := range r.FindByPage(pdfPath, page) {
		if b.Title == title {
			return true
		}
	}
	return false
}

func findBookmark(doc *model.Document, pdfPath, bookmarkID string) (*model.Bookmark, error) {
	rec := doc.Record(pdfPath)
	if rec == nil {
		return nil, fmt.Errorf("%w: no record for PDF %q", model.ErrNotFound, pdfPath)
	}
	idx := rec.BookmarkIndex(bookmarkID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: bookmark %q", model.ErrNotFound, bookmarkID)
	}
	return &rec.Bookmarks[idx], nil
}

func reorder(list []model.Bookmark, orderedIDs []string) []model.Bookmark {
	byID := make(map[string]model.Bookmark, len(list))
	for _, b := range list {
		byID[b.ID] = b
	}

	result := make([]model.Bookmark, 0, len(list))
	for _, id := range orderedIDs {
		if b, ok := byID[id]; ok {
			result = append(result, b)
			delete(byID, id)
		}
	}
	for _, b := range list {
		if _, ok := byID[b.ID]; ok {
			result = append(result, b)
		}
	}
	return result
}

func cloneList(list []model.Bookmark) []model.Bookmark {
	out := make([]model.Bookmark, len(list))
	for i, b := range list {
		out[i] = b.Clone()
	}
	return out
}
