package recent

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
)

// Entry is one row of the recent files list.
type Entry struct {
	Path          string     `json:"path" yaml:"path"`
	Name          string     `json:"name" yaml:"name"`
	Exists        bool       `json:"exists" yaml:"exists"`
	LastOpened    *time.Time `json:"lastOpened,omitempty" yaml:"lastOpened,omitempty"`
	BookmarkCount int        `json:"bookmarkCount" yaml:"bookmarkCount"`
}

// Tracker maintains the most-recently-used PDF list.
type Tracker struct {
	store *storage.ConfigStore
	stat  func(string) (os.FileInfo, error)
}

// NewTracker creates a Tracker on top of store.
func NewTracker(store *storage.ConfigStore) *Tracker {
	return &Tracker{store: store, stat: os.Stat}
}

// Add moves pdfPath to the front of the list, truncated to the store's bound.
func (t *Tracker) Add(pdfPath string) error {
	return t.store.Mutate(func(doc *model.Document) error {
		if len(doc.RecentPdfs) > 0 && doc.RecentPdfs[0] == pdfPath {
			return storage.ErrUnchanged
		}
		Push(doc, pdfPath, t.store.MaxRecent())
		return nil
	})
}

// Remove drops pdfPath from the list. Bookmarks and thumbnails are left alone.
func (t *Tracker) Remove(pdfPath string) error {
	return t.store.Mutate(func(doc *model.Document) error {
		if !Drop(doc, pdfPath) {
			return storage.ErrUnchanged
		}
		return nil
	})
}

// Paths returns the recent paths, most recent first.
func (t *Tracker) Paths() []string {
	var paths []string
	t.store.View(func(doc *model.Document) {
		paths = slices.Clone(doc.RecentPdfs)
	})
	if paths == nil {
		paths = []string{}
	}
	return paths
}

// List returns the recent files with metadata. File existence is checked on
// every call.
func (t *Tracker) List() []Entry {
	entries := []Entry{}
	t.store.View(func(doc *model.Document) {
		for _, path := range doc.RecentPdfs {
			e := Entry{Path: path, Name: filepath.Base(path)}
			if rec := doc.Record(path); rec != nil {
				if rec.LastOpened != nil {
					opened := *rec.LastOpened
					e.LastOpened = &opened
				}
				e.BookmarkCount = len(rec.Bookmarks)
			}
			entries = append(entries, e)
		}
	})

	// stat outside the document lock
	for i := range entries {
		info, err := t.stat(entries[i].Path)
		entries[i].Exists = err == nil && info.Mode().IsRegular()
	}
	return entries
}

// Push inserts pdfPath at the front of doc's recent list, removing any earlier
// occurrence and truncating to maxRecent.
func Push(doc *model.Document, pdfPath string, maxRecent int) {
	if maxRecent <= 0 {
		maxRecent = model.DefaultMaxRecent
	}
	list := make([]string, 0, len(doc.RecentPdfs)+1)
	list = append(list, pdfPath)
	for _, p := range doc.RecentPdfs {
		if p != pdfPath {
			list = append(list, p)
		}
	}
	if len(list) > maxRecent {
		list = list[:maxRecent]
	}
	doc.RecentPdfs = list
}

// Drop removes pdfPath from doc's recent list and reports whether it was there.
func Drop(doc *model.Document, pdfPath string) bool {
	n := len(doc.RecentPdfs)
	doc.RecentPdfs = slices.DeleteFunc(doc.RecentPdfs, func(p string) bool { return p == pdfPath })
	return len(doc.RecentPdfs) != n
}
