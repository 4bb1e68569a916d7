package model

import (
	"slices"
	"sort"
	"time"
)

const (
	// CurrentVersion is the schema version written by this build.
	CurrentVersion = "1.1"
	// DefaultMaxRecent bounds the recent PDF list.
	DefaultMaxRecent = 20
)

// PdfRecord is the metadata kept for one PDF path.
type PdfRecord struct {
	Hash       string     `json:"hash" yaml:"hash"` // MD5 hex of the file at last open, "" if never opened
	LastOpened *time.Time `json:"lastOpened" yaml:"lastOpened"`
	Bookmarks  []Bookmark `json:"bookmarks" yaml:"bookmarks"`
}

// NewPdfRecord creates an empty record.
func NewPdfRecord() *PdfRecord {
	return &PdfRecord{Bookmarks: []Bookmark{}}
}

// Clone returns a deep copy of the record.
func (r *PdfRecord) Clone() *PdfRecord {
	c := &PdfRecord{Hash: r.Hash, Bookmarks: make([]Bookmark, len(r.Bookmarks))}
	if r.LastOpened != nil {
		t := *r.LastOpened
		c.LastOpened = &t
	}
	for i, b := range r.Bookmarks {
		c.Bookmarks[i] = b.Clone()
	}
	return c
}

// BookmarkIndex returns the index of the bookmark with the given ID, or -1.
func (r *PdfRecord) BookmarkIndex(id string) int {
	for i := range r.Bookmarks {
		if r.Bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

// Document is the root persisted entity (config.json).
type Document struct {
	Version    string                `json:"version" yaml:"version"`
	RecentPdfs []string              `json:"recentPdfs" yaml:"recentPdfs"`
	Bookmarks  map[string]*PdfRecord `json:"bookmarks" yaml:"bookmarks"`
	Folders    map[string]*Folder    `json:"folders" yaml:"folders"`
}

// NewDocument creates an empty Document at the current schema version.
func NewDocument() *Document {
	return &Document{
		Version:    CurrentVersion,
		RecentPdfs: []string{},
		Bookmarks:  map[string]*PdfRecord{},
		Folders:    map[string]*Folder{},
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		Version:    d.Version,
		RecentPdfs: append([]string{}, d.RecentPdfs...),
		Bookmarks:  make(map[string]*PdfRecord, len(d.Bookmarks)),
		Folders:    make(map[string]*Folder, len(d.Folders)),
	}
	for path, rec := range d.Bookmarks {
		c.Bookmarks[path] = rec.Clone()
	}
	for id, f := range d.Folders {
		fc := f.Clone()
		c.Folders[id] = &fc
	}
	return c
}

// Record returns the record for path, or nil if none exists.
func (d *Document) Record(path string) *PdfRecord {
	return d.Bookmarks[path]
}

// EnsureRecord returns the record for path, creating it if absent.
func (d *Document) EnsureRecord(path string) *PdfRecord {
	rec, ok := d.Bookmarks[path]
	if !ok {
		rec = NewPdfRecord()
		d.Bookmarks[path] = rec
	}
	return rec
}

// AssignedPdfs returns the union of pdfPaths across all folders.
func (d *Document) AssignedPdfs() map[string]struct{} {
	assigned := make(map[string]struct{})
	for _, f := range d.Folders {
		for _, p := range f.PdfPaths {
			assigned[p] = struct{}{}
		}
	}
	return assigned
}

// ThumbnailPaths returns every thumbnail path referenced by a bookmark.
func (d *Document) ThumbnailPaths() []string {
	var paths []string
	for _, rec := range d.Bookmarks {
		for _, b := range rec.Bookmarks {
			if b.ThumbnailPath != nil && *b.ThumbnailPath != "" {
				paths = append(paths, *b.ThumbnailPath)
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// RootFolders returns root-level folders sorted by name.
func (d *Document) RootFolders() []Folder {
	var roots []Folder
	for _, id := range sortedKeys(d.Folders) {
		if f := d.Folders[id]; f.IsRoot() {
			roots = append(roots, f.Clone())
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots
}

// RecordPaths returns the paths of all records, sorted.
func (d *Document) RecordPaths() []string {
	return sortedKeys(d.Bookmarks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
