package search

import (
	"fmt"
	"path/filepath"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/sahilm/fuzzy"
)

// Kind tells what a search entry points at.
type Kind int

const (
	KindBookmark Kind = iota // a bookmark inside a PDF
	KindPdf                  // a recent PDF, matched by file name
)

func (k Kind) String() string {
	if k == KindPdf {
		return "pdf"
	}
	return "bookmark"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is a searchable item.
type Entry struct {
	Kind       Kind   `json:"kind" yaml:"kind"`
	PdfPath    string `json:"pdfPath" yaml:"pdfPath"`
	Page       int    `json:"page,omitempty" yaml:"page,omitempty"`
	BookmarkID string `json:"bookmarkId,omitempty" yaml:"bookmarkId,omitempty"`
	Text       string `json:"text" yaml:"text"` // what the query is matched against
}

// Label returns a one-line description for lists.
func (e Entry) Label() string {
	if e.Kind == KindPdf {
		return fmt.Sprintf("%s  (%s)", e.Text, filepath.Dir(e.PdfPath))
	}
	return fmt.Sprintf("%s  (%s, p. %d)", e.Text, filepath.Base(e.PdfPath), e.Page)
}

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Entry          Entry `json:"entry" yaml:"entry"`
	MatchedIndexes []int `json:"-" yaml:"-"`
	Score          int   `json:"score" yaml:"score"`
}

// entryTexts implements fuzzy.Source for an entry slice.
type entryTexts []Entry

func (et entryTexts) String(i int) string {
	return et[i].Text
}

func (et entryTexts) Len() int {
	return len(et)
}

// Entries collects the searchable items of doc: every bookmark title (records in
// path order, bookmarks in list order) followed by recent PDF file names.
func Entries(doc *model.Document) []Entry {
	var entries []Entry
	for _, path := range doc.RecordPaths() {
		for _, b := range doc.Bookmarks[path].Bookmarks {
			entries = append(entries, Entry{
				Kind:       KindBookmark,
				PdfPath:    path,
				Page:       b.Page,
				BookmarkID: b.ID,
				Text:       b.Title,
			})
		}
	}
	for _, path := range doc.RecentPdfs {
		entries = append(entries, Entry{Kind: KindPdf, PdfPath: path, Text: filepath.Base(path)})
	}
	return entries
}

// FuzzySearch searches bookmark titles and recent PDF names using fuzzy
// matching. Returns results sorted by match score (best first).
func FuzzySearch(doc *model.Document, query string) []SearchResult {
	if query == "" {
		return nil
	}

	entries := entryTexts(Entries(doc))

	// Run fuzzy matching
	matches := fuzzy.FindFrom(query, entries)

	// Convert to SearchResult
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{
			Entry:          entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
