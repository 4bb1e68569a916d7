// Package library implements the workflows the viewer calls: opening and
// verifying PDFs, the three removal operations, validated bookmark edits and
// the thumbnail lifecycle.
package library

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/bookmarks"
	"github.com/nikbrunner/pdfshelf/internal/folders"
	"github.com/nikbrunner/pdfshelf/internal/logger"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/recent"
	"github.com/nikbrunner/pdfshelf/internal/storage"
	"github.com/nikbrunner/pdfshelf/internal/thumbnail"
	"github.com/nikbrunner/pdfshelf/internal/verify"
)

// DefaultVerifyConcurrency is the worker count of VerifyRecent.
const DefaultVerifyConcurrency = 4

// Options configures a Library.
type Options struct {
	Store             *storage.ConfigStore
	ThumbnailDir      string
	Logger            logger.Logger
	VerifyConcurrency int
	Now               func() time.Time
}

// Library ties the components together on one ConfigStore.
type Library struct {
	store      *storage.ConfigStore
	bookmarks  *bookmarks.Registry
	folders    *folders.Hierarchy
	recent     *recent.Tracker
	thumbnails *thumbnail.Store
	log        logger.Logger
	now        func() time.Time
	workers    int
}

// New creates a Library. The store must already be loaded.
func New(opts Options) *Library {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	workers := opts.VerifyConcurrency
	if workers <= 0 {
		workers = DefaultVerifyConcurrency
	}

	return &Library{
		store:      opts.Store,
		bookmarks:  bookmarks.NewRegistry(opts.Store).WithClock(now),
		folders:    folders.NewHierarchy(opts.Store),
		recent:     recent.NewTracker(opts.Store),
		thumbnails: thumbnail.New(opts.ThumbnailDir, log),
		log:        log,
		now:        now,
		workers:    workers,
	}
}

// Store returns the underlying ConfigStore.
func (l *Library) Store() *storage.ConfigStore { return l.store }

// Bookmarks returns the bookmark registry, without the library's title validation.
func (l *Library) Bookmarks() *bookmarks.Registry { return l.bookmarks }

// Folders returns the folder hierarchy.
func (l *Library) Folders() *folders.Hierarchy { return l.folders }

// Recent returns the recent files tracker.
func (l *Library) Recent() *recent.Tracker { return l.recent }

// Thumbnails returns the thumbnail cache.
func (l *Library) Thumbnails() *thumbnail.Store { return l.thumbnails }

// Logger returns the library's logger.
func (l *Library) Logger() logger.Logger { return l.log }

// Close flushes pending changes.
func (l *Library) Close() error {
	return l.store.Close()
}

// OpenResult is returned by Open.
type OpenResult struct {
	Path        string           `json:"path" yaml:"path"`
	Data        []byte           `json:"-" yaml:"-"`
	Size        int              `json:"size" yaml:"size"`
	Hash        string           `json:"hash" yaml:"hash"`
	HashChanged bool             `json:"hashChanged" yaml:"hashChanged"`
	Bookmarks   []model.Bookmark `json:"bookmarks" yaml:"bookmarks"`
}

// Open reads a PDF, reports whether its content changed since the last open and
// records it as the most recent file.
func (l *Library) Open(path string) (OpenResult, error) {
	if err := verify.ValidatePath(path); err != nil {
		return OpenResult{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return OpenResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])
	opened := l.now()

	result := OpenResult{Path: path, Data: data, Size: len(data), Hash: hash}
	err = l.store.Mutate(func(doc *model.Document) error {
		if rec := doc.Record(path); rec != nil {
			result.HashChanged = rec.Hash != "" && rec.Hash != hash
		}
		recent.Push(doc, path, l.store.MaxRecent())
		rec := doc.EnsureRecord(path)
		rec.Hash = hash
		rec.LastOpened = &opened

		result.Bookmarks = make([]model.Bookmark, len(rec.Bookmarks))
		for i, b := range rec.Bookmarks {
			result.Bookmarks[i] = b.Clone()
		}
		return nil
	})
	if err != nil {
		return OpenResult{}, err
	}

	if result.HashChanged {
		l.log.Info("PDF changed since last open", logger.String("path", path))
	}
	return result, nil
}

// Verify checks a PDF against its stored hash without changing anything.
func (l *Library) Verify(path string) verify.Result {
	return verify.Check(verify.Target{Path: path, StoredHash: l.storedHash(path)})
}

// VerifyRecent verifies every recent PDF concurrently.
func (l *Library) VerifyRecent(ctx context.Context, onProgress verify.ProgressFunc) []verify.Result {
	var targets []verify.Target
	l.store.View(func(doc *model.Document) {
		for _, path := range doc.RecentPdfs {
			target := verify.Target{Path: path}
			if rec := doc.Record(path); rec != nil {
				target.StoredHash = rec.Hash
			}
			targets = append(targets, target)
		}
	})

	results := verify.CheckFiles(ctx, targets, l.workers, onProgress)

	counts := map[verify.Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	l.log.Info("verification completed",
		logger.Int("total", len(results)),
		logger.Int("healthy", counts[verify.Healthy]),
		logger.Int("changed", counts[verify.Changed]),
		logger.Int("missing", counts[verify.Missing]),
		logger.Int("unreadable", counts[verify.Unreadable]))
	return results
}

func (l *Library) storedHash(path string) string {
	var hash string
	l.store.View(func(doc *model.Document) {
		if rec := doc.Record(path); rec != nil {
			hash = rec.Hash
		}
	})
	return hash
}

// RemoveFromRecent drops the path from the history only.
func (l *Library) RemoveFromRecent(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", model.ErrInvalidPath)
	}
	return l.recent.Remove(path)
}

// CascadeFailure is a thumbnail that could not be removed during a cascade.
type CascadeFailure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
	Err   error  `json:"-" yaml:"-"`
}

// RemovalResult is returned by Forget and Delete.
type RemovalResult struct {
	Path              string           `json:"path" yaml:"path"`
	FileExisted       bool             `json:"fileExisted" yaml:"fileExisted"`
	BookmarksRemoved  int              `json:"bookmarksRemoved" yaml:"bookmarksRemoved"`
	ThumbnailsDeleted int              `json:"thumbnailsDeleted" yaml:"thumbnailsDeleted"`
	FoldersUnassigned int              `json:"foldersUnassigned" yaml:"foldersUnassigned"`
	Failures          []CascadeFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Forget wipes the PDF's bookmarks, thumbnails and history entry. The file on
// disk and its folder assignments are kept. The change is saved before Forget
// returns; thumbnail failures are reported in the result.
func (l *Library) Forget(path string) (RemovalResult, error) {
	if strings.TrimSpace(path) == "" {
		return RemovalResult{}, fmt.Errorf("%w: empty path", model.ErrInvalidPath)
	}
	result := RemovalResult{Path: path}

	var thumbs []string
	err := l.store.MutateNow(func(doc *model.Document) error {
		thumbs, result.BookmarksRemoved = forget(doc, path)
		return nil
	})
	if err != nil {
		return result, err
	}

	l.cascadeThumbnails(&result, thumbs)
	l.log.Info("PDF forgotten",
		logger.String("path", path),
		logger.Int("thumbnails_deleted", result.ThumbnailsDeleted))
	return result, nil
}

// Delete removes the PDF file from disk and then forgets it, also removing it
// from every folder. A file that is already gone is not an error.
func (l *Library) Delete(path string) (RemovalResult, error) {
	if strings.TrimSpace(path) == "" {
		return RemovalResult{}, fmt.Errorf("%w: empty path", model.ErrInvalidPath)
	}
	result := RemovalResult{Path: path}

	err := os.Remove(path)
	switch {
	case err == nil:
		result.FileExisted = true
	case errors.Is(err, fs.ErrNotExist):
		l.log.Debug("PDF already absent from disk", logger.String("path", path))
	case errors.Is(err, fs.ErrPermission):
		return result, fmt.Errorf("%w: %w", model.ErrPermissionDenied, err)
	default:
		return result, fmt.Errorf("delete %s: %w", path, err)
	}

	var thumbs []string
	err = l.store.MutateNow(func(doc *model.Document) error {
		thumbs, result.BookmarksRemoved = forget(doc, path)
		result.FoldersUnassigned = folders.UnassignAll(doc, path)
		return nil
	})
	if err != nil {
		return result, err
	}

	l.cascadeThumbnails(&result, thumbs)
	l.log.Info("PDF deleted",
		logger.String("path", path),
		logger.Bool("file_existed", result.FileExisted),
		logger.Int("thumbnails_deleted", result.ThumbnailsDeleted))
	return result, nil
}

// forget removes the record and history entry of path and returns the thumbnail
// paths no other bookmark references.
func forget(doc *model.Document, path string) ([]string, int) {
	var thumbs []string
	count := 0
	if rec := doc.Record(path); rec != nil {
		count = len(rec.Bookmarks)
		for _, b := range rec.Bookmarks {
			if b.ThumbnailPath != nil && !slices.Contains(thumbs, *b.ThumbnailPath) {
				thumbs = append(thumbs, *b.ThumbnailPath)
			}
		}
		delete(doc.Bookmarks, path)
	}
	recent.Drop(doc, path)

	still := doc.ThumbnailPaths()
	thumbs = slices.DeleteFunc(thumbs, func(p string) bool {
		_, found := slices.BinarySearch(still, p)
		return found
	})
	return thumbs, count
}

func (l *Library) cascadeThumbnails(result *RemovalResult, thumbs []string) {
	failed := l.thumbnails.DeleteAll(thumbs)
	result.ThumbnailsDeleted = len(thumbs) - len(failed)
	for _, p := range thumbs {
		if err, ok := failed[p]; ok {
			result.Failures = append(result.Failures, CascadeFailure{Path: p, Error: err.Error(), Err: err})
		}
	}
}

// Orphans returns the recent PDFs that are not assigned to any folder, in
// recent order.
func (l *Library) Orphans() []string {
	orphans := []string{}
	l.store.View(func(doc *model.Document) {
		assigned := doc.AssignedPdfs()
		for _, path := range doc.RecentPdfs {
			if _, ok := assigned[path]; !ok {
				orphans = append(orphans, path)
			}
		}
	})
	return orphans
}
