package bookmarks_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/pdfshelf/internal/bookmarks"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
)

const pdf = "/docs/a.pdf"

func newRegistry(t *testing.T) (*bookmarks.Registry, *storage.ConfigStore) {
	t.Helper()
	store := storage.Open(storage.Options{Dir: t.TempDir(), SaveDelay: time.Hour})
	t.Cleanup(func() { _ = store.Close() })
	return bookmarks.NewRegistry(store), store
}

func ids(list []model.Bookmark) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestRegistry_AddDefaultsTitle(t *testing.T) {
	reg, _ := newRegistry(t)

	b, list, err := reg.Add(pdf, 5, "")
	assert.NilError(t, err)
	assert.Equal(t, b.Title, "Page 5")
	assert.Equal(t, b.Page, 5)
	assert.Check(t, is.Len(list, 1))
	assert.Equal(t, reg.List(pdf)[0].Title, "Page 5")
}

func TestRegistry_AddAppendsInInsertionOrder(t *testing.T) {
	reg, store := newRegistry(t)

	first, _, err := reg.Add(pdf, 10, "Ten")
	assert.NilError(t, err)
	second, _, err := reg.Add(pdf, 2, "Two")
	assert.NilError(t, err)
	third, list, err := reg.Add(pdf, 10, "Ten again")
	assert.NilError(t, err)

	// not sorted by page, duplicates per page allowed
	assert.DeepEqual(t, ids(list), []string{first.ID, second.ID, third.ID})
	assert.Check(t, is.Len(reg.FindByPage(pdf, 10), 2))
	assert.Assert(t, store.Dirty())
}

func TestRegistry_AddRejectsNonPositivePage(t *testing.T) {
	reg, _ := newRegistry(t)

	_, _, err := reg.Add(pdf, 0, "x")
	assert.Assert(t, errors.Is(err, model.ErrValidation))
	assert.Assert(t, reg.Record(pdf) == nil, "record must not be created")
}

func TestRegistry_AddUsesClock(t *testing.T) {
	reg, _ := newRegistry(t)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	reg = reg.WithClock(func() time.Time { return fixed })

	b, _, err := reg.Add(pdf, 1, "x")
	assert.NilError(t, err)
	assert.Assert(t, b.CreatedAt.Equal(fixed))
}

func TestRegistry_Update(t *testing.T) {
	reg, _ := newRegistry(t)
	b, _, err := reg.Add(pdf, 4, "Old")
	assert.NilError(t, err)

	thumb := "/thumbs/x_page4.jpg"
	thumbPtr := &thumb
	updated, err := reg.Update(pdf, b.ID, bookmarks.Update{Title: strPtr("New"), ThumbnailPath: &thumbPtr})
	assert.NilError(t, err)
	assert.Equal(t, updated.Title, "New")
	assert.Equal(t, *updated.ThumbnailPath, thumb)

	updated, err = reg.Update(pdf, b.ID, bookmarks.Update{Title: strPtr("   ")})
	assert.NilError(t, err)
	assert.Equal(t, updated.Title, "Page 4")
	assert.Equal(t, *updated.ThumbnailPath, thumb, "untouched field kept")

	var cleared *string
	updated, err = reg.Update(pdf, b.ID, bookmarks.Update{ThumbnailPath: &cleared})
	assert.NilError(t, err)
	assert.Assert(t, updated.ThumbnailPath == nil)
}

func TestRegistry_NotFound(t *testing.T) {
	reg, _ := newRegistry(t)
	b, _, err := reg.Add(pdf, 1, "x")
	assert.NilError(t, err)

	tests := []struct {
		name string
		run  func() error
	}{
		{"update unknown pdf", func() error {
			_, err := reg.Update("/other.pdf", b.ID, bookmarks.Update{Title: strPtr("y")})
			return err
		}},
		{"update unknown bookmark", func() error {
			_, err := reg.Update(pdf, "missing", bookmarks.Update{Title: strPtr("y")})
			return err
		}},
		{"delete unknown pdf", func() error {
			_, err := reg.Delete("/other.pdf", b.ID)
			return err
		}},
		{"delete unknown bookmark", func() error {
			_, err := reg.Delete(pdf, "missing")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Assert(t, errors.Is(tt.run(), model.ErrNotFound))
			assert.DeepEqual(t, ids(reg.List(pdf)), []string{b.ID})
			assert.Equal(t, reg.List(pdf)[0].Title, "x")
		})
	}
}

func TestRegistry_DeleteReturnsThumbnail(t *testing.T) {
	reg, _ := newRegistry(t)
	withThumb, _, _ := reg.Add(pdf, 1, "one")
	without, _, _ := reg.Add(pdf, 2, "two")
	thumb := "/thumbs/t.jpg"
	p := &thumb
	_, err := reg.Update(pdf, withThumb.ID, bookmarks.Update{ThumbnailPath: &p})
	assert.NilError(t, err)

	deleted, err := reg.Delete(pdf, withThumb.ID)
	assert.NilError(t, err)
	assert.Equal(t, deleted.Bookmark.ID, withThumb.ID)
	assert.Equal(t, *deleted.ThumbnailPath, thumb)

	deleted, err = reg.Delete(pdf, without.ID)
	assert.NilError(t, err)
	assert.Assert(t, deleted.ThumbnailPath == nil)
	assert.Check(t, is.Len(reg.List(pdf), 0))
}

func TestRegistry_ReorderPreservesOmitted(t *testing.T) {
	reg, _ := newRegistry(t)
	var all []string
	for page := 1; page <= 4; page++ {
		b, _, err := reg.Add(pdf, page, "")
		assert.NilError(t, err)
		all = append(all, b.ID)
	}

	list, err := reg.Reorder(pdf, []string{all[3], "unknown", all[1]})
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(list), []string{all[3], all[1], all[0], all[2]})
	assert.DeepEqual(t, ids(reg.List(pdf)), []string{all[3], all[1], all[0], all[2]})
}

func TestRegistry_ReorderUnknownPdfIsNoop(t *testing.T) {
	reg, store := newRegistry(t)

	list, err := reg.Reorder("/missing.pdf", []string{"a"})
	assert.NilError(t, err)
	assert.Check(t, is.Len(list, 0))
	assert.Assert(t, !store.Dirty())
	assert.Assert(t, reg.Record("/missing.pdf") == nil)
}

func TestRegistry_ListUnknownPdfIsEmpty(t *testing.T) {
	reg, _ := newRegistry(t)
	list := reg.List("/nothing.pdf")
	assert.Assert(t, list != nil)
	assert.Check(t, is.Len(list, 0))
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	reg, _ := newRegistry(t)
	_, _, err := reg.Add(pdf, 1, "Original")
	assert.NilError(t, err)

	list := reg.List(pdf)
	list[0].Title = "Mutated"
	assert.Equal(t, reg.List(pdf)[0].Title, "Original")
}

func TestRegistry_UpdateMetadataCreatesRecord(t *testing.T) {
	reg, _ := newRegistry(t)
	opened := time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC)

	assert.NilError(t, reg.UpdateMetadata(pdf, "abc", opened))
	rec := reg.Record(pdf)
	assert.Assert(t, rec != nil)
	assert.Equal(t, rec.Hash, "abc")
	assert.Assert(t, rec.LastOpened.Equal(opened))
	assert.Check(t, is.Len(rec.Bookmarks, 0))
}

func TestRegistry_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		reg, _ := newRegistry(t)
		expected := map[string]bool{}

		for step := 0; step < 60; step++ {
			current := ids(reg.List(pdf))
			switch op := rng.Intn(3); {
			case op == 0 || len(current) == 0:
				titles := []string{"", " ", "Chapter", "\t"}
				b, _, err := reg.Add(pdf, rng.Intn(30)+1, titles[rng.Intn(len(titles))])
				assert.NilError(t, err)
				expected[b.ID] = true
			case op == 1:
				victim := current[rng.Intn(len(current))]
				_, err := reg.Delete(pdf, victim)
				assert.NilError(t, err)
				delete(expected, victim)
			default:
				rng.Shuffle(len(current), func(i, j int) { current[i], current[j] = current[j], current[i] })
				_, err := reg.Reorder(pdf, current[:rng.Intn(len(current)+1)])
				assert.NilError(t, err)
			}
		}

		list := reg.List(pdf)
		assert.Equal(t, len(list), len(expected))
		for _, b := range list {
			assert.Assert(t, expected[b.ID], "unexpected bookmark %s", b.ID)
			assert.Assert(t, strings.TrimSpace(b.Title) != "", "empty title on %s", b.ID)
		}
	}
}

func TestRegistry_UpdateDoesNotRetainCallerPointer(t *testing.T) {
	reg, _ := newRegistry(t)
	b, _, err := reg.Add(pdf, 2, "Two")
	assert.NilError(t, err)

	thumb := "/thumbs/x_page2.jpg"
	p := &thumb
	_, err = reg.Update(pdf, b.ID, bookmarks.Update{ThumbnailPath: &p})
	assert.NilError(t, err)
	thumb = "/elsewhere.jpg"

	assert.Equal(t, *reg.List(pdf)[0].ThumbnailPath, "/thumbs/x_page2.jpg")
}

func TestRegistry_HasBookmarkMatchesStoredTitle(t *testing.T) {
	reg, _ := newRegistry(t)
	_, _, err := reg.Add(pdf, 3, "Intro ")
	assert.NilError(t, err)
	_, _, err = reg.Add(pdf, 4, "")
	assert.NilError(t, err)

	tests := []struct {
		name  string
		page  int
		title string
		want  bool
	}{
		{name: "exact title", page: 3, title: "Intro ", want: true},
		{name: "differs by whitespace", page: 3, title: "Intro", want: false},
		{name: "other page", page: 5, title: "Intro ", want: false},
		{name: "blank matches default", page: 4, title: "  ", want: true},
		{name: "default title", page: 4, title: "Page 4", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, reg.HasBookmark(pdf, tt.page, tt.title), tt.want)
		})
	}
}
