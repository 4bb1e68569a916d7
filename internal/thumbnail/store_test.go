package thumbnail_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/pdfshelf/internal/thumbnail"
)

func newStore(t *testing.T) *thumbnail.Store {
	t.Helper()
	return thumbnail.New(filepath.Join(t.TempDir(), thumbnail.Dir), nil)
}

func TestFilename_IsDeterministic(t *testing.T) {
	name := thumbnail.Filename("/docs/a.pdf", 3)
	assert.Equal(t, name, thumbnail.Filename("/docs/a.pdf", 3))
	assert.Assert(t, regexp.MustCompile(`^[0-9a-f]{12}_page3\.jpg$`).MatchString(name), name)

	assert.Assert(t, name != thumbnail.Filename("/docs/a.pdf", 4))
	assert.Assert(t, name != thumbnail.Filename("/docs/b.pdf", 3))
}

func TestFilename_KnownHash(t *testing.T) {
	// md5("") = d41d8cd98f00b204e9800998ecf8427e
	assert.Equal(t, thumbnail.Filename("", 1), "d41d8cd98f00_page1.jpg")
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := newStore(t)

	path, err := s.Save("/a.pdf", 2, []byte("first"))
	assert.NilError(t, err)
	assert.Equal(t, path, s.PathFor("/a.pdf", 2))

	again, err := s.Save("/a.pdf", 2, []byte("second"))
	assert.NilError(t, err)
	assert.Equal(t, again, path)

	data, err := s.Read(path)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "second")
}

func TestStore_Cached(t *testing.T) {
	s := newStore(t)

	_, ok := s.Cached("/a.pdf", 1)
	assert.Assert(t, !ok)

	saved, err := s.Save("/a.pdf", 1, []byte("x"))
	assert.NilError(t, err)
	path, ok := s.Cached("/a.pdf", 1)
	assert.Assert(t, ok)
	assert.Equal(t, path, saved)
}

func TestStore_DeleteMissingIsNotAnError(t *testing.T) {
	s := newStore(t)
	path, err := s.Save("/a.pdf", 1, []byte("x"))
	assert.NilError(t, err)

	assert.NilError(t, s.Delete(path))
	assert.NilError(t, s.Delete(path))
	assert.NilError(t, s.Delete(""))

	_, err = os.Stat(path)
	assert.Assert(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_DeleteAllContinuesAfterFailure(t *testing.T) {
	s := newStore(t)
	first, err := s.Save("/a.pdf", 1, []byte("x"))
	assert.NilError(t, err)
	second, err := s.Save("/a.pdf", 2, []byte("y"))
	assert.NilError(t, err)

	// a non-empty directory cannot be removed with os.Remove
	blocker := filepath.Join(s.Dir(), "blocker")
	assert.NilError(t, os.MkdirAll(filepath.Join(blocker, "inner"), 0755))

	failed := s.DeleteAll([]string{blocker, first, second})
	assert.Check(t, is.Len(failed, 1))
	assert.Assert(t, failed[blocker] != nil)

	for _, p := range []string{first, second} {
		_, err := os.Stat(p)
		assert.Assert(t, errors.Is(err, os.ErrNotExist), p)
	}
}

func TestStore_SweepOrphans(t *testing.T) {
	s := newStore(t)
	keep, err := s.Save("/a.pdf", 1, []byte("keep"))
	assert.NilError(t, err)
	orphan, err := s.Save("/b.pdf", 7, []byte("orphan"))
	assert.NilError(t, err)
	stray := filepath.Join(s.Dir(), "stray.tmp")
	assert.NilError(t, os.WriteFile(stray, []byte("?"), 0644))

	// valid paths are compared by base name
	result, err := s.SweepOrphans(context.Background(), []string{"/elsewhere/" + filepath.Base(keep)})
	assert.NilError(t, err)
	assert.Equal(t, result.Kept, 1)
	assert.Check(t, is.Len(result.Removed, 2))
	assert.Check(t, is.Len(result.Failed, 0))

	_, err = os.Stat(keep)
	assert.NilError(t, err)
	for _, p := range []string{orphan, stray} {
		_, err := os.Stat(p)
		assert.Assert(t, errors.Is(err, os.ErrNotExist), p)
	}
}

func TestStore_SweepMissingDirectory(t *testing.T) {
	s := newStore(t)
	result, err := s.SweepOrphans(context.Background(), nil)
	assert.NilError(t, err)
	assert.Check(t, is.Len(result.Removed, 0))
}

func TestStore_SweepHonoursCancellation(t *testing.T) {
	s := newStore(t)
	_, err := s.Save("/a.pdf", 1, []byte("x"))
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SweepOrphans(ctx, nil)
	assert.Assert(t, errors.Is(err, context.Canceled))
	_, ok := s.Cached("/a.pdf", 1)
	assert.Assert(t, ok)
}

func TestDecodeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "jpeg", input: "data:image/jpeg;base64," + payload, want: "jpeg bytes"},
		{name: "png", input: "data:image/png;base64," + payload, want: "jpeg bytes"},
		{name: "svg+xml", input: "data:image/svg+xml;base64," + payload, want: "jpeg bytes"},
		{name: "not an image", input: "data:text/plain;base64," + payload, wantErr: true},
		{name: "no prefix", input: payload, wantErr: true},
		{name: "bad base64", input: "data:image/jpeg;base64,###", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := thumbnail.DecodeDataURL(tt.input)
			if tt.wantErr {
				assert.Assert(t, errors.Is(err, thumbnail.ErrInvalidDataURL))
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, string(got), tt.want)
		})
	}
}

func TestStore_DataURLRoundTrip(t *testing.T) {
	s := newStore(t)
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})

	path, err := s.SaveDataURL("/a.pdf", 9, url)
	assert.NilError(t, err)

	got, err := s.ReadDataURL(path)
	assert.NilError(t, err)
	assert.Equal(t, got, url)
}
