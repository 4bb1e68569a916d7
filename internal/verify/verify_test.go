package verify_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/verify"
)

func writePdf(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	empty := writePdf(t, dir, "empty.pdf", "")

	hash, err := verify.HashFile(empty)
	assert.NilError(t, err)
	assert.Equal(t, hash, "d41d8cd98f00b204e9800998ecf8427e")

	_, err = verify.HashFile(filepath.Join(dir, "missing.pdf"))
	assert.Assert(t, errors.Is(err, os.ErrNotExist))
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	pdf := writePdf(t, dir, "a.pdf", "x")
	upper := writePdf(t, dir, "B.PDF", "x")
	txt := writePdf(t, dir, "c.txt", "x")
	assert.NilError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0755))

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "pdf", path: pdf},
		{name: "upper case extension", path: upper},
		{name: "wrong extension", path: txt, want: model.ErrInvalidPath},
		{name: "empty", path: "", want: model.ErrInvalidPath},
		{name: "missing", path: filepath.Join(dir, "missing.pdf"), want: model.ErrFileNotFound},
		{name: "directory", path: filepath.Join(dir, "folder.pdf"), want: model.ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verify.ValidatePath(tt.path)
			if tt.want == nil {
				assert.NilError(t, err)
				return
			}
			assert.Assert(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCheck_Statuses(t *testing.T) {
	dir := t.TempDir()
	pdf := writePdf(t, dir, "a.pdf", "")
	const emptyHash = "d41d8cd98f00b204e9800998ecf8427e"

	tests := []struct {
		name        string
		target      verify.Target
		status      verify.Status
		exists      bool
		hashChanged bool
	}{
		{name: "no stored hash", target: verify.Target{Path: pdf}, status: verify.Healthy, exists: true},
		{name: "same hash", target: verify.Target{Path: pdf, StoredHash: emptyHash}, status: verify.Healthy, exists: true},
		{name: "changed", target: verify.Target{Path: pdf, StoredHash: "old"}, status: verify.Changed, exists: true, hashChanged: true},
		{name: "missing", target: verify.Target{Path: filepath.Join(dir, "x.pdf"), StoredHash: "old"}, status: verify.Missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := verify.Check(tt.target)
			assert.Equal(t, r.Status, tt.status)
			assert.Equal(t, r.Exists, tt.exists)
			assert.Equal(t, r.HashChanged, tt.hashChanged)
			if tt.exists {
				assert.Equal(t, r.Hash, emptyHash)
			} else {
				assert.Equal(t, r.Error, "File not found")
			}
		})
	}
}

func TestCheckFiles_KeepsOrderAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	var targets []verify.Target
	for i := 0; i < 10; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.pdf", i))
		if i%3 != 0 {
			writePdf(t, dir, fmt.Sprintf("%d.pdf", i), fmt.Sprint(i))
		}
		targets = append(targets, verify.Target{Path: path})
	}

	var mu sync.Mutex
	var calls []int
	results := verify.CheckFiles(context.Background(), targets, 3, func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, total, 10)
		calls = append(calls, completed)
	})

	assert.Check(t, is.Len(results, 10))
	for i, r := range results {
		assert.Equal(t, r.Path, targets[i].Path)
		if i%3 == 0 {
			assert.Equal(t, r.Status, verify.Missing)
		} else {
			assert.Equal(t, r.Status, verify.Healthy)
		}
	}
	assert.Check(t, is.Len(calls, 10))
	assert.Equal(t, calls[len(calls)-1], 10)
}

func TestCheckFiles_Empty(t *testing.T) {
	assert.Check(t, is.Nil(verify.CheckFiles(context.Background(), nil, 4, nil)))
}

func TestCheckFiles_Cancelled(t *testing.T) {
	dir := t.TempDir()
	pdf := writePdf(t, dir, "a.pdf", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := verify.CheckFiles(ctx, []verify.Target{{Path: pdf}}, 0, nil)
	assert.Equal(t, results[0].Status, verify.Unreadable)
	assert.Equal(t, results[0].Error, context.Canceled.Error())
}

func TestStatus_MarshalText(t *testing.T) {
	text, err := verify.Changed.MarshalText()
	assert.NilError(t, err)
	assert.Equal(t, string(text), "changed")
}
