package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/pdfshelf/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	v := config.New()
	v.Set("config_dir", dir)

	s, err := config.Load(v, "")
	assert.NilError(t, err)

	assert.Equal(t, s.ConfigDir, dir)
	assert.Equal(t, s.MaxRecent, 20)
	assert.Equal(t, s.SaveDelay, 500*time.Millisecond)
	assert.Equal(t, s.LogLevel, "warn")
	assert.Equal(t, s.VerifyConcurrency, 4)
	assert.Equal(t, s.ThumbnailDir(), filepath.Join(dir, "thumbnails"))

	opts := s.StoreOptions()
	assert.Equal(t, opts.Dir, dir)
	assert.Equal(t, opts.MaxRecent, 20)
}

func TestLoad_SettingsFileInConfigDir(t *testing.T) {
	dir := t.TempDir()
	content := "max_recent: 5\nsave_delay: 2s\nlog_level: debug\n"
	assert.NilError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0644))

	v := config.New()
	v.Set("config_dir", dir)
	s, err := config.Load(v, "")
	assert.NilError(t, err)

	assert.Equal(t, s.MaxRecent, 5)
	assert.Equal(t, s.SaveDelay, 2*time.Second)
	assert.Equal(t, s.LogLevel, "debug")
}

func TestLoad_ExplicitSettingsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	assert.NilError(t, os.WriteFile(file, []byte("config_dir: "+dir+"\nverify_concurrency: 0\nmax_recent: -1\n"), 0644))

	s, err := config.Load(config.New(), file)
	assert.NilError(t, err)
	assert.Equal(t, s.ConfigDir, dir)
	assert.Equal(t, s.VerifyConcurrency, 1)
	assert.Equal(t, s.MaxRecent, 20)
}

func TestLoad_MissingExplicitSettingsFile(t *testing.T) {
	_, err := config.Load(config.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read settings")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PDFSHELF_MAX_RECENT", "7")
	t.Setenv("PDFSHELF_CONFIG_DIR", t.TempDir())

	s, err := config.Load(config.New(), "")
	assert.NilError(t, err)
	assert.Equal(t, s.MaxRecent, 7)
}
