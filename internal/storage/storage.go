package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/logger"
	"github.com/nikbrunner/pdfshelf/internal/model"
)

const (
	// ConfigFile is the name of the persisted document inside the config directory.
	ConfigFile = "config.json"
	// DefaultSaveDelay is the debounce window for scheduled saves.
	DefaultSaveDelay = 500 * time.Millisecond
)

var (
	// ErrNotLoaded is returned when the store is used before Load.
	ErrNotLoaded = errors.New("config store not loaded")
	// ErrUnchanged may be returned by a mutation to signal that nothing changed.
	// Mutate treats it as success without scheduling a save.
	ErrUnchanged = errors.New("document unchanged")
)

// LoadSource tells where the document returned by Load came from.
type LoadSource int

const (
	SourcePrimary LoadSource = iota // config.json
	SourceBackup                    // config.json.backup after config.json was unreadable
	SourceDefault                   // fresh document (first run or nothing readable)
)

func (s LoadSource) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceBackup:
		return "backup"
	default:
		return "default"
	}
}

// Options configures a ConfigStore.
type Options struct {
	Dir       string        // config directory, created if missing
	MaxRecent int           // recent list bound, model.DefaultMaxRecent if <= 0
	SaveDelay time.Duration // debounce window, DefaultSaveDelay if <= 0
	Logger    logger.Logger // optional
}

// ConfigStore owns the JSON document on disk and its single in-memory copy.
//
// Mutations are applied to the in-memory document immediately and persisted by a
// debounced save. Saves are atomic: the previous file is copied to a .backup, the
// new content goes to a .tmp file which is then renamed over config.json.
type ConfigStore struct {
	path       string
	backupPath string
	tmpPath    string
	maxRecent  int
	delay      time.Duration
	log        logger.Logger

	// lock order: saveMu before mu
	saveMu sync.Mutex

	mu         sync.Mutex
	doc        *model.Document
	dirty      bool
	generation uint64
	timer      *time.Timer
	closed     bool
	lastSource LoadSource
}

// NewConfigStore creates a store for the given options. Call Load before use.
func NewConfigStore(opts Options) *ConfigStore {
	maxRecent := opts.MaxRecent
	if maxRecent <= 0 {
		maxRecent = model.DefaultMaxRecent
	}
	delay := opts.SaveDelay
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	path := filepath.Join(opts.Dir, ConfigFile)
	return &ConfigStore{
		path:       path,
		backupPath: path + ".backup",
		tmpPath:    path + ".tmp",
		maxRecent:  maxRecent,
		delay:      delay,
		log:        log,
	}
}

// Open creates a store and loads it.
func Open(opts Options) *ConfigStore {
	s := NewConfigStore(opts)
	s.Load()
	return s
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// BackupPath returns the backup file path.
func (s *ConfigStore) BackupPath() string {
	return s.backupPath
}

// MaxRecent returns the recent list bound.
func (s *ConfigStore) MaxRecent() int {
	return s.maxRecent
}

// LastLoadSource reports where the last Load got its document from.
func (s *ConfigStore) LastLoadSource() LoadSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSource
}

// Load reads, validates and migrates the document. It never fails: an unreadable
// config.json is restored from the backup, and if that is unreadable too a fresh
// default document is used. Whenever the result did not come from config.json it
// is persisted right away.
func (s *ConfigStore) Load() *model.Document {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.log.Warn("cannot create config directory", logger.String("path", s.path), logger.Error(err))
	}
	// a leftover temp file means a save was interrupted before its rename
	_ = os.Remove(s.tmpPath)

	doc, source := s.readDocument()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.doc = doc
	s.dirty = source != SourcePrimary
	s.generation++
	s.lastSource = source
	s.mu.Unlock()

	if source != SourcePrimary {
		// config.json is missing or corrupt, so it must not become the backup
		if err := s.save(false); err != nil {
			s.log.Warn("cannot persist recovered config", logger.String("path", s.path), logger.Error(err))
		}
	}

	return doc.Clone()
}

func (s *ConfigStore) readDocument() (*model.Document, LoadSource) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("no config file, creating default", logger.String("path", s.path))
		return model.NewDocument(), SourceDefault
	}
	if err == nil {
		doc, decodeErr := Decode(data, s.maxRecent)
		if decodeErr == nil {
			return doc, SourcePrimary
		}
		err = decodeErr
	}
	s.log.Warn("config unreadable, trying backup", logger.String("path", s.path), logger.Error(err))

	backup, err := os.ReadFile(s.backupPath)
	if err == nil {
		doc, decodeErr := Decode(backup, s.maxRecent)
		if decodeErr == nil {
			s.log.Warn("config restored from backup", logger.String("path", s.backupPath))
			return doc, SourceBackup
		}
		err = decodeErr
	}
	s.log.Warn("backup unreadable, resetting to default config",
		logger.String("path", s.backupPath), logger.Error(err))

	return model.NewDocument(), SourceDefault
}

// Document returns a copy of the in-memory document.
func (s *ConfigStore) Document() *model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return model.NewDocument()
	}
	return s.doc.Clone()
}

// View runs fn with the in-memory document. fn must not retain or modify it.
func (s *ConfigStore) View(fn func(doc *model.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		fn(model.NewDocument())
		return
	}
	fn(s.doc)
}

// Mutate applies fn to a working copy of the document and, if fn succeeds, swaps
// the copy in and schedules a save. When fn returns an error the document is left
// exactly as it was. Returning ErrUnchanged skips both the swap and the save.
func (s *ConfigStore) Mutate(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.applyLocked(fn)
	if err != nil || !changed {
		return err
	}
	s.scheduleLocked()
	return nil
}

// MutateNow is Mutate followed by an immediate Save, for operations that must be
// durable before anything else reads the file. On save failure the in-memory
// change is kept and the document stays dirty.
func (s *ConfigStore) MutateNow(fn func(doc *model.Document) error) error {
	s.mu.Lock()
	changed, err := s.applyLocked(fn)
	if err == nil && changed {
		s.markDirtyLocked()
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
	s.mu.Unlock()

	if err != nil || !changed {
		return err
	}
	return s.Save()
}

func (s *ConfigStore) applyLocked(fn func(doc *model.Document) error) (bool, error) {
	if s.doc == nil {
		return false, ErrNotLoaded
	}
	next := s.doc.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return false, nil
		}
		return false, err
	}
	s.doc = next
	return true, nil
}

// ScheduleSave marks the document dirty and (re)starts the debounce timer. Only
// one timer is pending at a time; when it fires a save runs if still dirty.
func (s *ConfigStore) ScheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked()
}

func (s *ConfigStore) markDirtyLocked() {
	s.dirty = true
	s.generation++
}

func (s *ConfigStore) scheduleLocked() {
	s.markDirtyLocked()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.closed {
		return
	}
	s.timer = time.AfterFunc(s.delay, s.flushScheduled)
}

func (s *ConfigStore) flushScheduled() {
	if err := s.Flush(); err != nil {
		s.log.Error("scheduled save failed", logger.String("path", s.path), logger.Error(err))
	}
}

// Dirty reports whether there are unsaved changes.
func (s *ConfigStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush saves now if the document is dirty.
func (s *ConfigStore) Flush() error {
	if !s.Dirty() {
		return nil
	}
	return s.Save()
}

// Close stops the debounce timer and flushes pending changes.
func (s *ConfigStore) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	return s.Flush()
}

// Save writes the document atomically: backup copy of the current file, write to
// the temp file, rename over config.json. The dirty flag is cleared only if no
// mutation happened while the save was in flight.
func (s *ConfigStore) Save() error {
	return s.save(true)
}

func (s *ConfigStore) save(backup bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	generation := s.generation
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := s.writeAtomic(data, backup); err != nil {
		return err
	}

	s.mu.Lock()
	if s.generation == generation {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

func (s *ConfigStore) writeAtomic(data []byte, backup bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if backup {
		if err := copyFile(s.path, s.backupPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("config backup failed", logger.String("path", s.backupPath), logger.Error(err))
		}
	}

	if err := writeFileSync(s.tmpPath, data); err != nil {
		_ = os.Remove(s.tmpPath)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		_ = os.Remove(s.tmpPath)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeFileSync(dst, data)
}

// DefaultConfigDir returns the default config directory: ~/.config/pdf-viewer
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "pdf-viewer"), nil
}
