package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
	"github.com/nikbrunner/pdfshelf/internal/thumbnail"
)

const (
	// EnvPrefix is the prefix for environment overrides, e.g. PDFSHELF_MAX_RECENT.
	EnvPrefix = "PDFSHELF"
	// SettingsName is the settings file base name looked up in the config directory.
	SettingsName = "settings"
)

// Settings holds application settings. They live next to, but separate from, the
// persisted document.
type Settings struct {
	ConfigDir         string        `mapstructure:"config_dir"`
	MaxRecent         int           `mapstructure:"max_recent"`
	SaveDelay         time.Duration `mapstructure:"save_delay"`
	LogLevel          string        `mapstructure:"log_level"`
	PrettyLog         bool          `mapstructure:"pretty_log"`
	VerifyConcurrency int           `mapstructure:"verify_concurrency"`
}

// ThumbnailDir returns the thumbnail cache directory.
func (s Settings) ThumbnailDir() string {
	return filepath.Join(s.ConfigDir, thumbnail.Dir)
}

// StoreOptions returns the ConfigStore options derived from the settings.
func (s Settings) StoreOptions() storage.Options {
	return storage.Options{
		Dir:       s.ConfigDir,
		MaxRecent: s.MaxRecent,
		SaveDelay: s.SaveDelay,
	}
}

// New returns a viper instance with defaults and env overrides registered.
func New() *viper.Viper {
	v := viper.New()

	configDir, err := storage.DefaultConfigDir()
	if err != nil {
		configDir = filepath.Join(os.TempDir(), "pdf-viewer")
	}

	v.SetDefault("config_dir", configDir)
	v.SetDefault("max_recent", model.DefaultMaxRecent)
	v.SetDefault("save_delay", storage.DefaultSaveDelay)
	v.SetDefault("log_level", "warn")
	v.SetDefault("pretty_log", true)
	v.SetDefault("verify_concurrency", 4)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads settings. settingsFile may be empty, in which case settings.yaml is
// looked up in the config directory; a missing file is not an error.
func Load(v *viper.Viper, settingsFile string) (Settings, error) {
	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
	} else {
		v.AddConfigPath(v.GetString("config_dir"))
		v.SetConfigName(SettingsName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(settingsFile == "" && errors.Is(err, os.ErrNotExist)) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	// Apply defaults for unusable values
	if s.MaxRecent <= 0 {
		s.MaxRecent = model.DefaultMaxRecent
	}
	if s.SaveDelay <= 0 {
		s.SaveDelay = storage.DefaultSaveDelay
	}
	if s.VerifyConcurrency <= 0 {
		s.VerifyConcurrency = 1
	}
	if s.ConfigDir == "" {
		return Settings{}, errors.New("config_dir must not be empty")
	}

	return s, nil
}
