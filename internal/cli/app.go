// Package cli wires the library into the pdfshelf command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nikbrunner/pdfshelf/internal/config"
	"github.com/nikbrunner/pdfshelf/internal/library"
	"github.com/nikbrunner/pdfshelf/internal/logger"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// App holds the state shared by all commands: flags, settings and the library
// built by the root command's PersistentPreRunE.
type App struct {
	ConfigDir    string
	SettingsFile string
	LogLevel     string
	Output       string

	Settings config.Settings
	Log      logger.Logger
	Lib      *library.Library

	out    io.Writer
	errOut io.Writer

	// openFile launches the system viewer; replaced in tests.
	openFile func(path string) error
}

// NewApp creates an App writing to stdout and stderr.
func NewApp() *App {
	return &App{
		Output:   OutputText,
		Log:      logger.NewNop(),
		out:      os.Stdout,
		errOut:   os.Stderr,
		openFile: openFile,
	}
}

// SetOutput redirects command output.
func (a *App) SetOutput(out, errOut io.Writer) {
	a.out = out
	a.errOut = errOut
}

// Init loads settings, builds the logger and opens the store.
func (a *App) Init() error {
	switch a.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: unknown output format %q", model.ErrValidation, a.Output)
	}

	v := config.New()
	if a.ConfigDir != "" {
		v.Set("config_dir", a.ConfigDir)
	}
	if a.LogLevel != "" {
		v.Set("log_level", a.LogLevel)
	}
	settings, err := config.Load(v, a.SettingsFile)
	if err != nil {
		return err
	}
	a.Settings = settings
	a.Log = logger.New(settings.LogLevel, settings.PrettyLog)

	opts := settings.StoreOptions()
	opts.Logger = a.Log
	store := storage.Open(opts)
	a.Log.Debug("config loaded",
		logger.String("path", store.Path()),
		logger.String("source", store.LastLoadSource().String()))

	a.Lib = library.New(library.Options{
		Store:             store,
		ThumbnailDir:      settings.ThumbnailDir(),
		Logger:            a.Log,
		VerifyConcurrency: settings.VerifyConcurrency,
	})
	return nil
}

// Close flushes pending saves. It is safe to call when Init never ran.
func (a *App) Close() error {
	if a.Lib == nil {
		return nil
	}
	err := a.Lib.Close()
	_ = a.Log.Sync()
	a.Lib = nil
	return err
}

// render writes v as JSON or YAML, or calls text for the human format.
func (a *App) render(v any, text func(w io.Writer)) error {
	switch a.Output {
	case OutputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(a.out)
		return nil
	}
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "pdfshelf",
		Short:         "Bookmarks, folders and history for your PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Init()
		},
	}

	root.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", "", "Config directory (default ~/.config/pdf-viewer)")
	root.PersistentFlags().StringVar(&app.SettingsFile, "settings", "", "Settings file (default <config-dir>/settings.yaml)")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&app.Output, "output", "o", OutputText, "Output format: text, json, yaml")

	root.AddCommand(NewOpenCmd(app))
	root.AddCommand(NewVerifyCmd(app))
	root.AddCommand(NewRecentCmd(app))
	root.AddCommand(NewForgetCmd(app))
	root.AddCommand(NewDeleteCmd(app))
	root.AddCommand(NewOrphansCmd(app))
	root.AddCommand(NewBookmarkCmd(app))
	root.AddCommand(NewFolderCmd(app))
	root.AddCommand(NewThumbnailCmd(app))
	root.AddCommand(NewSearchCmd(app))
	root.AddCommand(NewExportCmd(app))
	root.AddCommand(NewImportCmd(app))

	return root
}

// Execute runs the command tree and always flushes the store afterwards.
func Execute(app *App, args []string) error {
	root := NewRootCmd(app)
	root.SetArgs(args)
	root.SetOut(app.out)
	root.SetErr(app.errOut)

	err := root.Execute()
	if closeErr := app.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("save config: %w", closeErr)
	}
	return err
}
