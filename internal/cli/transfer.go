package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/exporter"
	"github.com/nikbrunner/pdfshelf/internal/importer"
	"github.com/nikbrunner/pdfshelf/internal/logger"
)

// exportSummary is printed after an export.
type exportSummary struct {
	Path      string `json:"path" yaml:"path"`
	Folders   int    `json:"folders" yaml:"folders"`
	Pdfs      int    `json:"pdfs" yaml:"pdfs"`
	Bookmarks int    `json:"bookmarks" yaml:"bookmarks"`
}

// NewExportCmd writes folders and bookmarks as Netscape bookmark HTML.
func NewExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export [out.html]",
		Short: "Export folders and bookmarks to browser bookmark HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := ""
			if len(args) == 1 {
				outputPath = args[0]
			} else {
				var err error
				if outputPath, err = exporter.DefaultExportPath(); err != nil {
					return fmt.Errorf("default export path: %w", err)
				}
			}

			doc := app.Lib.Store().Document()
			html := exporter.ExportHTML(doc)
			if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}

			summary := exportSummary{Path: outputPath, Folders: len(doc.Folders)}
			for _, rec := range doc.Bookmarks {
				if len(rec.Bookmarks) > 0 {
					summary.Pdfs++
				}
				summary.Bookmarks += len(rec.Bookmarks)
			}
			app.Log.Info("export written", logger.String("path", outputPath), logger.Int("bookmarks", summary.Bookmarks))

			return app.render(summary, func(w io.Writer) {
				fmt.Fprintf(w, "Exported %d bookmarks in %d PDFs, %d folders to %s\n",
					summary.Bookmarks, summary.Pdfs, summary.Folders, outputPath)
			})
		},
	}
}

// NewImportCmd merges a bookmark HTML file into the library.
func NewImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.html>",
		Short: "Import folders and page bookmarks from browser bookmark HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			parsed, err := importer.ParseHTML(file)
			if err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}
			summary, err := importer.Merge(parsed, app.Lib.Folders(), app.Lib.Bookmarks())
			if err != nil {
				return err
			}

			return app.render(summary, func(w io.Writer) {
				fmt.Fprintf(w, "Imported %d bookmarks, %d new folders, %d PDF assignments",
					summary.BookmarksAdded, summary.FoldersCreated, summary.PdfsAssigned)
				if summary.BookmarksSkipped > 0 {
					fmt.Fprintf(w, " (%d duplicates skipped)", summary.BookmarksSkipped)
				}
				fmt.Fprintln(w)
				if summary.LinksSkipped > 0 {
					fmt.Fprintf(w, "%d links were not local PDFs and were ignored\n", summary.LinksSkipped)
				}
			})
		},
	}
}
