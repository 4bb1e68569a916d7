package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/logger"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/picker"
	"github.com/nikbrunner/pdfshelf/internal/search"
)

// NewSearchCmd fuzzy searches bookmarks and recent PDFs and opens the pick.
func NewSearchCmd(app *App) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Fuzzy search bookmarks and recent PDFs, then open the selection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			var results []search.SearchResult
			app.Lib.Store().View(func(doc *model.Document) {
				results = search.FuzzySearch(doc, query)
			})

			if list || app.Output != OutputText {
				return app.render(results, func(w io.Writer) {
					for _, r := range results {
						fmt.Fprintln(w, r.Entry.Label())
					}
				})
			}

			if len(results) == 0 {
				fmt.Fprintf(app.out, "No matches for '%s'\n", query)
				return nil
			}

			var selected search.Entry
			if len(results) == 1 {
				selected = results[0].Entry
			} else {
				program := tea.NewProgram(picker.New(results, query), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(app.out))
				finalModel, err := program.Run()
				if err != nil {
					return fmt.Errorf("run picker: %w", err)
				}
				entry, ok := finalModel.(picker.Picker).Selected()
				if !ok {
					return nil
				}
				selected = entry
			}

			return openEntry(app, selected)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "Print the matches instead of opening one")
	return cmd
}

// openEntry records the PDF as opened and launches the viewer.
func openEntry(app *App, entry search.Entry) error {
	result, err := app.Lib.Open(entry.PdfPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Opening: %s\n", entry.Label())
	if result.HashChanged {
		fmt.Fprintln(app.out, "warning: file content changed since it was last opened")
	}
	if err := app.openFile(result.Path); err != nil {
		app.Log.Warn("cannot launch viewer", logger.String("path", result.Path), logger.Error(err))
	}
	return nil
}
