package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/library"
	"github.com/nikbrunner/pdfshelf/internal/verify"
)

// NewVerifyCmd checks one PDF, or every recent PDF when no path is given.
func NewVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [file.pdf]",
		Short: "Check that PDFs still exist and are unchanged",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []verify.Result
			if len(args) == 1 {
				results = []verify.Result{app.Lib.Verify(args[0])}
			} else {
				results = app.Lib.VerifyRecent(cmd.Context(), nil)
			}

			return app.render(results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "No recent PDFs")
					return
				}
				for _, r := range results {
					line := fmt.Sprintf("%-10s %s", r.Status, r.Path)
					if r.Error != "" {
						line += " (" + r.Error + ")"
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}
}

// NewRecentCmd lists or edits the recent files history.
func NewRecentCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the recently opened PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRecent(app)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the recently opened PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRecent(app)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a PDF from the history, keeping its bookmarks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Lib.RemoveFromRecent(args[0]); err != nil {
				return err
			}
			return app.render(map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Removed %s from recent files\n", args[0])
			})
		},
	})

	return cmd
}

func listRecent(app *App) error {
	entries := app.Lib.Recent().List()
	return app.render(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "No recent PDFs")
			return
		}
		for _, e := range entries {
			state := ""
			if !e.Exists {
				state = " [missing]"
			}
			opened := "never"
			if e.LastOpened != nil {
				opened = e.LastOpened.Local().Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s%s\n    %s, %d bookmarks, opened %s\n", e.Name, state, e.Path, e.BookmarkCount, opened)
		}
	})
}

// NewForgetCmd wipes everything the library knows about a PDF.
func NewForgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <path>",
		Short: "Remove a PDF's bookmarks, thumbnails and history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Lib.Forget(args[0])
			if err != nil {
				return err
			}
			return renderRemoval(app, "Forgot", result)
		},
	}
}

// NewDeleteCmd deletes a PDF from disk and forgets it.
func NewDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a PDF from disk and forget it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Lib.Delete(args[0])
			if err != nil {
				return err
			}
			return renderRemoval(app, "Deleted", result)
		},
	}
}

func renderRemoval(app *App, verb string, result library.RemovalResult) error {
	return app.render(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s: %d bookmarks, %d thumbnails removed", verb, result.Path,
			result.BookmarksRemoved, result.ThumbnailsDeleted)
		if result.FoldersUnassigned > 0 {
			fmt.Fprintf(w, ", removed from %d folders", result.FoldersUnassigned)
		}
		fmt.Fprintln(w)
		for _, f := range result.Failures {
			fmt.Fprintf(w, "  could not delete %s: %s\n", f.Path, f.Error)
		}
	})
}

// NewOrphansCmd lists recent PDFs that are in no folder.
func NewOrphansCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List recent PDFs that are not in any folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orphans := app.Lib.Orphans()
			return app.render(orphans, func(w io.Writer) {
				for _, p := range orphans {
					fmt.Fprintln(w, p)
				}
			})
		},
	}
}
