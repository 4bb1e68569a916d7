package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/library"
	"github.com/nikbrunner/pdfshelf/internal/model"
)

// NewBookmarkCmd groups the bookmark commands.
func NewBookmarkCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"bm"},
		Short:   "Manage page bookmarks of a PDF",
	}

	cmd.AddCommand(newBookmarkAddCmd(app))
	cmd.AddCommand(newBookmarkUpdateCmd(app))
	cmd.AddCommand(newBookmarkDeleteCmd(app))
	cmd.AddCommand(newBookmarkReorderCmd(app))
	cmd.AddCommand(newBookmarkListCmd(app))
	return cmd
}

func newBookmarkAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <pdf> <page> [title...]",
		Short: "Bookmark a page",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := parsePage(args[1])
			if err != nil {
				return err
			}
			b, _, err := app.Lib.AddBookmark(args[0], page, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			return app.render(b, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s\n", formatBookmark(b))
			})
		},
	}
}

func newBookmarkUpdateCmd(app *App) *cobra.Command {
	var (
		title          string
		thumbnail      string
		clearThumbnail bool
	)

	cmd := &cobra.Command{
		Use:   "update <pdf> <id>",
		Short: "Rename a bookmark or change its thumbnail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit library.BookmarkEdit
			if cmd.Flags().Changed("title") {
				edit.Title = &title
			}
			if cmd.Flags().Changed("thumbnail") {
				edit.ThumbnailPath = &thumbnail
			}
			edit.ClearThumbnail = clearThumbnail

			b, _, err := app.Lib.UpdateBookmark(args[0], args[1], edit)
			if err != nil {
				return err
			}
			return app.render(b, func(w io.Writer) {
				fmt.Fprintf(w, "Updated %s\n", formatBookmark(b))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "Thumbnail image path")
	cmd.Flags().BoolVar(&clearThumbnail, "clear-thumbnail", false, "Detach the thumbnail")
	cmd.MarkFlagsMutuallyExclusive("thumbnail", "clear-thumbnail")
	return cmd
}

func newBookmarkDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pdf> <id>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.Lib.DeleteBookmark(args[0], args[1])
			if err != nil {
				return err
			}
			return app.render(list, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted bookmark %s, %d left\n", args[1], len(list))
			})
		},
	}
}

func newBookmarkReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <pdf> <id>...",
		Short: "Reorder bookmarks; unlisted ones keep their relative order at the end",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := app.Lib.ReorderBookmarks(args[0], args[1:])
			if err != nil {
				return err
			}
			return app.render(list, func(w io.Writer) {
				writeBookmarks(w, list)
			})
		},
	}
}

func newBookmarkListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <pdf>",
		Short: "List the bookmarks of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := app.Lib.Bookmarks().List(args[0])
			return app.render(list, func(w io.Writer) {
				writeBookmarks(w, list)
			})
		},
	}
}

func parsePage(s string) (int, error) {
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer, got %q", model.ErrValidation, s)
	}
	return page, nil
}

func formatBookmark(b model.Bookmark) string {
	s := fmt.Sprintf("p.%-4d %s  [%s]", b.Page, b.Title, b.ID)
	if b.ThumbnailPath != nil {
		s += " (thumbnail)"
	}
	return s
}

func writeBookmarks(w io.Writer, list []model.Bookmark) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookmarks")
		return
	}
	for _, b := range list {
		fmt.Fprintln(w, formatBookmark(b))
	}
}
