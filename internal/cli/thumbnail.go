package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/model"
)

// NewThumbnailCmd groups the thumbnail cache commands.
func NewThumbnailCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thumbnail",
		Short: "Manage the page thumbnail cache",
	}

	cmd.AddCommand(newThumbnailSaveCmd(app))
	cmd.AddCommand(newThumbnailShowCmd(app))
	cmd.AddCommand(newThumbnailSweepCmd(app))
	return cmd
}

func newThumbnailSaveCmd(app *App) *cobra.Command {
	var bookmarkID string

	cmd := &cobra.Command{
		Use:   "save <pdf> <page> [image-file|-]",
		Short: "Store a rendered page image; without an image the cached one is reused",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]
			page, err := parsePage(args[1])
			if err != nil {
				return err
			}

			var image []byte
			if len(args) == 3 {
				if args[2] == "-" {
					image, err = io.ReadAll(cmd.InOrStdin())
				} else {
					image, err = os.ReadFile(args[2])
				}
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
			}

			if bookmarkID == "" {
				path, err := app.Lib.GenerateThumbnail(pdfPath, page, image)
				if err != nil {
					return err
				}
				return app.render(map[string]string{"thumbnailPath": path}, func(w io.Writer) {
					fmt.Fprintln(w, path)
				})
			}

			for _, b := range app.Lib.Bookmarks().FindByPage(pdfPath, page) {
				if b.ID != bookmarkID {
					continue
				}
				updated, err := app.Lib.AttachThumbnail(pdfPath, bookmarkID, image)
				if err != nil {
					return err
				}
				return app.render(updated, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s\n", formatBookmark(updated))
				})
			}
			return fmt.Errorf("%w: no bookmark %q on page %d of %s", model.ErrNotFound, bookmarkID, page, pdfPath)
		},
	}

	cmd.Flags().StringVar(&bookmarkID, "bookmark", "", "Attach the thumbnail to this bookmark")
	return cmd
}

func newThumbnailShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thumbnail-path>",
		Short: "Print a cached thumbnail as a data URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := app.Lib.ThumbnailDataURL(args[0])
			if err != nil {
				return err
			}
			return app.render(map[string]string{"dataUrl": url}, func(w io.Writer) {
				fmt.Fprintln(w, url)
			})
		},
	}
}

func newThumbnailSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete cached thumbnails that no bookmark references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Lib.SweepThumbnails(cmd.Context())
			if err != nil {
				return err
			}
			return app.render(result, func(w io.Writer) {
				fmt.Fprintf(w, "Kept %d, removed %d, failed %d\n", result.Kept, len(result.Removed), len(result.Failed))
				for path, err := range result.Failed {
					fmt.Fprintf(w, "  could not delete %s: %v\n", path, err)
				}
			})
		},
	}
}
