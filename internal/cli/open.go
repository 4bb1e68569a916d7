package cli

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/logger"
)

// NewOpenCmd loads a PDF, records it in the history and prints its bookmarks.
func NewOpenCmd(app *App) *cobra.Command {
	var view bool

	cmd := &cobra.Command{
		Use:   "open <file.pdf>",
		Short: "Open a PDF and record it as recently used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Lib.Open(args[0])
			if err != nil {
				return err
			}
			if view {
				if err := app.openFile(result.Path); err != nil {
					app.Log.Warn("cannot launch viewer", logger.String("path", result.Path), logger.Error(err))
				}
			}

			return app.render(result, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%d bytes, md5 %s)\n", result.Path, result.Size, result.Hash)
				if result.HashChanged {
					fmt.Fprintln(w, "warning: file content changed since it was last opened")
				}
				writeBookmarks(w, result.Bookmarks)
			})
		},
	}

	cmd.Flags().BoolVar(&view, "view", false, "Also open the PDF in the system viewer")
	return cmd
}

// openFile opens a file with the platform's default application.
func openFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return fmt.Errorf("no viewer launcher for %s", runtime.GOOS)
	}
	return cmd.Start()
}
