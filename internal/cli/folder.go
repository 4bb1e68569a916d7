package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/pdfshelf/internal/folders"
	"github.com/nikbrunner/pdfshelf/internal/model"
)

// folderView is a folder subtree as printed by folder list.
type folderView struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	Path     string       `json:"path" yaml:"path"`
	Pdfs     []string     `json:"pdfs" yaml:"pdfs"`
	Children []folderView `json:"children" yaml:"children"`
}

// NewFolderCmd groups the folder commands.
func NewFolderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Organise PDFs into virtual folders",
	}

	cmd.AddCommand(newFolderCreateCmd(app))
	cmd.AddCommand(newFolderUpdateCmd(app))
	cmd.AddCommand(newFolderDeleteCmd(app))
	cmd.AddCommand(newFolderAssignCmd(app, true))
	cmd.AddCommand(newFolderAssignCmd(app, false))
	cmd.AddCommand(newFolderListCmd(app))
	return cmd
}

func newFolderCreateCmd(app *App) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			f, err := app.Lib.Folders().Create(args[0], parentID)
			if err != nil {
				return err
			}
			return app.render(f, func(w io.Writer) {
				fmt.Fprintf(w, "Created folder %s [%s]\n", f.Name, f.ID)
			})
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder ID (default: root level)")
	return cmd
}

func newFolderUpdateCmd(app *App) *cobra.Command {
	var (
		name   string
		parent string
		root   bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename or move a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var changes folders.Changes
			if cmd.Flags().Changed("name") {
				changes.Name = &name
			}
			switch {
			case root:
				changes.ParentID = folders.MoveToRoot()
			case parent != "":
				changes.ParentID = folders.MoveTo(parent)
			}

			f, err := app.Lib.Folders().Update(args[0], changes)
			if err != nil {
				return err
			}
			return app.render(f, func(w io.Writer) {
				fmt.Fprintf(w, "Updated folder %s [%s]\n", f.Name, f.ID)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&parent, "parent", "", "Move under this folder ID")
	cmd.Flags().BoolVar(&root, "root", false, "Move to root level")
	cmd.MarkFlagsMutuallyExclusive("parent", "root")
	return cmd
}

func newFolderDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a folder and its subfolders; the PDFs are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := app.Lib.Folders().Delete(args[0])
			if err != nil {
				return err
			}
			return app.render(removed, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %d folders\n", len(removed))
			})
		},
	}
}

func newFolderAssignCmd(app *App, assign bool) *cobra.Command {
	use, short := "assign <id> <pdf>", "Add a PDF to a folder"
	if !assign {
		use, short = "unassign <id> <pdf>", "Remove a PDF from a folder"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hier := app.Lib.Folders()
			var err error
			if assign {
				err = hier.Assign(args[0], args[1])
			} else {
				err = hier.Unassign(args[0], args[1])
			}
			if err != nil {
				return err
			}
			pdfs := hier.FolderPdfs(args[0])
			return app.render(pdfs, func(w io.Writer) {
				fmt.Fprintf(w, "Folder %s now holds %d PDFs\n", args[0], len(pdfs))
			})
		},
	}
}

func newFolderListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [id]",
		Short: "Show the folder tree, or one folder's subtree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hier := app.Lib.Folders()

			var views []folderView
			if len(args) == 1 {
				f, err := hier.Get(args[0])
				if err != nil {
					return err
				}
				path, err := hier.Path(f.ID)
				if err != nil {
					return err
				}
				views = []folderView{buildFolderView(hier, f, path)}
			} else {
				for _, f := range hier.Children(nil) {
					views = append(views, buildFolderView(hier, f, []string{f.Name}))
				}
			}

			return app.render(views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "No folders")
					return
				}
				for _, v := range views {
					writeFolderView(w, v, 0)
				}
			})
		},
	}
}

func buildFolderView(hier *folders.Hierarchy, f model.Folder, path []string) folderView {
	v := folderView{
		ID:       f.ID,
		Name:     f.Name,
		Path:     strings.Join(path, "/"),
		Pdfs:     f.PdfPaths,
		Children: []folderView{},
	}
	for _, child := range hier.Children(&f.ID) {
		childPath := append(append([]string{}, path...), child.Name)
		v.Children = append(v.Children, buildFolderView(hier, child, childPath))
	}
	return v
}

func writeFolderView(w io.Writer, v folderView, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s/  [%s]\n", indent, v.Name, v.ID)
	for _, child := range v.Children {
		writeFolderView(w, child, depth+1)
	}
	for _, p := range v.Pdfs {
		fmt.Fprintf(w, "%s  %s\n", indent, p)
	}
}
