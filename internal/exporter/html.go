package exporter

import (
	"fmt"
	"html"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/model"
)

// SectionAttr marks the H3 that holds the per-PDF page bookmarks, so an
// importer can tell it apart from a user folder with the same name.
const SectionAttr = "BOOKMARKS_SECTION"

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/pdfshelf-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("pdfshelf-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// FileURL returns the file:// URL of a PDF, with a #page=N fragment when page > 0.
func FileURL(path string, page int) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	if page > 0 {
		u.Fragment = "page=" + strconv.Itoa(page)
	}
	return u.String()
}

// ExportHTML exports the folder tree and all page bookmarks to Netscape
// bookmark HTML. Folders hold file:// links to their PDFs; a trailing
// Bookmarks section has one sub-list per PDF with #page=N links.
func ExportHTML(doc *model.Document) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	// Folder tree, root folders by name
	for _, folder := range doc.RootFolders() {
		writeFolder(&b, doc, folder.ID, 1)
	}

	writeBookmarks(&b, doc)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// writeFolder recursively writes a folder, its subfolders in childrenIds order
// and then its PDFs.
func writeFolder(b *strings.Builder, doc *model.Document, id string, indent int) {
	folder, ok := doc.Folders[id]
	if !ok {
		return
	}
	prefix := strings.Repeat("    ", indent)

	fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(folder.Name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)

	for _, childID := range folder.ChildrenIDs {
		writeFolder(b, doc, childID, indent+1)
	}
	for _, path := range folder.PdfPaths {
		fmt.Fprintf(b, "%s    <DT><A HREF=\"%s\">%s</A>\n",
			prefix,
			html.EscapeString(FileURL(path, 0)),
			html.EscapeString(filepath.Base(path)),
		)
	}

	fmt.Fprintf(b, "%s</DL><p>\n", prefix)
}

// writeBookmarks writes the page bookmarks of every PDF that has any.
func writeBookmarks(b *strings.Builder, doc *model.Document) {
	var paths []string
	for _, path := range doc.RecordPaths() {
		if len(doc.Bookmarks[path].Bookmarks) > 0 {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return
	}

	fmt.Fprintf(b, "    <DT><H3 %s=\"true\">Bookmarks</H3>\n", SectionAttr)
	b.WriteString("    <DL><p>\n")
	for _, path := range paths {
		fmt.Fprintf(b, "        <DT><H3>%s</H3>\n", html.EscapeString(filepath.Base(path)))
		b.WriteString("        <DL><p>\n")
		for _, bm := range doc.Bookmarks[path].Bookmarks {
			addDate := ""
			if !bm.CreatedAt.IsZero() {
				addDate = fmt.Sprintf(" ADD_DATE=\"%d\"", bm.CreatedAt.Unix())
			}
			fmt.Fprintf(b,
				"            <DT><A HREF=\"%s\"%s>%s</A>\n",
				html.EscapeString(FileURL(path, bm.Page)),
				addDate,
				html.EscapeString(bm.Title),
			)
		}
		b.WriteString("        </DL><p>\n")
	}
	b.WriteString("    </DL><p>\n")
}
