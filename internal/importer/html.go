package importer

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/bookmarks"
	"github.com/nikbrunner/pdfshelf/internal/exporter"
	"github.com/nikbrunner/pdfshelf/internal/folders"
	"github.com/nikbrunner/pdfshelf/internal/model"
	"golang.org/x/net/html"
)

// Assignment is a PDF listed inside a folder.
type Assignment struct {
	FolderPath []string // folder names from root
	PdfPath    string
}

// PageMark is a link to a page of a PDF.
type PageMark struct {
	PdfPath   string
	Page      int
	Title     string
	CreatedAt time.Time
}

// Parsed holds everything read from a bookmark file.
type Parsed struct {
	Folders     [][]string // every folder as a name path, parents first
	Assignments []Assignment
	Marks       []PageMark
	Skipped     int // links that are not local PDFs
}

// Summary reports what a merge changed.
type Summary struct {
	FoldersCreated   int `json:"foldersCreated" yaml:"foldersCreated"`
	FoldersReused    int `json:"foldersReused" yaml:"foldersReused"`
	PdfsAssigned     int `json:"pdfsAssigned" yaml:"pdfsAssigned"`
	BookmarksAdded   int `json:"bookmarksAdded" yaml:"bookmarksAdded"`
	BookmarksSkipped int `json:"bookmarksSkipped" yaml:"bookmarksSkipped"`
	LinksSkipped     int `json:"linksSkipped" yaml:"linksSkipped"`
}

// ParseHTML parses Netscape bookmark HTML. file:// links to PDFs inside folders
// become assignments, links carrying #page=N become page bookmarks, anything
// else is counted as skipped.
func ParseHTML(r io.Reader) (Parsed, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Parsed{}, err
	}

	var parsed Parsed

	// Track current folder stack for hierarchy
	type frame struct {
		path    []string
		section bool // inside the exported Bookmarks section
	}
	var stack []frame
	var pending *frame // folder waiting to be pushed on next DL

	current := func() frame {
		if len(stack) == 0 {
			return frame{}
		}
		return stack[len(stack)-1]
	}

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - get name from text content
				name := getTextContent(n)
				if name == "" {
					return
				}
				parent := current()
				if parent.section || getAttr(n, exporter.SectionAttr) != "" {
					pending = &frame{section: true}
					return
				}
				path := append(append([]string{}, parent.path...), name)
				parsed.Folders = append(parsed.Folders, path)
				pending = &frame{path: path}
				return // Don't recurse into H3

			case "a":
				pdfPath, page, ok := parseFileURL(getAttr(n, "href"))
				if !ok {
					parsed.Skipped++
					return
				}
				if page > 0 {
					mark := PageMark{PdfPath: pdfPath, Page: page, Title: getTextContent(n)}
					if addDate := getAttr(n, "add_date"); addDate != "" {
						if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
							mark.CreatedAt = time.Unix(ts, 0).UTC()
						}
					}
					parsed.Marks = append(parsed.Marks, mark)
					return
				}
				cur := current()
				if cur.section || len(cur.path) == 0 {
					parsed.Skipped++
					return
				}
				parsed.Assignments = append(parsed.Assignments, Assignment{FolderPath: cur.path, PdfPath: pdfPath})
				return // Don't recurse into A

			case "dl":
				// Definition list - marks folder contents
				// If we have a pending folder, push it now
				pushed := false
				if pending != nil {
					stack = append(stack, *pending)
					pending = nil
					pushed = true
				}

				// Process children
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				// Pop if we pushed
				if pushed {
					stack = stack[:len(stack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		// Recurse into children
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return parsed, nil
}

// parseFileURL returns the local path and the #page=N value of a file:// link
// to a PDF.
func parseFileURL(href string) (string, int, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || !strings.EqualFold(u.Scheme, "file") || u.Path == "" {
		return "", 0, false
	}
	path := filepath.FromSlash(u.Path)
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", 0, false
	}

	page := 0
	if value, ok := strings.CutPrefix(u.Fragment, "page="); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			page = n
		}
	}
	return path, page, true
}

// Merge applies parsed data to the library. Existing folders with the same
// name under the same parent are reused, assignments are idempotent and a page
// bookmark is skipped when the PDF already has one with the same page and title.
func Merge(parsed Parsed, hier *folders.Hierarchy, reg *bookmarks.Registry) (Summary, error) {
	summary := Summary{LinksSkipped: parsed.Skipped}
	ids := map[string]string{} // joined name path -> folder id

	ensure := func(path []string) (string, error) {
		var parentID *string
		for i := range path {
			key := strings.Join(path[:i+1], "\x00")
			if id, ok := ids[key]; ok {
				parentID = &id
				continue
			}
			if found, ok := hier.FindChild(parentID, path[i]); ok {
				summary.FoldersReused++
				ids[key] = found.ID
			} else {
				created, err := hier.Create(path[i], parentID)
				if err != nil {
					return "", fmt.Errorf("create folder %q: %w", strings.Join(path[:i+1], "/"), err)
				}
				summary.FoldersCreated++
				ids[key] = created.ID
			}
			id := ids[key]
			parentID = &id
		}
		if parentID == nil {
			return "", fmt.Errorf("%w: empty folder path", model.ErrValidation)
		}
		return *parentID, nil
	}

	for _, path := range parsed.Folders {
		if _, err := ensure(path); err != nil {
			return summary, err
		}
	}

	for _, a := range parsed.Assignments {
		folderID, err := ensure(a.FolderPath)
		if err != nil {
			return summary, err
		}
		if hier.Folders()[folderID].HasPdf(a.PdfPath) {
			continue
		}
		if err := hier.Assign(folderID, a.PdfPath); err != nil {
			return summary, err
		}
		summary.PdfsAssigned++
	}

	for _, m := range parsed.Marks {
		title := model.NormalizeTitle(m.Title, m.Page)
		if reg.HasBookmark(m.PdfPath, m.Page, title) {
			summary.BookmarksSkipped++
			continue
		}
		add := reg
		if !m.CreatedAt.IsZero() {
			created := m.CreatedAt
			add = reg.WithClock(func() time.Time { return created })
		}
		if _, _, err := add.Add(m.PdfPath, m.Page, title); err != nil {
			return summary, err
		}
		summary.BookmarksAdded++
	}

	return summary, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
