package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/nikbrunner/pdfshelf/internal/model"
)

const (
	legacyVersion     = "1.0"
	untitledFolder    = "Untitled folder"
	errNotObjectShape = "top-level value is not an object"
)

// migration upgrades the raw document from one version to the next.
type migration struct {
	from, to string
	apply    func(raw map[string]any)
}

var migrations = []migration{
	{
		// 1.1 introduced folders
		from: "1.0",
		to:   "1.1",
		apply: func(raw map[string]any) {
			if _, ok := raw["folders"].(map[string]any); !ok {
				raw["folders"] = map[string]any{}
			}
		},
	},
}

// Decode parses config file content into a validated document. It only fails when
// the content is not a JSON object; every other defect is repaired.
func Decode(data []byte, maxRecent int) (*model.Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse config: %w", errors.New(errNotObjectShape))
	}
	return ValidateAndMigrate(obj, maxRecent), nil
}

// ValidateAndMigrate coerces a raw decoded JSON object into a well-formed
// document. It never fails and does not modify raw:
//   - missing or mistyped recentPdfs/bookmarks/folders become empty containers
//   - recentPdfs keeps unique non-empty strings, truncated to maxRecent
//   - bookmarks without a string id or a positive integer page are dropped,
//     blank titles become "Page N"
//   - folders get a trimmed name (placeholder if missing), string-only children
//     and PDF lists, and a consistent parent/children arena without cycles
//   - older versions are migrated to model.CurrentVersion
func ValidateAndMigrate(raw map[string]any, maxRecent int) *model.Document {
	if maxRecent <= 0 {
		maxRecent = model.DefaultMaxRecent
	}
	raw = maps.Clone(raw)

	version, _ := raw["version"].(string)
	if version == "" {
		version = legacyVersion
	}
	for _, m := range migrations {
		if version == m.from {
			m.apply(raw)
			version = m.to
		}
	}

	doc := &model.Document{
		Version:    version,
		RecentPdfs: validateRecent(raw["recentPdfs"], maxRecent),
		Bookmarks:  validateRecords(raw["bookmarks"]),
		Folders:    validateFolders(raw["folders"]),
	}
	repairHierarchy(doc.Folders)

	return doc
}

func validateRecent(v any, maxRecent int) []string {
	recent := uniqueStrings(v)
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}
	return recent
}

func validateRecords(v any) map[string]*model.PdfRecord {
	records := map[string]*model.PdfRecord{}
	obj, ok := v.(map[string]any)
	if !ok {
		return records
	}

	for path, rv := range obj {
		r, ok := rv.(map[string]any)
		if !ok {
			continue
		}
		rec := model.NewPdfRecord()
		rec.Hash, _ = r["hash"].(string)
		rec.LastOpened = parseTimePtr(r["lastOpened"])

		list, _ := r["bookmarks"].([]any)
		seen := map[string]bool{}
		for _, bv := range list {
			b, ok := validateBookmark(bv)
			if !ok || seen[b.ID] {
				continue
			}
			seen[b.ID] = true
			rec.Bookmarks = append(rec.Bookmarks, b)
		}
		records[path] = rec
	}
	return records
}

func validateBookmark(v any) (model.Bookmark, bool) {
	b, ok := v.(map[string]any)
	if !ok {
		return model.Bookmark{}, false
	}
	id, ok := b["id"].(string)
	if !ok || id == "" {
		return model.Bookmark{}, false
	}
	page, ok := b["page"].(float64)
	if !ok || page < 1 || page != math.Trunc(page) || page > math.MaxInt32 {
		return model.Bookmark{}, false
	}

	title, _ := b["title"].(string)
	bm := model.Bookmark{
		ID:    id,
		Page:  int(page),
		Title: model.NormalizeTitle(title, int(page)),
	}
	if thumb, ok := b["thumbnailPath"].(string); ok && thumb != "" {
		bm.ThumbnailPath = &thumb
	}
	if created := parseTimePtr(b["createdAt"]); created != nil {
		bm.CreatedAt = *created
	}
	return bm, true
}

func validateFolders(v any) map[string]*model.Folder {
	folders := map[string]*model.Folder{}
	obj, ok := v.(map[string]any)
	if !ok {
		return folders
	}

	for id, fv := range obj {
		f, ok := fv.(map[string]any)
		if !ok || id == "" {
			continue
		}
		name, _ := f["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			name = untitledFolder
		}

		folder := &model.Folder{
			ID:          id,
			Name:        name,
			ChildrenIDs: uniqueStrings(f["childrenIds"]),
			PdfPaths:    uniqueStrings(f["pdfPaths"]),
		}
		if parent, ok := f["parentId"].(string); ok && parent != "" {
			folder.ParentID = &parent
		}
		folders[id] = folder
	}
	return folders
}

// repairHierarchy makes parentId and childrenIds agree: dangling or cyclic parent
// links are cut (the folder moves to root), children lists keep their stored order
// for valid entries and gain any child that was missing.
func repairHierarchy(folders map[string]*model.Folder) {
	ids := make([]string, 0, len(folders))
	for id := range folders {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		f := folders[id]
		if f.ParentID == nil {
			continue
		}
		if _, ok := folders[*f.ParentID]; !ok || *f.ParentID == id {
			f.ParentID = nil
		}
	}

	for _, id := range ids {
		seen := map[string]bool{}
		cur := folders[id].ParentID
		for cur != nil {
			if *cur == id {
				folders[id].ParentID = nil
				break
			}
			if seen[*cur] {
				break
			}
			seen[*cur] = true
			cur = folders[*cur].ParentID
		}
	}

	for _, id := range ids {
		parent := folders[id]
		listed := map[string]bool{}
		children := []string{}
		for _, childID := range parent.ChildrenIDs {
			child, ok := folders[childID]
			if !ok || listed[childID] || child.ParentID == nil || *child.ParentID != id {
				continue
			}
			listed[childID] = true
			children = append(children, childID)
		}
		for _, childID := range ids {
			child := folders[childID]
			if !listed[childID] && child.ParentID != nil && *child.ParentID == id {
				children = append(children, childID)
			}
		}
		parent.ChildrenIDs = children
	}
}

func uniqueStrings(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	seen := map[string]bool{}
	for _, item := range list {
		s, ok := item.(string)
		if !ok || s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func parseTimePtr(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
