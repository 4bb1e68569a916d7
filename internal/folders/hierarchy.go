package folders

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nikbrunner/pdfshelf/internal/model"
	"github.com/nikbrunner/pdfshelf/internal/storage"
)

// Hierarchy manages the virtual folder tree stored in the document.
type Hierarchy struct {
	store *storage.ConfigStore
}

// NewHierarchy creates a Hierarchy on top of store.
func NewHierarchy(store *storage.ConfigStore) *Hierarchy {
	return &Hierarchy{store: store}
}

// Changes holds optional folder changes. ParentID is a pointer to the new parent
// pointer: &nilString moves the folder to root.
type Changes struct {
	Name     *string
	ParentID **string
}

// MoveToRoot returns a ParentID change that moves a folder to root level.
func MoveToRoot() **string {
	var root *string
	return &root
}

// MoveTo returns a ParentID change that moves a folder under parentID.
func MoveTo(parentID string) **string {
	p := &parentID
	return &p
}

// Create adds a folder named name under parentID (nil for root).
func (h *Hierarchy) Create(name string, parentID *string) (model.Folder, error) {
	var created model.Folder
	err := h.store.Mutate(func(doc *model.Document) error {
		if parentID != nil {
			if _, ok := doc.Folders[*parentID]; !ok {
				return fmt.Errorf("%w: parent folder %q not found", model.ErrValidation, *parentID)
			}
		}
		trimmed, err := validateName(doc, name, parentID, "")
		if err != nil {
			return err
		}

		folder := model.NewFolder(model.NewFolderParams{Name: trimmed, ParentID: parentID})
		doc.Folders[folder.ID] = &folder
		if parentID != nil {
			parent := doc.Folders[*parentID]
			parent.ChildrenIDs = append(parent.ChildrenIDs, folder.ID)
		}
		created = folder.Clone()
		return nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return created, nil
}

// Update renames and/or re-parents a folder. A rename is checked against the
// siblings under the folder's (possibly new) parent. A move is rejected when the
// new parent is the folder itself or one of its descendants.
func (h *Hierarchy) Update(id string, changes Changes) (model.Folder, error) {
	var updated model.Folder
	err := h.store.Mutate(func(doc *model.Document) error {
		folder, ok := doc.Folders[id]
		if !ok {
			return fmt.Errorf("%w: folder %q", model.ErrNotFound, id)
		}

		newParent := folder.ParentID
		if changes.ParentID != nil {
			newParent = *changes.ParentID
			if newParent != nil {
				if _, ok := doc.Folders[*newParent]; !ok {
					return fmt.Errorf("%w: parent folder %q not found", model.ErrValidation, *newParent)
				}
				if hasCycle(doc, id, *newParent) {
					return fmt.Errorf("%w: %w: folder %q under %q", model.ErrValidation, model.ErrCycle, id, *newParent)
				}
			}
		}

		name := folder.Name
		if changes.Name != nil {
			name = *changes.Name
		}
		trimmed, err := validateName(doc, name, newParent, id)
		if err != nil {
			return err
		}
		folder.Name = trimmed

		if changes.ParentID != nil && !model.PtrEqual(folder.ParentID, newParent) {
			detach(doc, folder)
			if newParent != nil {
				parent := doc.Folders[*newParent]
				parent.ChildrenIDs = append(parent.ChildrenIDs, id)
			}
			folder.ParentID = model.CopyPtr(newParent)
		}

		updated = folder.Clone()
		return nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return updated, nil
}

// Delete removes a folder and all its descendants. PDFs assigned to deleted
// folders are only disassociated. Returns the IDs of every removed folder,
// descendants first.
func (h *Hierarchy) Delete(id string) ([]string, error) {
	var removed []string
	err := h.store.Mutate(func(doc *model.Document) error {
		folder, ok := doc.Folders[id]
		if !ok {
			return fmt.Errorf("%w: folder %q", model.ErrNotFound, id)
		}
		removed = deleteRecursive(doc, folder.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func deleteRecursive(doc *model.Document, id string) []string {
	folder, ok := doc.Folders[id]
	if !ok {
		return nil
	}

	var removed []string
	for _, childID := range slices.Clone(folder.ChildrenIDs) {
		removed = append(removed, deleteRecursive(doc, childID)...)
	}
	detach(doc, folder)
	delete(doc.Folders, id)
	return append(removed, id)
}

// Assign adds pdfPath to the folder. Assigning twice is a no-op.
func (h *Hierarchy) Assign(folderID, pdfPath string) error {
	return h.store.Mutate(func(doc *model.Document) error {
		folder, ok := doc.Folders[folderID]
		if !ok {
			return fmt.Errorf("%w: folder %q", model.ErrNotFound, folderID)
		}
		if folder.HasPdf(pdfPath) {
			return storage.ErrUnchanged
		}
		folder.PdfPaths = append(folder.PdfPaths, pdfPath)
		return nil
	})
}

// Unassign removes pdfPath from the folder. Unassigning an absent PDF is a no-op.
func (h *Hierarchy) Unassign(folderID, pdfPath string) error {
	return h.store.Mutate(func(doc *model.Document) error {
		folder, ok := doc.Folders[folderID]
		if !ok {
			return fmt.Errorf("%w: folder %q", model.ErrNotFound, folderID)
		}
		if !folder.HasPdf(pdfPath) {
			return storage.ErrUnchanged
		}
		folder.PdfPaths = slices.DeleteFunc(folder.PdfPaths, func(p string) bool { return p == pdfPath })
		return nil
	})
}

// UnassignEverywhere removes pdfPath from every folder and returns how many
// folders referenced it.
func (h *Hierarchy) UnassignEverywhere(pdfPath string) (int, error) {
	count := 0
	err := h.store.Mutate(func(doc *model.Document) error {
		count = UnassignAll(doc, pdfPath)
		if count == 0 {
			return storage.ErrUnchanged
		}
		return nil
	})
	return count, err
}

// UnassignAll removes pdfPath from every folder of doc. It is exported for
// callers composing larger mutations.
func UnassignAll(doc *model.Document, pdfPath string) int {
	count := 0
	for _, folder := range doc.Folders {
		if folder.HasPdf(pdfPath) {
			folder.PdfPaths = slices.DeleteFunc(folder.PdfPaths, func(p string) bool { return p == pdfPath })
			count++
		}
	}
	return count
}

// Get returns a copy of the folder.
func (h *Hierarchy) Get(id string) (model.Folder, error) {
	var folder model.Folder
	var found bool
	h.store.View(func(doc *model.Document) {
		if f, ok := doc.Folders[id]; ok {
			folder, found = f.Clone(), true
		}
	})
	if !found {
		return model.Folder{}, fmt.Errorf("%w: folder %q", model.ErrNotFound, id)
	}
	return folder, nil
}

// FolderPdfs returns the PDFs assigned to the folder, or an empty list if the
// folder is unknown.
func (h *Hierarchy) FolderPdfs(folderID string) []string {
	pdfs := []string{}
	h.store.View(func(doc *model.Document) {
		if f, ok := doc.Folders[folderID]; ok {
			pdfs = slices.Clone(f.PdfPaths)
		}
	})
	return pdfs
}

// Folders returns a copy of every folder keyed by ID.
func (h *Hierarchy) Folders() map[string]model.Folder {
	out := map[string]model.Folder{}
	h.store.View(func(doc *model.Document) {
		for id, f := range doc.Folders {
			out[id] = f.Clone()
		}
	})
	return out
}

// Children returns the folders under parentID (nil for root). Children of a
// folder come in childrenIds order, root folders sorted by name.
func (h *Hierarchy) Children(parentID *string) []model.Folder {
	var children []model.Folder
	h.store.View(func(doc *model.Document) {
		if parentID == nil {
			children = doc.RootFolders()
			return
		}
		parent, ok := doc.Folders[*parentID]
		if !ok {
			return
		}
		for _, childID := range parent.ChildrenIDs {
			if child, ok := doc.Folders[childID]; ok {
				children = append(children, child.Clone())
			}
		}
	})
	return children
}

// FindChild returns the child of parentID (nil for root) named name.
func (h *Hierarchy) FindChild(parentID *string, name string) (model.Folder, bool) {
	name = strings.TrimSpace(name)
	for _, f := range h.Children(parentID) {
		if f.Name == name {
			return f, true
		}
	}
	return model.Folder{}, false
}

// AssignedPdfs returns the union of PDFs assigned to any folder.
func (h *Hierarchy) AssignedPdfs() map[string]struct{} {
	var assigned map[string]struct{}
	h.store.View(func(doc *model.Document) {
		assigned = doc.AssignedPdfs()
	})
	return assigned
}

// Path returns the folder names from root down to the folder, e.g. ["Work", "Reports"].
func (h *Hierarchy) Path(id string) ([]string, error) {
	var names []string
	var err error
	h.store.View(func(doc *model.Document) {
		cur, ok := doc.Folders[id]
		if !ok {
			err = fmt.Errorf("%w: folder %q", model.ErrNotFound, id)
			return
		}
		for cur != nil {
			names = append(names, cur.Name)
			if cur.ParentID == nil {
				break
			}
			cur = doc.Folders[*cur.ParentID]
		}
	})
	slices.Reverse(names)
	return names, err
}

// hasCycle walks up from newParentID and reports whether folderID is on the way.
func hasCycle(doc *model.Document, folderID, newParentID string) bool {
	visited := map[string]bool{}
	cur := &newParentID
	for cur != nil {
		if *cur == folderID {
			return true
		}
		if visited[*cur] {
			return true
		}
		visited[*cur] = true
		f, ok := doc.Folders[*cur]
		if !ok {
			return false
		}
		cur = f.ParentID
	}
	return false
}

// validateName checks that name is not blank and is unique among the children
// of parentID, ignoring excludeID. Returns the trimmed name.
func validateName(doc *model.Document, name string, parentID *string, excludeID string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: folder name must not be empty", model.ErrValidation)
	}
	ids := make([]string, 0, len(doc.Folders))
	for id := range doc.Folders {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		f := doc.Folders[id]
		if id != excludeID && model.PtrEqual(f.ParentID, parentID) && f.Name == trimmed {
			return "", fmt.Errorf("%w: folder %q already exists here", model.ErrValidation, trimmed)
		}
	}
	return trimmed, nil
}

// detach removes folder from its parent's children list.
func detach(doc *model.Document, folder *model.Folder) {
	if folder.ParentID == nil {
		return
	}
	if parent, ok := doc.Folders[*folder.ParentID]; ok {
		parent.ChildrenIDs = slices.DeleteFunc(parent.ChildrenIDs, func(c string) bool { return c == folder.ID })
	}
}
