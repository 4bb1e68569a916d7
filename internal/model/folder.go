package model

import "slices"

// Folder is a virtual folder. Folders form a tree through ParentID and ChildrenIDs
// and hold references to PDF paths (many-to-many).
type Folder struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	ParentID    *string  `json:"parentId" yaml:"parentId"` // nil = root level
	ChildrenIDs []string `json:"childrenIds" yaml:"childrenIds"`
	PdfPaths    []string `json:"pdfPaths" yaml:"pdfPaths"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name     string
	ParentID *string
}

// NewFolder creates a Folder with generated UUID and empty children/PDF lists.
func NewFolder(params NewFolderParams) Folder {
	return Folder{
		ID:          GenerateUUID(),
		Name:        params.Name,
		ParentID:    CopyPtr(params.ParentID),
		ChildrenIDs: []string{},
		PdfPaths:    []string{},
	}
}

// IsRoot reports whether the folder has no parent.
func (f Folder) IsRoot() bool {
	return f.ParentID == nil
}

// HasPdf reports whether path is assigned to the folder.
func (f Folder) HasPdf(path string) bool {
	return slices.Contains(f.PdfPaths, path)
}

// Clone returns a deep copy of the folder.
func (f Folder) Clone() Folder {
	f.ParentID = CopyPtr(f.ParentID)
	f.ChildrenIDs = append([]string{}, f.ChildrenIDs...)
	f.PdfPaths = append([]string{}, f.PdfPaths...)
	return f
}

// PtrEqual compares two string pointers for equality.
func PtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// CopyPtr returns a pointer to a copy of *p, or nil if p is nil.
func CopyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return StringPtr(*p)
}
