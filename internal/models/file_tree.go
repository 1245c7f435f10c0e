package models

import (
	"path/filepath"
	"sync"
)

// FileListEntry is one node of the folder sidebar
type FileListEntry struct {
	Path        string
	DisplayName string
	IsDir       bool
}

// NewFileListEntry builds an entry for path
func NewFileListEntry(path string, isDir bool) FileListEntry {
	return FileListEntry{
		Path:        path,
		DisplayName: filepath.Base(path),
		IsDir:       isDir,
	}
}

// ChildLister enumerates the direct children of a directory
type ChildLister interface {
	ListChildren(dir string) []FileListEntry
}

// FileTree backs a lazily expanded tree view. Children of a directory are
// enumerated the first time they are asked for and cached until invalidated;
// nothing is ever traversed recursively.
type FileTree struct {
	lister ChildLister

	mu       sync.Mutex
	root     *FileListEntry
	entries  map[string]FileListEntry
	children map[string][]string
}

// NewFileTree creates an empty tree using lister for enumeration
func NewFileTree(lister ChildLister) *FileTree {
	return &FileTree{
		lister:   lister,
		entries:  make(map[string]FileListEntry),
		children: make(map[string][]string),
	}
}

// SetRoot replaces the whole tree with a single root directory
func (t *FileTree) SetRoot(dir string) FileListEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	root := NewFileListEntry(dir, true)
	t.root = &root
	t.entries = map[string]FileListEntry{dir: root}
	t.children = make(map[string][]string)
	return root
}

// Root returns the root entry, if any
func (t *FileTree) Root() (FileListEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return FileListEntry{}, false
	}
	return *t.root, true
}

// Entry looks up a previously seen node
func (t *FileTree) Entry(path string) (FileListEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[path]
	return e, ok
}

// IsDir reports whether path is a known directory node
func (t *FileTree) IsDir(path string) bool {
	e, ok := t.Entry(path)
	return ok && e.IsDir
}

// Children returns the child paths of dir, enumerating on first use
func (t *FileTree) Children(dir string) []string {
	t.mu.Lock()
	if ids, ok := t.children[dir]; ok {
		t.mu.Unlock()
		return ids
	}
	parent, known := t.entries[dir]
	t.mu.Unlock()

	if !known || !parent.IsDir {
		return nil
	}

	listed := t.lister.ListChildren(dir)

	t.mu.Lock()
	defer t.mu.Unlock()
	// SetRoot may have replaced the tree while we were listing
	if _, still := t.entries[dir]; !still {
		return nil
	}
	ids := make([]string, 0, len(listed))
	for _, child := range listed {
		t.entries[child.Path] = child
		ids = append(ids, child.Path)
	}
	t.children[dir] = ids
	return ids
}

// Invalidate drops the cached children of dir so the next expansion re-lists it
func (t *FileTree) Invalidate(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.children, dir)
}
