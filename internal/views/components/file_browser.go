package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"presentat/internal/models"
)

// FileBrowser is the sidebar tree. Node IDs are filesystem paths and
// children come from the lazily populated models.FileTree.
type FileBrowser struct {
	model *models.FileTree
	tree  *widget.Tree

	selectedHandler func(path string)
}

// NewFileBrowser creates a browser over model
func NewFileBrowser(model *models.FileTree) *FileBrowser {
	fb := &FileBrowser{model: model}
	fb.createComponents()
	return fb
}

func (fb *FileBrowser) createComponents() {
	fb.tree = widget.NewTree(fb.childUIDs, fb.isBranch, fb.createNode, fb.updateNode)
	fb.tree.OnSelected = func(uid widget.TreeNodeID) {
		// clicking the same row again should act again
		fb.tree.Unselect(uid)
		if fb.selectedHandler != nil {
			fb.selectedHandler(uid)
		}
	}
}

func (fb *FileBrowser) childUIDs(uid widget.TreeNodeID) []widget.TreeNodeID {
	if uid == "" {
		root, ok := fb.model.Root()
		if !ok {
			return nil
		}
		return []widget.TreeNodeID{root.Path}
	}
	return fb.model.Children(uid)
}

func (fb *FileBrowser) isBranch(uid widget.TreeNodeID) bool {
	return uid == "" || fb.model.IsDir(uid)
}

func (fb *FileBrowser) createNode(branch bool) fyne.CanvasObject {
	icon := widget.NewIcon(theme.FileIcon())
	if branch {
		icon.SetResource(theme.FolderIcon())
	}
	return container.NewHBox(icon, widget.NewLabel(""))
}

func (fb *FileBrowser) updateNode(uid widget.TreeNodeID, branch bool, obj fyne.CanvasObject) {
	row := obj.(*fyne.Container)
	name := uid
	if entry, ok := fb.model.Entry(uid); ok {
		name = entry.DisplayName
	}
	row.Objects[1].(*widget.Label).SetText(name)
}

// SetSelectedHandler sets the handler called with the path of a clicked row
func (fb *FileBrowser) SetSelectedHandler(handler func(path string)) {
	fb.selectedHandler = handler
}

// ShowRoot displays the model's root and expands it
func (fb *FileBrowser) ShowRoot(dir string) {
	fb.tree.Refresh()
	fb.tree.OpenBranch(dir)
}

// Toggle expands or collapses a directory row
func (fb *FileBrowser) Toggle(dir string) {
	fb.tree.ToggleBranch(dir)
}

// IsOpen reports whether a directory row is expanded
func (fb *FileBrowser) IsOpen(dir string) bool {
	return fb.tree.IsBranchOpen(dir)
}

// Refresh redraws the tree after the model changed
func (fb *FileBrowser) Refresh() {
	fb.tree.Refresh()
}

// Widget returns the tree widget
func (fb *FileBrowser) Widget() *widget.Tree {
	return fb.tree
}
