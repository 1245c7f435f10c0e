package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Toolbar holds the document and folder actions
type Toolbar struct {
	container     *fyne.Container
	openButton    *widget.Button
	saveButton    *widget.Button
	folderButton  *widget.Button
	browserButton *widget.Button

	openHandler    func()
	saveHandler    func()
	folderHandler  func()
	browserHandler func()
}

// NewToolbar creates a new toolbar component
func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	toolbar.setupEventHandlers()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.openButton = widget.NewButtonWithIcon("Open File", theme.FileIcon(), nil)
	t.openButton.Importance = widget.HighImportance

	t.saveButton = widget.NewButtonWithIcon("Save As", theme.DocumentSaveIcon(), nil)
	t.folderButton = widget.NewButtonWithIcon("Open Folder", theme.FolderOpenIcon(), nil)

	t.browserButton = widget.NewButtonWithIcon("Open in Browser", theme.ComputerIcon(), nil)
	t.browserButton.Importance = widget.LowImportance
}

func (t *Toolbar) buildLayout() {
	t.container = container.NewHBox(
		t.openButton,
		t.saveButton,
		widget.NewSeparator(),
		t.folderButton,
		widget.NewSeparator(),
		t.browserButton,
	)
}

func (t *Toolbar) setupEventHandlers() {
	t.openButton.OnTapped = func() {
		if t.openHandler != nil {
			t.openHandler()
		}
	}
	t.saveButton.OnTapped = func() {
		if t.saveHandler != nil {
			t.saveHandler()
		}
	}
	t.folderButton.OnTapped = func() {
		if t.folderHandler != nil {
			t.folderHandler()
		}
	}
	t.browserButton.OnTapped = func() {
		if t.browserHandler != nil {
			t.browserHandler()
		}
	}
}

// SetOpenHandler sets the open file handler
func (t *Toolbar) SetOpenHandler(handler func()) {
	t.openHandler = handler
}

// SetSaveHandler sets the save as handler
func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

// SetFolderHandler sets the open folder handler
func (t *Toolbar) SetFolderHandler(handler func()) {
	t.folderHandler = handler
}

// SetBrowserHandler sets the open in browser handler
func (t *Toolbar) SetBrowserHandler(handler func()) {
	t.browserHandler = handler
}

// SetBrowserEnabled toggles the browser action, off while no preview server runs
func (t *Toolbar) SetBrowserEnabled(enabled bool) {
	if enabled {
		t.browserButton.Enable()
	} else {
		t.browserButton.Disable()
	}
}

// Buttons returns the action buttons in display order
func (t *Toolbar) Buttons() []*widget.Button {
	return []*widget.Button{t.openButton, t.saveButton, t.folderButton, t.browserButton}
}

// GetContainer returns the toolbar container
func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}
