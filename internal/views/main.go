package views

import (
	"fmt"
	"net/url"
	"time"

	"presentat/internal/markdown"
	"presentat/internal/models"
	"presentat/internal/views/components"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

var markdownFilter = storage.NewExtensionFileFilter([]string{".md", ".markdown", ".txt"})

// MainView is the editor window: file browser, text pane, preview pane
type MainView struct {
	app           fyne.App
	window        fyne.Window
	mainContainer *fyne.Container
	toolbar       *components.Toolbar
	browser       *components.FileBrowser
	editor        *components.Editor
	previewPane   *components.PreviewPane
	statusBar     *components.StatusBar

	// Event handlers - connected to controller
	openFileHandler    func(string)
	saveFileHandler    func(string)
	openFolderHandler  func(string)
	textChangedHandler func(string)
	cursorHandler      func(int, int)
	treeHandler        func(string)
	browserHandler     func()
}

// NewMainView builds the window content; tree backs the sidebar
func NewMainView(app fyne.App, window fyne.Window, tree *models.FileTree) *MainView {
	view := &MainView{
		app:    app,
		window: window,
	}

	view.initializeComponents(tree)
	view.buildLayout()
	view.setupEventHandlers()

	return view
}

func (mv *MainView) initializeComponents(tree *models.FileTree) {
	mv.toolbar = components.NewToolbar()
	mv.browser = components.NewFileBrowser(tree)
	mv.editor = components.NewEditor()
	mv.previewPane = components.NewPreviewPane()
	mv.statusBar = components.NewStatusBar()
}

func (mv *MainView) buildLayout() {
	workArea := container.NewHSplit(mv.editor.Entry(), mv.previewPane.GetContainer())
	workArea.Offset = 0.6

	content := container.NewHSplit(mv.browser.Widget(), workArea)
	content.Offset = 0.2

	mv.mainContainer = container.NewBorder(
		mv.toolbar.GetContainer(),   // top
		mv.statusBar.GetContainer(), // bottom
		nil,
		nil,
		content,
	)

	mv.window.SetContent(mv.mainContainer)
}

func (mv *MainView) setupEventHandlers() {
	mv.toolbar.SetOpenHandler(mv.showOpenDialog)
	mv.toolbar.SetSaveHandler(mv.showSaveDialog)
	mv.toolbar.SetFolderHandler(mv.showFolderDialog)
	mv.toolbar.SetBrowserHandler(func() {
		if mv.browserHandler != nil {
			mv.browserHandler()
		}
	})

	mv.editor.SetChangedHandler(func(text string) {
		if mv.textChangedHandler != nil {
			mv.textChangedHandler(text)
		}
	})
	mv.editor.SetCursorHandler(func(row, col int) {
		if mv.cursorHandler != nil {
			mv.cursorHandler(row, col)
		}
	})

	mv.browser.SetSelectedHandler(func(path string) {
		if mv.treeHandler != nil {
			mv.treeHandler(path)
		}
	})

	mv.previewPane.SetSlideHandler(func(line int) {
		mv.editor.GoToLine(line)
		mv.window.Canvas().Focus(mv.editor.Entry())
	})
}

func (mv *MainView) showOpenDialog() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mv.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		if mv.openFileHandler != nil {
			mv.openFileHandler(path)
		}
	}, mv.window)
	d.SetFilter(markdownFilter)
	d.Show()
}

func (mv *MainView) showSaveDialog() {
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mv.window)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()
		if mv.saveFileHandler != nil {
			mv.saveFileHandler(path)
		}
	}, mv.window)
	d.SetFilter(markdownFilter)
	d.SetFileName("slides.md")
	d.Show()
}

func (mv *MainView) showFolderDialog() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, mv.window)
			return
		}
		if dir == nil {
			return
		}
		if mv.openFolderHandler != nil {
			mv.openFolderHandler(dir.Path())
		}
	}, mv.window)
}

// Event handler setters - called by controller

// SetOpenFileHandler sets the handler for files chosen to open
func (mv *MainView) SetOpenFileHandler(handler func(string)) {
	mv.openFileHandler = handler
}

// SetSaveFileHandler sets the handler for the save destination
func (mv *MainView) SetSaveFileHandler(handler func(string)) {
	mv.saveFileHandler = handler
}

// SetOpenFolderHandler sets the handler for folders chosen to browse
func (mv *MainView) SetOpenFolderHandler(handler func(string)) {
	mv.openFolderHandler = handler
}

// SetTextChangedHandler sets the handler for buffer edits
func (mv *MainView) SetTextChangedHandler(handler func(string)) {
	mv.textChangedHandler = handler
}

// SetCursorMovedHandler sets the handler for cursor moves
func (mv *MainView) SetCursorMovedHandler(handler func(int, int)) {
	mv.cursorHandler = handler
}

// SetTreeSelectedHandler sets the handler for clicked browser rows
func (mv *MainView) SetTreeSelectedHandler(handler func(string)) {
	mv.treeHandler = handler
}

// SetOpenInBrowserHandler sets the handler for the browser action
func (mv *MainView) SetOpenInBrowserHandler(handler func()) {
	mv.browserHandler = handler
}

// UI update methods - called by controller on the UI loop

// SetEditorText replaces the buffer
func (mv *MainView) SetEditorText(text string) {
	mv.editor.SetText(text)
}

// SetTitle updates the window title
func (mv *MainView) SetTitle(title string) {
	mv.window.SetTitle(title)
}

// SetCursorPosition updates the cursor label
func (mv *MainView) SetCursorPosition(label string) {
	mv.statusBar.SetCursorPosition(label)
}

// ShowToast shows a transient notification
func (mv *MainView) ShowToast(message string) {
	mv.statusBar.ShowToast(message)
}

// ShowDeck updates the outline and the slide summary
func (mv *MainView) ShowDeck(deck markdown.Deck) {
	mv.previewPane.ShowDeck(deck)
	mv.statusBar.SetDeckSummary(deck.Summary())
}

// ShowPreviewReady records a successful render
func (mv *MainView) ShowPreviewReady(elapsed time.Duration) {
	mv.previewPane.ShowReady(elapsed)
}

// ShowPreviewError shows a failed render inline
func (mv *MainView) ShowPreviewError(message string) {
	mv.previewPane.ShowError(message)
}

// SetTreeRoot shows dir as the browser root, expanded
func (mv *MainView) SetTreeRoot(dir string) {
	mv.browser.ShowRoot(dir)
}

// ToggleTreeBranch expands or collapses dir
func (mv *MainView) ToggleTreeBranch(dir string) {
	mv.browser.Toggle(dir)
}

// RefreshTree redraws the browser
func (mv *MainView) RefreshTree() {
	mv.browser.Refresh()
}

// OpenURL opens raw in the system browser
func (mv *MainView) OpenURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	return mv.app.OpenURL(u)
}

// SetPreviewURL shows the live preview address, empty when no server runs
func (mv *MainView) SetPreviewURL(raw string) {
	if raw == "" {
		mv.toolbar.SetBrowserEnabled(false)
		return
	}
	if err := mv.previewPane.SetPreviewURL(raw); err != nil {
		mv.toolbar.SetBrowserEnabled(false)
		return
	}
	mv.toolbar.SetBrowserEnabled(true)
}

// ShowError displays an error dialog
func (mv *MainView) ShowError(err error) {
	dialog.ShowError(err, mv.window)
}

// Toolbar returns the toolbar component
func (mv *MainView) Toolbar() *components.Toolbar {
	return mv.toolbar
}

// Editor returns the editor component
func (mv *MainView) Editor() *components.Editor {
	return mv.editor
}

// Browser returns the file browser component
func (mv *MainView) Browser() *components.FileBrowser {
	return mv.browser
}

// PreviewPane returns the preview pane component
func (mv *MainView) PreviewPane() *components.PreviewPane {
	return mv.previewPane
}

// StatusBar returns the status bar component
func (mv *MainView) StatusBar() *components.StatusBar {
	return mv.statusBar
}

// GetWindow returns the main window
func (mv *MainView) GetWindow() fyne.Window {
	return mv.window
}

// Shutdown stops view timers
func (mv *MainView) Shutdown() {
	mv.statusBar.Stop()
}
