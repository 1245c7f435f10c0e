package controllers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"presentat/internal/eventloop"
	"presentat/internal/logger"
	"presentat/internal/markdown"
	"presentat/internal/models"
	"presentat/internal/pipeline"
	"presentat/internal/preview"
	"presentat/internal/services"
)

// AppName is shown in the window title
const AppName = "Presentat"

// View is the surface the controller drives. Every method is called on the
// UI loop and handlers are invoked from it.
type View interface {
	SetOpenFileHandler(handler func(path string))
	SetSaveFileHandler(handler func(path string))
	SetOpenFolderHandler(handler func(dir string))
	SetTextChangedHandler(handler func(text string))
	SetCursorMovedHandler(handler func(row, col int))
	SetTreeSelectedHandler(handler func(path string))
	SetOpenInBrowserHandler(handler func())

	SetEditorText(text string)
	SetTitle(title string)
	SetCursorPosition(label string)
	ShowToast(message string)
	ShowDeck(deck markdown.Deck)
	ShowPreviewReady(elapsed time.Duration)
	ShowPreviewError(message string)
	SetTreeRoot(dir string)
	ToggleTreeBranch(dir string)
	RefreshTree()
	OpenURL(url string) error
}

// Renderer displays converted HTML
type Renderer interface {
	Render(frame preview.Frame)
	URL() string
}

// Watcher follows the open file for external modifications
type Watcher interface {
	Watch(path string) error
}

// MainController wires user actions to the file services and the preview
// pipeline. It owns the open Document; apart from the constructor and
// Shutdown, its methods must run on the UI loop.
type MainController struct {
	ctx      context.Context
	files    *services.FileService
	pipeline *pipeline.PreviewPipeline
	renderer Renderer
	tree     *models.FileTree
	poster   eventloop.Poster
	logger   logger.Logger

	trigger *pipeline.Trigger
	watcher Watcher
	view    View

	doc  models.Document
	deck markdown.Deck
}

// Options carries the collaborators of a MainController
type Options struct {
	Files         *services.FileService
	Pipeline      *pipeline.PreviewPipeline
	Renderer      Renderer
	Tree          *models.FileTree
	Poster        eventloop.Poster
	Logger        logger.Logger
	DebounceDelay time.Duration
}

// NewMainController creates a controller; ctx bounds its background file work
func NewMainController(ctx context.Context, opts Options) *MainController {
	mc := &MainController{
		ctx:      ctx,
		files:    opts.Files,
		pipeline: opts.Pipeline,
		renderer: opts.Renderer,
		tree:     opts.Tree,
		poster:   opts.Poster,
		logger:   opts.Logger,
	}
	mc.trigger = pipeline.NewTrigger(opts.DebounceDelay, func() {
		mc.poster.Post(mc.convertNow)
	})
	return mc
}

// SetMainView associates the view and registers its handlers
func (mc *MainController) SetMainView(view View) {
	mc.view = view
	view.SetOpenFileHandler(mc.OpenFile)
	view.SetSaveFileHandler(mc.SaveFile)
	view.SetOpenFolderHandler(mc.OpenFolder)
	view.SetTextChangedHandler(mc.OnTextChanged)
	view.SetCursorMovedHandler(mc.OnCursorMoved)
	view.SetTreeSelectedHandler(mc.SelectTreeEntry)
	view.SetOpenInBrowserHandler(mc.OpenInBrowser)
	view.SetTitle(AppName)
}

// SetWatcher enables reloading of the open file on external change
func (mc *MainController) SetWatcher(w Watcher) {
	mc.watcher = w
}

// Document returns a copy of the open document
func (mc *MainController) Document() models.Document {
	return mc.doc
}

// Deck returns the outline of the last converted text
func (mc *MainController) Deck() markdown.Deck {
	return mc.deck
}

// OpenFile loads path into the editor
func (mc *MainController) OpenFile(path string) {
	if mc.files.IsDir(path) {
		mc.view.ShowToast("Cannot open directory as a file.")
		return
	}

	mc.logger.Info("MainController", "opening file", map[string]interface{}{"path": path})
	mc.files.LoadTextAsync(mc.ctx, path, func(text string, err error) {
		if err != nil {
			mc.doc = models.Document{}
			mc.view.SetEditorText("")
			mc.view.SetTitle(AppName)
			mc.watch("")
			mc.view.ShowToast("Unable to open file: " + models.Message(err))
			mc.trigger.Touch()
			return
		}

		mc.doc.Open(path, text)
		mc.view.SetEditorText(text)
		mc.view.SetTitle(mc.doc.Name())
		mc.view.ShowToast("Opened " + mc.doc.Name())
		mc.watch(path)
		mc.trigger.Touch()
	})
}

// SaveFile writes the buffer to path. An empty buffer is not saved.
func (mc *MainController) SaveFile(path string) {
	text := mc.doc.Text
	if text == "" {
		mc.logger.Debug("MainController", "empty buffer, nothing to save", nil)
		return
	}

	previousDir := mc.doc.BaseDir()
	mc.files.SaveTextAsync(mc.ctx, path, text, func(err error) {
		if err != nil {
			mc.view.ShowToast("Unable to save file: " + models.Message(err))
			return
		}

		mc.doc.Saved(path, text)
		mc.view.SetTitle(mc.doc.Name())
		mc.view.ShowToast("Saved as " + mc.doc.Name())
		mc.watch(path)

		dir := filepath.Dir(path)
		if _, ok := mc.tree.Entry(dir); ok {
			mc.tree.Invalidate(dir)
			mc.view.RefreshTree()
		}
		// relative image paths now resolve against a new directory
		if dir != previousDir {
			mc.trigger.Touch()
		}
	})
}

// OpenFolder shows dir as the root of the file browser
func (mc *MainController) OpenFolder(dir string) {
	root := mc.tree.SetRoot(dir)
	mc.view.SetTreeRoot(root.Path)
	name := filepath.Base(root.Path)
	mc.view.SetTitle(AppName + " - " + name)
	mc.view.ShowToast("Opened folder: " + name)
}

// SelectTreeEntry toggles directories and opens files
func (mc *MainController) SelectTreeEntry(path string) {
	if mc.tree.IsDir(path) {
		mc.view.ToggleTreeBranch(path)
		return
	}
	mc.OpenFile(path)
}

// OnTextChanged records an edit and schedules a conversion
func (mc *MainController) OnTextChanged(text string) {
	if text == mc.doc.Text {
		return
	}
	mc.doc.Edit(text)
	mc.trigger.Touch()
}

// OnCursorMoved updates the position label; row and col are zero based
func (mc *MainController) OnCursorMoved(row, col int) {
	mc.view.SetCursorPosition(fmt.Sprintf("Ln %d, Col %d", row+1, col+1))
}

// OpenInBrowser shows the live preview in the system browser
func (mc *MainController) OpenInBrowser() {
	url := mc.renderer.URL()
	if url == "" {
		mc.view.ShowToast("Preview server is not running")
		return
	}
	if err := mc.view.OpenURL(url); err != nil {
		mc.logger.Error("MainController", err, map[string]interface{}{"url": url})
		mc.view.ShowToast("Unable to open browser: " + err.Error())
	}
}

// OnFileChangedOnDisk reloads the open file unless it has unsaved edits
func (mc *MainController) OnFileChangedOnDisk(path string) {
	if path != mc.doc.Path {
		return
	}
	if mc.doc.Modified {
		mc.view.ShowToast(mc.doc.Name() + " changed on disk")
		return
	}

	mc.files.LoadTextAsync(mc.ctx, path, func(text string, err error) {
		// the user may have edited or switched files in the meantime
		if err != nil || path != mc.doc.Path || mc.doc.Modified || text == mc.doc.Text {
			return
		}
		mc.doc.Open(path, text)
		mc.view.SetEditorText(text)
		mc.view.ShowToast("Reloaded " + mc.doc.Name())
		mc.trigger.Touch()
	})
}

// ConvertNow skips the debounce delay
func (mc *MainController) ConvertNow() {
	mc.trigger.Cancel()
	mc.convertNow()
}

func (mc *MainController) convertNow() {
	req := mc.doc.Snapshot()

	deck, err := markdown.ParseDeck(req.Markdown)
	if err != nil {
		mc.logger.Debug("MainController", "front matter not parsed", map[string]interface{}{"error": err.Error()})
	}
	mc.deck = deck
	mc.view.ShowDeck(deck)

	mc.pipeline.Dispatch(req, mc.onConversionResult)
}

func (mc *MainController) onConversionResult(result models.ConversionResult) {
	frame := preview.Frame{ID: result.RequestID.String()}
	if result.Succeeded() {
		frame.HTML = result.HTML
		frame.AssetRoots = mc.assetRoots(result.BaseDir)
		mc.renderer.Render(frame)
		mc.view.ShowPreviewReady(result.Duration)
		return
	}

	msg := result.Err.Error()
	frame.HTML = preview.ErrorPage("Conversion failed", msg)
	mc.renderer.Render(frame)
	mc.view.ShowPreviewError(msg)
	mc.view.ShowToast("Conversion failed")
}

// assetRoots lists the directories the preview may read images from: the
// document's own directory and the folder shown in the browser
func (mc *MainController) assetRoots(baseDir string) []string {
	var roots []string
	if baseDir != "" {
		roots = append(roots, baseDir)
	}
	if root, ok := mc.tree.Root(); ok && root.Path != baseDir {
		roots = append(roots, root.Path)
	}
	return roots
}

func (mc *MainController) watch(path string) {
	if mc.watcher == nil {
		return
	}
	if err := mc.watcher.Watch(path); err != nil {
		mc.logger.Warning("MainController", "cannot watch file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

// Shutdown stops scheduling conversions
func (mc *MainController) Shutdown() {
	mc.trigger.Shutdown()
}
