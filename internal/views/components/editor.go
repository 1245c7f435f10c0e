package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// Editor is the Markdown text pane
type Editor struct {
	entry *widget.Entry

	changedHandler func(text string)
	cursorHandler  func(row, col int)
}

// NewEditor creates a new editor component
func NewEditor() *Editor {
	e := &Editor{}
	e.createComponents()
	e.setupEventHandlers()
	return e
}

func (e *Editor) createComponents() {
	e.entry = widget.NewMultiLineEntry()
	e.entry.Wrapping = fyne.TextWrapWord
	e.entry.TextStyle = fyne.TextStyle{Monospace: true}
	e.entry.SetPlaceHolder("Open a Markdown file or start typing slides...")
}

func (e *Editor) setupEventHandlers() {
	e.entry.OnChanged = func(text string) {
		if e.changedHandler != nil {
			e.changedHandler(text)
		}
	}
	e.entry.OnCursorChanged = func() {
		if e.cursorHandler != nil {
			e.cursorHandler(e.entry.CursorRow, e.entry.CursorColumn)
		}
	}
}

// SetChangedHandler sets the handler called on every text mutation
func (e *Editor) SetChangedHandler(handler func(text string)) {
	e.changedHandler = handler
}

// SetCursorHandler sets the handler called when the cursor moves
func (e *Editor) SetCursorHandler(handler func(row, col int)) {
	e.cursorHandler = handler
}

// SetText replaces the buffer
func (e *Editor) SetText(text string) {
	if e.entry.Text == text {
		return
	}
	e.entry.SetText(text)
}

// Text returns the buffer
func (e *Editor) Text() string {
	return e.entry.Text
}

// GoToLine moves the cursor to the start of a 1-based line
func (e *Editor) GoToLine(line int) {
	if line < 1 {
		line = 1
	}
	e.entry.CursorRow = line - 1
	e.entry.CursorColumn = 0
	e.entry.Refresh()
	if e.cursorHandler != nil {
		e.cursorHandler(e.entry.CursorRow, e.entry.CursorColumn)
	}
}

// Entry returns the underlying widget
func (e *Editor) Entry() *widget.Entry {
	return e.entry
}
