package models

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document is the file open in the editor. It is owned by the UI loop;
// background work only receives snapshots taken from it.
type Document struct {
	// Path of the open file, empty when nothing is open
	Path     string
	Text     string
	Modified bool
	LoadedAt time.Time
}

// IsOpen reports whether a file backs the buffer
func (d *Document) IsOpen() bool {
	return d.Path != ""
}

// Name returns the base name of the open file
func (d *Document) Name() string {
	if d.Path == "" {
		return ""
	}
	return filepath.Base(d.Path)
}

// BaseDir returns the directory used to resolve relative image paths,
// empty when no file is open
func (d *Document) BaseDir() string {
	if d.Path == "" {
		return ""
	}
	return filepath.Dir(d.Path)
}

// Open replaces the document with freshly loaded content
func (d *Document) Open(path, text string) {
	d.Path = path
	d.Text = text
	d.Modified = false
	d.LoadedAt = time.Now()
}

// Close forgets the backing file, keeping the buffer text
func (d *Document) Close() {
	d.Path = ""
	d.Modified = false
}

// Edit records a buffer mutation
func (d *Document) Edit(text string) {
	if text == d.Text {
		return
	}
	d.Text = text
	d.Modified = true
}

// Saved records a successful write of text to path
func (d *Document) Saved(path, text string) {
	d.Path = path
	if d.Text == text {
		d.Modified = false
	}
}

// Snapshot captures the immutable input of one conversion
func (d *Document) Snapshot() ConversionRequest {
	return ConversionRequest{
		ID:        uuid.New(),
		Markdown:  d.Text,
		BaseDir:   d.BaseDir(),
		CreatedAt: time.Now(),
	}
}

// ConversionRequest is the text and base directory at the moment the
// debounce timer fired. It is never mutated after creation.
type ConversionRequest struct {
	ID        uuid.UUID
	Seq       uint64
	Markdown  string
	BaseDir   string
	CreatedAt time.Time
}

// ConversionResult is consumed exactly once by the preview renderer
type ConversionResult struct {
	RequestID uuid.UUID
	Seq       uint64
	BaseDir   string
	HTML      string
	Err       error
	Duration  time.Duration
}

// Succeeded reports whether the conversion produced HTML
func (r ConversionResult) Succeeded() bool {
	return r.Err == nil
}
