package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers never match on message text
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindToolNotFound
	KindConversionFailed
	KindFileDecode
	KindFileIO
	KindDirectoryEnumeration
	KindPathRewrite
)

func (k ErrorKind) String() string {
	switch k {
	case KindToolNotFound:
		return "tool not found"
	case KindConversionFailed:
		return "conversion failed"
	case KindFileDecode:
		return "file decode error"
	case KindFileIO:
		return "file I/O error"
	case KindDirectoryEnumeration:
		return "directory enumeration error"
	case KindPathRewrite:
		return "path rewrite error"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrToolNotFound         = &Error{Kind: KindToolNotFound}
	ErrConversionFailed     = &Error{Kind: KindConversionFailed}
	ErrFileDecode           = &Error{Kind: KindFileDecode}
	ErrFileIO               = &Error{Kind: KindFileIO}
	ErrDirectoryEnumeration = &Error{Kind: KindDirectoryEnumeration}
	ErrPathRewrite          = &Error{Kind: KindPathRewrite}
)

// Error is the structured failure carried across the application
type Error struct {
	Kind     ErrorKind
	Op       string
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConversionFailed:
		if e.ExitCode != 0 {
			msg := fmt.Sprintf("Marp CLI conversion failed with exit code: %d", e.ExitCode)
			if e.Stderr != "" {
				msg += "\n" + e.Stderr
			}
			return msg
		}
	case KindFileDecode:
		if e.Path != "" {
			return fmt.Sprintf("Invalid text encoding in %s", e.Path)
		}
		return "Invalid text encoding."
	}

	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf extracts the kind of err, KindUnknown when err is not an *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the text shown to the user for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Err != nil && e.Kind == KindFileIO {
		return e.Err.Error()
	}
	return err.Error()
}
