package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"presentat/internal/eventloop"
	"presentat/internal/logger"
	"presentat/internal/models"
)

// FileService reads and writes UTF-8 text files. The blocking methods are
// meant for background goroutines; the Async variants run them off the loop
// and post the outcome back through the Poster.
type FileService struct {
	poster eventloop.Poster
	logger logger.Logger
}

// NewFileService creates a new file service
func NewFileService(poster eventloop.Poster, log logger.Logger) *FileService {
	return &FileService{poster: poster, logger: log}
}

// LoadText reads path and decodes it as UTF-8
func (fs *FileService) LoadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &models.Error{Kind: models.KindFileIO, Op: "load", Path: path, Err: unwrapPathError(err)}
	}
	if !utf8.Valid(data) {
		return "", &models.Error{Kind: models.KindFileDecode, Op: "load", Path: path}
	}
	return string(data), nil
}

// SaveText replaces the contents of path with text. The data is written to a
// temporary file in the same directory and renamed over the target.
func (fs *FileService) SaveText(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := resolveSaveTarget(path)
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return &models.Error{Kind: models.KindFileIO, Op: "save", Path: path, Err: unwrapPathError(err)}
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &models.Error{Kind: models.KindFileIO, Op: "save", Path: path, Err: unwrapPathError(cause)}
	}

	if _, err := tmp.WriteString(text); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &models.Error{Kind: models.KindFileIO, Op: "save", Path: path, Err: err}
	}

	if info, err := os.Stat(target); err == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	} else {
		_ = os.Chmod(tmpName, 0o644)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return &models.Error{Kind: models.KindFileIO, Op: "save", Path: path, Err: unwrapPathError(err)}
	}
	return nil
}

// resolveSaveTarget follows symlinks so the rename replaces the file the
// link points at and the link itself survives. A dangling link resolves to
// its destination.
func resolveSaveTarget(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return path
	}
	dest, err := os.Readlink(path)
	if err != nil {
		return path
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(filepath.Dir(path), dest)
	}
	return dest
}

// IsDir reports whether path names a directory. Stat failures report false.
func (fs *FileService) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// LoadTextAsync loads path in the background and delivers the result on the loop
func (fs *FileService) LoadTextAsync(ctx context.Context, path string, done func(text string, err error)) {
	go func() {
		text, err := fs.LoadText(ctx, path)
		if err != nil {
			fs.logger.Warning("FileService", "load failed", map[string]interface{}{
				"path": path,
				"kind": models.KindOf(err).String(),
			})
		}
		fs.poster.Post(func() {
			done(text, err)
		})
	}()
}

// SaveTextAsync saves in the background and delivers the result on the loop
func (fs *FileService) SaveTextAsync(ctx context.Context, path, text string, done func(err error)) {
	go func() {
		err := fs.SaveText(ctx, path, text)
		if err != nil {
			fs.logger.Error("FileService", err, map[string]interface{}{"path": path})
		} else {
			fs.logger.Debug("FileService", "saved", map[string]interface{}{
				"path":  path,
				"bytes": len(text),
			})
		}
		fs.poster.Post(func() {
			done(err)
		})
	}()
}

// unwrapPathError drops the op/path prefix so messages read like the OS error
func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}
