package services

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"presentat/internal/logger"
	"presentat/internal/models"
)

// DirectoryService enumerates one directory level at a time for the sidebar
type DirectoryService struct {
	logger logger.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(log logger.Logger) *DirectoryService {
	return &DirectoryService{logger: log}
}

// ListChildren returns the direct children of dir, directories first and
// then by name. Enumeration failures yield an empty list.
func (ds *DirectoryService) ListChildren(dir string) []models.FileListEntry {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		ds.logger.Warning("DirectoryService", "error reading directory", map[string]interface{}{
			"path":  dir,
			"error": (&models.Error{Kind: models.KindDirectoryEnumeration, Path: dir, Err: err}).Error(),
		})
		return []models.FileListEntry{}
	}

	entries := make([]models.FileListEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		path := filepath.Join(dir, de.Name())
		entries = append(entries, models.NewFileListEntry(path, isDirEntry(path, de)))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].DisplayName) < strings.ToLower(entries[j].DisplayName)
	})
	return entries
}

// isDirEntry follows symlinks so linked folders expand like real ones
func isDirEntry(path string, de os.DirEntry) bool {
	if de.Type()&os.ModeSymlink == 0 {
		return de.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
