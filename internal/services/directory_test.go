package services

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentat/internal/logger"
	"presentat/internal/models"
)

func TestListChildren(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "images", "deep.png"), nil, 0o644))

	ds := NewDirectoryService(logger.Nop())
	got := ds.ListChildren(root)

	want := []models.FileListEntry{
		{Path: filepath.Join(root, "images"), DisplayName: "images", IsDir: true},
		{Path: filepath.Join(root, "A.md"), DisplayName: "A.md"},
		{Path: filepath.Join(root, "b.md"), DisplayName: "b.md"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListChildren mismatch (-want +got):\n%s", diff)
	}
}

func TestListChildrenFollowsSymlinkedDirectories(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(root, "linked")))

	got := NewDirectoryService(logger.Nop()).ListChildren(root)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsDir)
}

func TestListChildrenWithoutPermissionIsEmpty(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	locked := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "secret.md"), nil, 0o644))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	got := NewDirectoryService(logger.Nop()).ListChildren(locked)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListChildrenMissingDirectory(t *testing.T) {
	got := NewDirectoryService(logger.Nop()).ListChildren(filepath.Join(t.TempDir(), "gone"))
	assert.Empty(t, got)
}
