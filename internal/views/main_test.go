package views

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentat/internal/controllers"
	"presentat/internal/logger"
	"presentat/internal/markdown"
	"presentat/internal/models"
	"presentat/internal/services"
)

var _ controllers.View = (*MainView)(nil)

type countingLister struct {
	inner *services.DirectoryService
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingLister) ListChildren(dir string) []models.FileListEntry {
	c.mu.Lock()
	c.calls[dir]++
	c.mu.Unlock()
	return c.inner.ListChildren(dir)
}

func (c *countingLister) count(dir string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[dir]
}

func newTestView(t *testing.T, lister models.ChildLister) (*MainView, *models.FileTree) {
	t.Helper()
	a := test.NewTempApp(t)
	w := a.NewWindow("Presentat")
	t.Cleanup(w.Close)
	if lister == nil {
		lister = services.NewDirectoryService(logger.Nop())
	}
	tree := models.NewFileTree(lister)
	mv := NewMainView(a, w, tree)
	t.Cleanup(mv.Shutdown)
	return mv, tree
}

func TestTypingReachesTextHandler(t *testing.T) {
	mv, _ := newTestView(t, nil)
	var last string
	edits := 0
	mv.SetTextChangedHandler(func(text string) {
		last = text
		edits++
	})

	test.Type(mv.Editor().Entry(), "# Hi")
	assert.Equal(t, "# Hi", last)
	assert.Equal(t, 4, edits)
}

func TestSetEditorTextIgnoresIdenticalText(t *testing.T) {
	mv, _ := newTestView(t, nil)
	mv.SetEditorText("same")
	edits := 0
	mv.SetTextChangedHandler(func(string) { edits++ })

	mv.SetEditorText("same")
	assert.Zero(t, edits)
	assert.Equal(t, "same", mv.Editor().Text())
}

func TestStatusUpdates(t *testing.T) {
	mv, _ := newTestView(t, nil)

	mv.SetCursorPosition("Ln 3, Col 7")
	assert.Equal(t, "Ln 3, Col 7", mv.StatusBar().CursorPosition())

	mv.ShowToast("Opened slides.md")
	assert.Equal(t, "Opened slides.md", mv.StatusBar().Toast())
	mv.ShowToast("Conversion failed")
	assert.Equal(t, "Conversion failed", mv.StatusBar().Toast())

	mv.SetTitle("slides.md")
	assert.Equal(t, "slides.md", mv.GetWindow().Title())
}

func TestPreviewPaneStates(t *testing.T) {
	mv, _ := newTestView(t, nil)

	deck, err := markdown.ParseDeck("---\ntheme: gaia\n---\n# One\n\n---\n\n# Two\n")
	require.NoError(t, err)
	mv.ShowDeck(deck)
	assert.Equal(t, 2, mv.PreviewPane().OutlineLen())
	assert.Equal(t, "2 slides · theme gaia", mv.StatusBar().DeckSummary())

	mv.ShowPreviewError("Marp CLI conversion failed with exit code: 1")
	assert.Equal(t, "Conversion failed", mv.PreviewPane().State())
	assert.Equal(t, "Marp CLI conversion failed with exit code: 1", mv.PreviewPane().ErrorText())

	mv.ShowPreviewReady(42 * time.Millisecond)
	assert.Equal(t, "Rendered in 42ms", mv.PreviewPane().State())
	assert.Empty(t, mv.PreviewPane().ErrorText())
}

func TestTreeRootExpandsLazily(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# a"), 0o644))

	lister := &countingLister{inner: services.NewDirectoryService(logger.Nop()), calls: map[string]int{}}
	mv, model := newTestView(t, lister)
	tree := mv.Browser()

	var selected []string
	mv.SetTreeSelectedHandler(func(path string) { selected = append(selected, path) })

	model.SetRoot(dir)
	mv.SetTreeRoot(dir)

	assert.True(t, tree.IsOpen(dir))
	assert.False(t, tree.IsOpen(sub))
	assert.Zero(t, lister.count(sub), "unexpanded directories are not enumerated")
	assert.Zero(t, lister.count(filepath.Join(sub, "deeper")))

	require.Equal(t, []string{sub, filepath.Join(dir, "a.md")}, model.Children(dir))
	mv.ToggleTreeBranch(sub)
	assert.True(t, tree.IsOpen(sub))

	tree.Widget().Select(filepath.Join(dir, "a.md"))
	assert.Equal(t, []string{filepath.Join(dir, "a.md")}, selected)
}

func TestBrowserActionFollowsPreviewURL(t *testing.T) {
	mv, _ := newTestView(t, nil)
	browserButton := mv.Toolbar().Buttons()[3]

	mv.SetPreviewURL("")
	assert.True(t, browserButton.Disabled())

	mv.SetPreviewURL("http://127.0.0.1:4321/")
	assert.False(t, browserButton.Disabled())

	tapped := false
	mv.SetOpenInBrowserHandler(func() { tapped = true })
	test.Tap(browserButton)
	assert.True(t, tapped)
}
