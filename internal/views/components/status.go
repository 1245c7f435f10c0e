package components

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// DefaultToastDuration is how long a toast stays in the status bar
const DefaultToastDuration = 3 * time.Second

// StatusBar shows transient notifications, the deck summary and the
// cursor position
type StatusBar struct {
	container   *fyne.Container
	toastLabel  *widget.Label
	deckLabel   *widget.Label
	cursorLabel *widget.Label

	toastDuration time.Duration

	mu         sync.Mutex
	toastGen   uint64
	toastTimer *time.Timer
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	sb := &StatusBar{toastDuration: DefaultToastDuration}
	sb.createComponents()
	sb.buildLayout()
	return sb
}

func (sb *StatusBar) createComponents() {
	sb.toastLabel = widget.NewLabel("")
	sb.toastLabel.Truncation = fyne.TextTruncateEllipsis
	sb.deckLabel = widget.NewLabel("")
	sb.cursorLabel = widget.NewLabel("Ln 1, Col 1")
}

func (sb *StatusBar) buildLayout() {
	right := container.NewHBox(
		sb.deckLabel,
		widget.NewSeparator(),
		sb.cursorLabel,
	)
	sb.container = container.NewBorder(nil, nil, nil, right, sb.toastLabel)
}

// ShowToast displays message until the toast duration passes or
// another toast replaces it
func (sb *StatusBar) ShowToast(message string) {
	sb.toastLabel.SetText(message)

	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.toastGen++
	gen := sb.toastGen
	if sb.toastTimer != nil {
		sb.toastTimer.Stop()
	}
	sb.toastTimer = time.AfterFunc(sb.toastDuration, func() {
		fyne.Do(func() {
			sb.clearToast(gen)
		})
	})
}

func (sb *StatusBar) clearToast(gen uint64) {
	sb.mu.Lock()
	current := sb.toastGen
	sb.mu.Unlock()
	if gen == current {
		sb.toastLabel.SetText("")
	}
}

// Toast returns the message currently shown
func (sb *StatusBar) Toast() string {
	return sb.toastLabel.Text
}

// SetToastDuration changes how long later toasts stay visible
func (sb *StatusBar) SetToastDuration(d time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.toastDuration = d
}

// SetCursorPosition updates the cursor label
func (sb *StatusBar) SetCursorPosition(label string) {
	sb.cursorLabel.SetText(label)
}

// CursorPosition returns the cursor label text
func (sb *StatusBar) CursorPosition() string {
	return sb.cursorLabel.Text
}

// SetDeckSummary updates the slide count display
func (sb *StatusBar) SetDeckSummary(summary string) {
	sb.deckLabel.SetText(summary)
}

// DeckSummary returns the slide count display
func (sb *StatusBar) DeckSummary() string {
	return sb.deckLabel.Text
}

// Stop cancels a pending toast clear
func (sb *StatusBar) Stop() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.toastTimer != nil {
		sb.toastTimer.Stop()
	}
}

// GetContainer returns the status bar container
func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}
