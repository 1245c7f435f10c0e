package components

import (
	"fmt"
	"net/url"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"presentat/internal/markdown"
)

// PreviewPane shows where the live preview is served, the outline of the
// deck and the outcome of the last conversion
type PreviewPane struct {
	container   *fyne.Container
	link        *widget.Hyperlink
	stateLabel  *widget.Label
	errorLabel  *widget.Label
	outlineList *widget.List

	slides []markdown.Slide

	slideHandler func(line int)
}

// NewPreviewPane creates a new preview pane component
func NewPreviewPane() *PreviewPane {
	pp := &PreviewPane{}
	pp.createComponents()
	pp.buildLayout()
	return pp
}

func (pp *PreviewPane) createComponents() {
	pp.link = widget.NewHyperlink("Preview not available", nil)
	pp.stateLabel = widget.NewLabel("Waiting for the first conversion")

	pp.errorLabel = widget.NewLabel("")
	pp.errorLabel.Wrapping = fyne.TextWrapWord
	pp.errorLabel.Importance = widget.DangerImportance
	pp.errorLabel.Hide()

	pp.outlineList = widget.NewList(
		func() int { return len(pp.slides) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(slideLabel(id, pp.slides[id]))
		},
	)
	pp.outlineList.OnSelected = func(id widget.ListItemID) {
		pp.outlineList.Unselect(id)
		if pp.slideHandler != nil && id < len(pp.slides) && pp.slides[id].Line > 0 {
			pp.slideHandler(pp.slides[id].Line)
		}
	}
}

func (pp *PreviewPane) buildLayout() {
	header := container.NewVBox(
		widget.NewLabelWithStyle("Preview", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		pp.link,
		pp.stateLabel,
		pp.errorLabel,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Outline", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
	)
	pp.container = container.NewBorder(header, nil, nil, nil, pp.outlineList)
}

func slideLabel(index int, s markdown.Slide) string {
	title := s.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%d. %s", index+1, title)
}

// SetPreviewURL points the link at the running preview server
func (pp *PreviewPane) SetPreviewURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid preview url %q: %w", raw, err)
	}
	pp.link.SetText(raw)
	pp.link.SetURL(u)
	return nil
}

// SetSlideHandler sets the handler called with the line of a selected slide
func (pp *PreviewPane) SetSlideHandler(handler func(line int)) {
	pp.slideHandler = handler
}

// ShowDeck replaces the outline
func (pp *PreviewPane) ShowDeck(deck markdown.Deck) {
	pp.slides = deck.Slides
	pp.outlineList.Refresh()
}

// ShowReady records a successful render
func (pp *PreviewPane) ShowReady(elapsed time.Duration) {
	pp.errorLabel.SetText("")
	pp.errorLabel.Hide()
	pp.stateLabel.SetText(fmt.Sprintf("Rendered in %s", elapsed.Round(time.Millisecond)))
}

// ShowError displays a conversion failure in place of the preview state
func (pp *PreviewPane) ShowError(message string) {
	pp.stateLabel.SetText("Conversion failed")
	pp.errorLabel.SetText(message)
	pp.errorLabel.Show()
}

// State returns the render state line
func (pp *PreviewPane) State() string {
	return pp.stateLabel.Text
}

// ErrorText returns the visible error, empty when the last render succeeded
func (pp *PreviewPane) ErrorText() string {
	if !pp.errorLabel.Visible() {
		return ""
	}
	return pp.errorLabel.Text
}

// OutlineLen returns the number of slides in the outline
func (pp *PreviewPane) OutlineLen() int {
	return len(pp.slides)
}

// GetContainer returns the preview pane container
func (pp *PreviewPane) GetContainer() *fyne.Container {
	return pp.container
}
