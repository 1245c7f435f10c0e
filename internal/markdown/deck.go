package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Directives are the global Marp settings declared in front matter
type Directives struct {
	Marp     bool   `yaml:"marp"`
	Theme    string `yaml:"theme"`
	Paginate bool   `yaml:"paginate"`
	Size     string `yaml:"size"`
	Title    string `yaml:"title"`
	Class    string `yaml:"class"`
}

// Slide is one page of the deck
type Slide struct {
	// Title is the text of the first heading on the slide, if any
	Title string
	// Line is the 1-based line of that heading in the full text, 0 without a heading
	Line int
}

// Deck summarizes a Marp document for the outline and status bar
type Deck struct {
	Directives     Directives
	HasFrontMatter bool
	Slides         []Slide
}

// Summary renders a short human readable description
func (d Deck) Summary() string {
	n := len(d.Slides)
	unit := "slides"
	if n == 1 {
		unit = "slide"
	}
	s := fmt.Sprintf("%d %s", n, unit)
	if d.Directives.Theme != "" {
		s += " · theme " + d.Directives.Theme
	}
	return s
}

var deckParser = goldmark.New().Parser()

// ParseDeck reads front matter directives and splits the body into slides
// on thematic breaks. Malformed front matter is reported as an error while
// the outline is still produced.
func ParseDeck(markdown string) (Deck, error) {
	var deck Deck

	body, front, bodyLine, ok := splitFrontMatter(markdown)
	var yamlErr error
	if ok {
		deck.HasFrontMatter = true
		if err := yaml.Unmarshal([]byte(front), &deck.Directives); err != nil {
			yamlErr = fmt.Errorf("invalid front matter: %w", err)
		}
	}

	source := []byte(body)
	doc := deckParser.Parse(text.NewReader(source))

	current := Slide{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.ThematicBreak:
			deck.Slides = append(deck.Slides, current)
			current = Slide{}
			return ast.WalkSkipChildren, nil
		case *ast.Heading:
			if current.Title == "" {
				current.Title = strings.TrimSpace(inlineText(node, source))
				if node.Lines().Len() > 0 {
					start := node.Lines().At(0).Start
					current.Line = bodyLine + bytes.Count(source[:start], []byte("\n"))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	deck.Slides = append(deck.Slides, current)

	return deck, yamlErr
}

// splitFrontMatter returns the body, the YAML block and the 1-based line the
// body starts on. ok is false when the text has no front matter.
func splitFrontMatter(markdown string) (body, front string, bodyLine int, ok bool) {
	normalized := strings.ReplaceAll(markdown, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return normalized, "", 1, false
	}

	lines := strings.Split(normalized, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == "---" {
			front = strings.Join(lines[1:i], "\n")
			body = strings.Join(lines[i+1:], "\n")
			return body, front, i + 2, true
		}
	}
	return normalized, "", 1, false
}

func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
