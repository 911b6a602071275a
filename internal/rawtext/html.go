package rawtext

import (
	"fmt"
	"io"

	"github.com/dgallion1/codechunk/internal/hierarchy"
	"github.com/dgallion1/codechunk/internal/parser"
	"golang.org/x/net/html"
)

// HTMLLoader returns the visible text of an HTML file, as a reader would
// see it with annotations hidden.
type HTMLLoader struct {
	Levels hierarchy.Levels
}

func (l *HTMLLoader) Load(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	levels := l.Levels
	if levels == nil {
		levels = hierarchy.DefaultLevels()
	}
	return parser.NewWalker(levels).VisibleText(doc), nil
}
