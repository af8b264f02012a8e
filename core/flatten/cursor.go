package flatten

import (
	"github.com/wkelly17/usfm-grammar/core/usj"
)

// kind classifies a node for traversal.
type kind int

const (
	kindOther kind = iota
	kindBook
	kindChapter
	kindVerse
)

// cursor is the book/chapter/verse context of one traversal.
type cursor struct {
	book    string
	chapter string
	verse   string

	// path holds content indexes from the root, for error messages.
	path usj.Path
}

// visit checks n, classifies it and moves the cursor when n is a book,
// chapter or verse node.
func (c *cursor) visit(n *usj.Node) (kind, error) {
	if err := usj.CheckNode(n, c.path); err != nil {
		return kindOther, err
	}

	switch n.Type {
	case usj.TypeBook:
		c.book = n.Code
		return kindBook, nil
	case usj.TypeChapter:
		c.chapter = n.Number
		c.verse = ""
		return kindChapter, nil
	case usj.TypeVerse:
		c.verse = n.Number
		return kindVerse, nil
	}
	return kindOther, nil
}

func (c *cursor) enter(i int) {
	c.path = append(c.path, i)
}

func (c *cursor) leave() {
	c.path = c.path[:len(c.path)-1]
}

// markerType is the node type reported in output. The root of a flattened
// document has no meaningful type.
func markerType(n *usj.Node) string {
	if n.Type == usj.TypeRoot {
		return ""
	}
	return n.Type
}
