package usj

import (
	"maps"
	"regexp"
)

// Node types with traversal meaning.
const (
	// TypeRoot is the type of the document root.
	TypeRoot = "USJ"
	// TypeBook identifies the book (\id) node carrying the book code.
	TypeBook = "book"
	// TypeChapter identifies a chapter (\c) node.
	TypeChapter = "chapter"
	// TypeVerse identifies a verse (\v) node.
	TypeVerse = "verse"
	// TypeRef identifies a reference node, which may have no marker.
	TypeRef = "ref"
)

// Content is one element of a node's content list: either Text or *Node.
type Content interface {
	isContent()
}

// Text is a literal text run.
type Text string

func (Text) isContent() {}

// Node is a structural or character marker in a USJ tree.
type Node struct {
	// Type is the node kind (e.g. "book", "chapter", "para", "char").
	Type string

	// Marker is the USFM marker code (e.g. "p", "q1", "wj"). Empty on the root.
	Marker string

	// Code is the book code. Set only on book nodes.
	Code string

	// Number is the chapter or verse number. Set only on chapter and verse nodes.
	Number string

	// Content holds text runs and child nodes. Nil or empty marks a leaf.
	Content []Content

	// Attrs holds every other attribute (version, sid, altnumber, caller, ...).
	Attrs map[string]string
}

func (*Node) isContent() {}

// IsLeaf reports whether the node has no content.
func (n *Node) IsLeaf() bool {
	return len(n.Content) == 0
}

// Attr returns the named attribute, or "" when absent.
func (n *Node) Attr(name string) string {
	return n.Attrs[name]
}

// SetAttr sets an attribute, allocating the map on first use.
func (n *Node) SetAttr(name, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
}

// shallowCopy copies the scalar fields and attributes but not the content.
func (n *Node) shallowCopy() *Node {
	c := *n
	c.Content = nil
	if n.Attrs != nil {
		c.Attrs = maps.Clone(n.Attrs)
	}
	return &c
}

var trailingNum = regexp.MustCompile(`\d+$`)

// BaseMarker returns the marker with any trailing level digits removed
// ("q1" becomes "q"). Reference nodes without a marker report "ref".
func (n *Node) BaseMarker() string {
	if n.Marker != "" {
		return trailingNum.ReplaceAllString(n.Marker, "")
	}
	if n.Type == TypeRef {
		return TypeRef
	}
	return ""
}
