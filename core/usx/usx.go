// Package usx loads Unified Scripture XML (USX) documents into USJ trees.
//
// USX is already a structural document, so loading is a direct element
// mapping rather than markup parsing:
//
//   - <usx> becomes the USJ root, keeping its version
//   - <book code="GEN" style="id"> becomes a book node
//   - <chapter number="1" style="c"> and <verse number="1" style="v"> keep
//     their numbers; end milestones (eid only) are dropped
//   - <row> and <cell> become "table:row" and "table:cell"
//   - any other element keeps its name as the type and style as the marker
//
// Whitespace-only text that contains a newline is indentation and is dropped.
//
// Parsing uses xmlquery, which sits on encoding/xml and never fetches
// external entities.
package usx

import (
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/usj"
)

var rootExpr = xpath.MustCompile("/usx")

// element names whose USJ type differs from the USX name
var typeNames = map[string]string{
	"row":  "table:row",
	"cell": "table:cell",
}

// attributes that map onto Node fields instead of Attrs
var fieldAttrs = map[string]bool{
	"style":  true,
	"code":   true,
	"number": true,
}

// Load reads a USX document from r.
func Load(r io.Reader) (*usj.Node, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "USX", Message: err.Error(), Err: err}
	}

	root := xmlquery.QuerySelector(doc, rootExpr)
	if root == nil {
		return nil, errors.NewParse("USX", "", "missing <usx> root element")
	}
	return convert(root), nil
}

func convert(e *xmlquery.Node) *usj.Node {
	n := &usj.Node{Type: e.Data}
	if t, ok := typeNames[e.Data]; ok {
		n.Type = t
	}

	switch e.Data {
	case "usx":
		n.Type = usj.TypeRoot
	case "book":
		n.Code = e.SelectAttr("code")
	case "chapter", "verse":
		n.Number = e.SelectAttr("number")
	}
	n.Marker = e.SelectAttr("style")

	for _, a := range e.Attr {
		name := a.Name.Local
		if a.Name.Space != "" && a.Name.Space != "xmlns" {
			name = a.Name.Space + ":" + name
		}
		if a.Name.Space == "xmlns" || name == "xmlns" || fieldAttrs[name] {
			continue
		}
		n.SetAttr(name, a.Value)
	}

	for c := e.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			if isEndMilestone(c) {
				continue
			}
			n.Content = append(n.Content, convert(c))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if isIndentation(c.Data) {
				continue
			}
			n.Content = append(n.Content, usj.Text(c.Data))
		}
	}
	return n
}

// isEndMilestone reports chapter and verse end markers, which carry only eid.
func isEndMilestone(e *xmlquery.Node) bool {
	if e.Data != "chapter" && e.Data != "verse" {
		return false
	}
	return e.SelectAttr("eid") != "" && e.SelectAttr("number") == ""
}

func isIndentation(s string) bool {
	return strings.TrimSpace(s) == "" && strings.ContainsAny(s, "\r\n")
}
