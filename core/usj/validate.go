package usj

import (
	"fmt"
	"strings"

	"github.com/wkelly17/usfm-grammar/core/errors"
)

// Path records the content indexes leading from the root to a node.
// It is formatted only when an error needs it.
type Path []int

// String formats the path as "/content[i]/content[j]".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, i := range p {
		fmt.Fprintf(&sb, "/content[%d]", i)
	}
	return sb.String()
}

// CheckNode verifies the fields that traversal relies on: every node has
// a type, book nodes have a code, and chapter and verse nodes have a number.
func CheckNode(n *Node, path Path) error {
	if n == nil {
		return errors.NewMalformed(path.String(), "", "content", "has a null element")
	}
	switch n.Type {
	case "":
		return errors.NewMalformed(path.String(), "", "type", "is empty")
	case TypeBook:
		if n.Code == "" {
			return errors.NewMalformed(path.String(), n.Type, "code", "is empty")
		}
	case TypeChapter, TypeVerse:
		if n.Number == "" {
			return errors.NewMalformed(path.String(), n.Type, "number", "is empty")
		}
	}
	return nil
}

// Validate checks every node in the tree with CheckNode and returns the
// first problem found in document order.
func Validate(n *Node) error {
	return validate(n, nil)
}

func validate(n *Node, path Path) error {
	if err := CheckNode(n, path); err != nil {
		return err
	}
	for i, item := range n.Content {
		if child, ok := item.(*Node); ok {
			if err := validate(child, append(path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}
