package flatten

import (
	"fmt"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/usj"
)

// Pseudo marker names understood by the table filters.
const (
	// MarkerBook names the book identification row.
	MarkerBook = "id"
	// MarkerText blanks the text column when excluded.
	MarkerText = "text"
)

// Row is one line of the flattened table.
type Row struct {
	Book    string `json:"book"`
	Chapter string `json:"chapter"`
	Verse   string `json:"verse"`
	Text    string `json:"text"`
	Type    string `json:"type"`
	Marker  string `json:"marker"`
}

// Header is the literal first row of every table.
var Header = Row{
	Book:    "Book",
	Chapter: "Chapter",
	Verse:   "Verse",
	Text:    "Text",
	Type:    "Type",
	Marker:  "Marker",
}

// Record returns the row as a six-field slice in column order.
func (r Row) Record() []string {
	return []string{r.Book, r.Chapter, r.Verse, r.Text, r.Type, r.Marker}
}

// Table is the ordered output of ToTable. Rows excludes the header.
type Table struct {
	Rows []Row
}

// Records returns the header followed by every row, as string slices.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, Header.Record())
	for _, r := range t.Rows {
		out = append(out, r.Record())
	}
	return out
}

// MarkerSet is a set of marker names. A nil or empty set is inactive.
type MarkerSet map[string]struct{}

// NewMarkerSet builds a set from names.
func NewMarkerSet(names ...string) MarkerSet {
	if len(names) == 0 {
		return nil
	}
	s := make(MarkerSet, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s MarkerSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Active reports whether the set filters anything.
func (s MarkerSet) Active() bool {
	return len(s) > 0
}

// Filter selects which rows ToTable emits.
//
// Exclude and Include may be used alone or together. When both are set a
// marker must pass both: it must not be excluded and it must be included,
// so exclusion wins over inclusion.
type Filter struct {
	Exclude MarkerSet
	Include MarkerSet
}

// allows reports whether rows for marker name pass the filter.
func (f Filter) allows(name string) bool {
	if f.Exclude.Has(name) {
		return false
	}
	if f.Include.Active() && !f.Include.Has(name) {
		return false
	}
	return true
}

// ToTable flattens the tree under node into rows.
//
// Text runs become rows carrying the enclosing marker's type and name.
// A node without content becomes one row with empty text, when the filter
// allows its marker. The book node and its text are skipped when "id" is
// not allowed. Excluding "text" keeps every row but blanks its text, so
// row positions line up with the unfiltered table.
//
// A node without a type, a book without a code, or a chapter or verse
// without a number stops the conversion with a MalformedNodeError.
func ToTable(node *usj.Node, filter Filter) (*Table, error) {
	p := &tableProjector{filter: filter, table: &Table{}}
	if err := p.walk(node); err != nil {
		return nil, fmt.Errorf("to table: %w", err)
	}
	return p.table, nil
}

type tableProjector struct {
	cursor
	filter Filter
	table  *Table
}

func (p *tableProjector) walk(n *usj.Node) error {
	k, err := p.visit(n)
	if err != nil {
		return err
	}
	if k == kindBook && !p.filter.allows(MarkerBook) {
		return nil
	}

	typ, name := markerType(n), n.Marker
	blankText := p.filter.Exclude.Has(MarkerText)

	for i, item := range n.Content {
		switch v := item.(type) {
		case usj.Text:
			text := string(v)
			if blankText {
				text = ""
			}
			p.emit(text, typ, name)
		case *usj.Node:
			p.enter(i)
			if err := p.walk(v); err != nil {
				return err
			}
			p.leave()
		default:
			return errors.NewMalformed(p.path.String(), n.Type, "content", fmt.Sprintf("element %d is neither text nor node", i))
		}
	}

	if n.IsLeaf() && p.filter.allows(name) {
		p.emit("", typ, name)
	}
	return nil
}

func (p *tableProjector) emit(text, typ, name string) {
	p.table.Rows = append(p.table.Rows, Row{
		Book:    p.book,
		Chapter: p.chapter,
		Verse:   p.verse,
		Text:    text,
		Type:    typ,
		Marker:  name,
	})
}
