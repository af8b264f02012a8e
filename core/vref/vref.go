// Package vref parses verse references of the form "GEN 1:1".
//
// These are the reference lines of a BibleNLP corpus. Chapter and verse
// may be empty ("GEN 1:" for text before the first verse of a chapter,
// "GEN :" for text before the first chapter), a verse may carry a segment
// letter ("GEN 1:1a") or be a range ("GEN 1:1-3").
package vref

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/wkelly17/usfm-grammar/core/errors"
)

// Ref is a parsed verse reference.
type Ref struct {
	Book    string `json:"book"`
	Chapter string `json:"chapter,omitempty"`
	Verse   string `json:"verse,omitempty"`
	Segment string `json:"segment,omitempty"`
	End     string `json:"end,omitempty"`
}

type refGrammar struct {
	Book    string     `parser:"@Book"`
	Chapter string     `parser:"@Int?"`
	Verse   *versePart `parser:"\":\" @@?"`
}

type versePart struct {
	Start   string `parser:"@Int"`
	Segment string `parser:"@Segment?"`
	End     string `parser:"( \"-\" @Int )?"`
}

// Book codes have at least one uppercase letter, so a bare number never
// lexes as a book.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Book", Pattern: `[0-9]?[A-Z][0-9A-Z]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Segment", Pattern: `[a-z]`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a single reference.
func Parse(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &errors.ParseError{Format: "vref", Message: "empty reference"}
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, &errors.ParseError{Format: "vref", Message: strconv.Quote(s) + ": " + err.Error(), Err: err}
	}

	ref := &Ref{Book: parsed.Book, Chapter: parsed.Chapter}
	if parsed.Verse != nil {
		ref.Verse = parsed.Verse.Start
		ref.Segment = parsed.Verse.Segment
		ref.End = parsed.Verse.End
	}
	return ref, nil
}

// String renders the reference in "{book} {chapter}:{verse}" form.
func (r *Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(r.Chapter)
	sb.WriteByte(':')
	sb.WriteString(r.Verse)
	sb.WriteString(r.Segment)
	if r.End != "" {
		sb.WriteByte('-')
		sb.WriteString(r.End)
	}
	return sb.String()
}

// IsRange reports whether the reference spans several verses.
func (r *Ref) IsRange() bool {
	return r.End != ""
}

// ParseLines parses one reference per line. Blank lines are errors because
// they would shift every later line out of alignment with the text file.
// The returned error carries the 1-based line number.
func ParseLines(r io.Reader) ([]*Ref, error) {
	var refs []*Ref
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		ref, err := Parse(sc.Text())
		if err != nil {
			var pe *errors.ParseError
			if errors.As(err, &pe) {
				pe.Line = line
			}
			return refs, err
		}
		refs = append(refs, ref)
	}
	if err := sc.Err(); err != nil {
		return refs, errors.NewIO("read", "", err)
	}
	return refs, nil
}
