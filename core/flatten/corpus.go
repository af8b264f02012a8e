package flatten

import (
	"fmt"
	"strings"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/usj"
)

// Corpus is verse-aligned text. Text[i] is the text of reference VRef[i];
// both slices always have the same length.
type Corpus struct {
	Text []string `json:"text"`
	VRef []string `json:"vref"`
}

// Len returns the number of entries.
func (c *Corpus) Len() int {
	return len(c.VRef)
}

// FormatRef renders a reference as "{book} {chapter}:{verse}".
func FormatRef(book, chapter, verse string) string {
	return book + " " + chapter + ":" + verse
}

// ToAlignedCorpus collects the text under node into one entry per verse
// reference, in document order.
//
// Text runs have line breaks (LF, CRLF or CR) turned into spaces and are
// trimmed. A run whose chapter and verse equal those of the last entry is
// appended to it with a single space, so a verse split across paragraphs
// or character markers stays one entry. Runs that are blank after trimming
// add nothing. Any other run starts a new entry. Book node content
// never contributes.
func ToAlignedCorpus(node *usj.Node) (*Corpus, error) {
	a := &aligner{corpus: &Corpus{Text: []string{}, VRef: []string{}}}
	if err := a.walk(node); err != nil {
		return nil, fmt.Errorf("to aligned corpus: %w", err)
	}
	return a.corpus, nil
}

type aligner struct {
	cursor
	prevChapter string
	prevVerse   string
	corpus      *Corpus
}

func (a *aligner) walk(n *usj.Node) error {
	k, err := a.visit(n)
	if err != nil {
		return err
	}
	if k == kindBook {
		return nil
	}

	for i, item := range n.Content {
		switch v := item.(type) {
		case usj.Text:
			a.add(normalize(string(v)))
		case *usj.Node:
			a.enter(i)
			if err := a.walk(v); err != nil {
				return err
			}
			a.leave()
		default:
			return errors.NewMalformed(a.path.String(), n.Type, "content", fmt.Sprintf("element %d is neither text nor node", i))
		}
	}
	return nil
}

func (a *aligner) add(text string) {
	c := a.corpus
	if len(c.Text) > 0 && a.chapter == a.prevChapter && a.verse == a.prevVerse {
		last := len(c.Text) - 1
		// Blank fragments are not joined with a space, so a verse never
		// gains leading, trailing or doubled spaces from empty runs.
		switch {
		case text == "":
		case c.Text[last] == "":
			c.Text[last] = text
		default:
			c.Text[last] += " " + text
		}
		return
	}

	c.Text = append(c.Text, text)
	c.VRef = append(c.VRef, FormatRef(a.book, a.chapter, a.verse))
	a.prevChapter = a.chapter
	a.prevVerse = a.verse
}

// lineBreaks folds CRLF, CR and LF into a single space.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func normalize(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
