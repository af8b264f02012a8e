package usx

import (
	"errors"
	"strings"
	"testing"

	usferrors "github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/flatten"
	"github.com/wkelly17/usfm-grammar/core/usj"
)

const sampleUSX = `<?xml version="1.0" encoding="utf-8"?>
<usx version="3.0">
  <book code="GEN" style="id">Genesis</book>
  <chapter number="1" style="c" sid="GEN 1" />
  <para style="s1">The Creation</para>
  <para style="p">
    <verse number="1" style="v" sid="GEN 1:1" />In the beginning <char style="nd">God</char> created<note caller="+" style="f"><char style="ft">a note</char></note><verse eid="GEN 1:1" />
    <verse number="2" style="v" sid="GEN 1:2" />The earth<verse eid="GEN 1:2" /></para>
  <table>
    <row style="tr"><cell style="tc1" align="start">cell text</cell></row>
  </table>
  <chapter eid="GEN 1" />
</usx>`

func TestLoad(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleUSX))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if doc.Type != usj.TypeRoot {
		t.Errorf("root Type = %q, want %q", doc.Type, usj.TypeRoot)
	}
	if doc.Attr("version") != "3.0" {
		t.Errorf("version = %q, want 3.0", doc.Attr("version"))
	}

	book := usj.First(doc, usj.OfType(usj.TypeBook))
	if book == nil || book.Code != "GEN" || book.Marker != "id" {
		t.Fatalf("book = %+v", book)
	}
	if book.Attr("code") != "" {
		t.Error("code should be a field, not an attribute")
	}

	chapters := usj.All(doc, usj.OfType(usj.TypeChapter))
	if len(chapters) != 1 {
		t.Errorf("found %d chapter nodes, want 1 (end milestone dropped)", len(chapters))
	}
	if chapters[0].Number != "1" || chapters[0].Attr("sid") != "GEN 1" {
		t.Errorf("chapter = %+v", chapters[0])
	}

	verses := usj.All(doc, usj.OfType(usj.TypeVerse))
	if len(verses) != 2 {
		t.Errorf("found %d verse nodes, want 2", len(verses))
	}

	note := usj.First(doc, usj.OfType("note"))
	if note == nil || note.Marker != "f" || note.Attr("caller") != "+" {
		t.Errorf("note = %+v", note)
	}

	cell := usj.First(doc, usj.OfType("table:cell"))
	if cell == nil || cell.Marker != "tc1" || cell.Attr("align") != "start" {
		t.Errorf("cell = %+v", cell)
	}
	if usj.First(doc, usj.OfType("table:row")) == nil {
		t.Error("row should map to table:row")
	}

	if err := usj.Validate(doc); err != nil {
		t.Errorf("loaded document does not validate: %v", err)
	}
}

func TestLoadDropsIndentation(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleUSX))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	usj.Walk(doc, func(c usj.Content) bool {
		if text, ok := c.(usj.Text); ok && strings.TrimSpace(string(text)) == "" && strings.Contains(string(text), "\n") {
			t.Errorf("indentation text %q kept", text)
		}
		return true
	})
}

func TestLoadThenAlign(t *testing.T) {
	doc, err := Load(strings.NewReader(sampleUSX))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	filtered := usj.KeepOnly(doc, []string{"id", "c", "v", "text-in-excluded-parent", "text"}, true)
	corpus, err := flatten.ToAlignedCorpus(filtered)
	if err != nil {
		t.Fatalf("ToAlignedCorpus failed: %v", err)
	}

	want := []string{"GEN 1:1", "GEN 1:2"}
	if len(corpus.VRef) < 2 || corpus.VRef[0] != want[0] || corpus.VRef[1] != want[1] {
		t.Fatalf("VRef = %q, want prefix %q", corpus.VRef, want)
	}
	if corpus.Text[0] != "In the beginning God created" {
		t.Errorf("Text[0] = %q", corpus.Text[0])
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not xml", "<usx><para>"},
		{"wrong root", `<root><book code="GEN"/></root>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			var pe *usferrors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Load() = %v, want ParseError", err)
			}
		})
	}
}
