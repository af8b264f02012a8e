package biblenlp

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/flatten"
	"github.com/wkelly17/usfm-grammar/core/usj"
	"github.com/wkelly17/usfm-grammar/core/vref"
)

// USJVersion is the version written on documents rebuilt from a corpus.
const USJVersion = "3.1"

// VRefPath returns the vref file that Paths pairs with textPath, or ""
// when textPath is not named like a BibleNLP text file.
func VRefPath(textPath string) string {
	dir, base := filepath.Split(textPath)
	ext := ""
	if strings.HasSuffix(base, XZExt) {
		ext = XZExt
		base = strings.TrimSuffix(base, XZExt)
	}
	stem, ok := strings.CutSuffix(base, "_biblenlp.txt")
	if !ok || stem == "" {
		return ""
	}
	return dir + stem + "_biblenlp_vref.txt" + ext
}

// ToUSJ rebuilds a USJ document for one book of a corpus. Each chapter
// gets a chapter node followed by a "p" paragraph holding a verse node
// and the text of every entry. Entries with empty text are skipped.
//
// When book is empty the corpus must hold exactly one book.
func ToUSJ(c *flatten.Corpus, book string) (*usj.Node, error) {
	if len(c.Text) != len(c.VRef) {
		return nil, errors.NewValidation("corpus", fmt.Sprintf("%d text lines but %d references", len(c.Text), len(c.VRef)))
	}

	refs := make([]*vref.Ref, len(c.VRef))
	var books []string
	for i, raw := range c.VRef {
		ref, err := vref.Parse(raw)
		if err != nil {
			var pe *errors.ParseError
			if errors.As(err, &pe) {
				pe.Line = i + 1
			}
			return nil, err
		}
		refs[i] = ref
		if !slices.Contains(books, ref.Book) {
			books = append(books, ref.Book)
		}
	}

	book = strings.ToUpper(strings.TrimSpace(book))
	switch {
	case book != "":
	case len(books) == 1:
		book = books[0]
	case len(books) == 0:
		return nil, errors.NewValidation("corpus", "no entries")
	default:
		return nil, errors.NewValidation("book", fmt.Sprintf("corpus holds %d books (%s); choose one", len(books), strings.Join(books, ", ")))
	}

	root := &usj.Node{Type: usj.TypeRoot, Content: []usj.Content{}}
	root.SetAttr("version", USJVersion)
	root.Content = append(root.Content, &usj.Node{Type: usj.TypeBook, Marker: "id", Code: book, Content: []usj.Content{}})

	found := false
	chapter := ""
	var para *usj.Node
	for i, ref := range refs {
		if ref.Book != book {
			continue
		}
		found = true
		if c.Text[i] == "" {
			continue
		}

		if ref.Chapter != chapter {
			chapter = ref.Chapter
			para = nil
			if chapter != "" {
				root.Content = append(root.Content, &usj.Node{Type: usj.TypeChapter, Marker: "c", Number: chapter})
			}
		}
		if para == nil {
			para = &usj.Node{Type: "para", Marker: "p"}
			root.Content = append(root.Content, para)
		}
		if ref.Verse != "" {
			para.Content = append(para.Content, &usj.Node{Type: usj.TypeVerse, Marker: "v", Number: verseNumber(ref)})
		}
		para.Content = append(para.Content, usj.Text(c.Text[i]))
	}

	if !found {
		return nil, errors.NewValidation("book", fmt.Sprintf("corpus has no entries for %s", book))
	}
	return root, nil
}

func verseNumber(r *vref.Ref) string {
	n := r.Verse + r.Segment
	if r.End != "" {
		n += "-" + r.End
	}
	return n
}
