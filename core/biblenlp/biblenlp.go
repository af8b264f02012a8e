// Package biblenlp reads and writes verse-aligned corpora in the BibleNLP
// layout: a text file and a vref file with one line per entry, where line
// i of one file belongs to line i of the other.
//
// Files ending in ".xz" are compressed with xz on write and decompressed
// on read.
package biblenlp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/flatten"
	"github.com/wkelly17/usfm-grammar/core/vref"
)

// XZExt is the file extension for compressed corpus files.
const XZExt = ".xz"

// Injectable for testing.
var (
	osCreate    = os.Create
	osOpen      = os.Open
	xzNewWriter = xz.NewWriter
	xzNewReader = xz.NewReader
)

// Paths returns the text and vref file names for an input file:
// "dir/GEN.usfm" gives "dir/GEN_biblenlp.txt" and "dir/GEN_biblenlp_vref.txt".
// When outDir is not empty the files are placed there instead.
func Paths(input, outDir string, compress bool) (textPath, vrefPath string) {
	dir := filepath.Dir(input)
	if outDir != "" {
		dir = outDir
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	textPath = filepath.Join(dir, stem+"_biblenlp.txt")
	vrefPath = filepath.Join(dir, stem+"_biblenlp_vref.txt")
	if compress {
		textPath += XZExt
		vrefPath += XZExt
	}
	return textPath, vrefPath
}

// Write stores the corpus as two line files.
func Write(c *flatten.Corpus, textPath, vrefPath string) error {
	if len(c.Text) != len(c.VRef) {
		return errors.NewValidation("corpus", fmt.Sprintf("%d text lines but %d references", len(c.Text), len(c.VRef)))
	}
	for i, line := range c.Text {
		if strings.ContainsAny(line, "\r\n") {
			return errors.NewValidation("corpus", fmt.Sprintf("text for %s contains a line break", c.VRef[i]))
		}
	}

	if err := writeLines(textPath, c.Text); err != nil {
		return err
	}
	return writeLines(vrefPath, c.VRef)
}

// WriteTo writes one line per element to w.
func WriteTo(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeLines(path string, lines []string) (err error) {
	f, err := osCreate(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIO("close", path, cerr)
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, XZExt) {
		xw, err := xzNewWriter(f)
		if err != nil {
			return errors.NewIO("compress", path, err)
		}
		if err := WriteTo(xw, lines); err != nil {
			xw.Close()
			return errors.NewIO("write", path, err)
		}
		if err := xw.Close(); err != nil {
			return errors.NewIO("compress", path, err)
		}
		return nil
	}

	if err := WriteTo(w, lines); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Read loads a corpus written by Write. Every reference is parsed, and
// the two files must have the same number of lines.
func Read(textPath, vrefPath string) (*flatten.Corpus, error) {
	text, err := readLines(textPath)
	if err != nil {
		return nil, err
	}
	rawRefs, err := readLines(vrefPath)
	if err != nil {
		return nil, err
	}
	if len(text) != len(rawRefs) {
		return nil, errors.NewValidation("corpus", fmt.Sprintf("%s has %d lines but %s has %d", textPath, len(text), vrefPath, len(rawRefs)))
	}

	refs, err := parseRefs(rawRefs, vrefPath)
	if err != nil {
		return nil, err
	}

	c := &flatten.Corpus{Text: text, VRef: make([]string, len(refs))}
	for i, r := range refs {
		c.VRef[i] = r.String()
	}
	return c, nil
}

// ReadRefs parses every line of a vref file.
func ReadRefs(path string) ([]*vref.Ref, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return parseRefs(lines, path)
}

func parseRefs(lines []string, path string) ([]*vref.Ref, error) {
	refs, err := vref.ParseLines(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return refs, nil
}

func readLines(path string) ([]string, error) {
	f, err := osOpen(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, XZExt) {
		xr, err := xzNewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
