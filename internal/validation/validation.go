// Package validation checks user supplied paths and sniffs input content
// before it reaches a decoder.
package validation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Limits on untrusted input.
const (
	// MaxInputSize is the largest document the loader will read (256 MB).
	MaxInputSize = 256 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrTooLarge         = errors.New("input too large")
)

// ValidatePath rejects empty or overlong paths and paths with control
// characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks that a single path element is safe to create.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SanitizeFilename turns arbitrary text, such as a book code taken from a
// document, into a safe file name.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// Kind is the content type guessed from the first bytes of an input.
type Kind string

// Content kinds.
const (
	KindUSJ     Kind = "usj"
	KindUSX     Kind = "usx"
	KindXZ      Kind = "xz"
	KindSQLite  Kind = "sqlite"
	KindBinary  Kind = "binary"
	KindUnknown Kind = "unknown"
)

// sniffSize is how many bytes Sniff looks at.
const sniffSize = 512

var magicBytes = []struct {
	kind  Kind
	magic []byte
}{
	{KindXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{KindSQLite, []byte("SQLite format 3\x00")},
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Sniff guesses the kind of buf. A document starting with "{" is USJ and
// one starting with "<" is USX; leading whitespace and a UTF-8 BOM are
// ignored.
func Sniff(buf []byte) Kind {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.kind
		}
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return KindBinary
	}

	trimmed := bytes.TrimLeftFunc(bytes.TrimPrefix(buf, utf8BOM), unicode.IsSpace)
	switch {
	case len(trimmed) == 0:
		return KindUnknown
	case trimmed[0] == '{':
		return KindUSJ
	case trimmed[0] == '<':
		return KindUSX
	}
	return KindUnknown
}

// SniffReader sniffs r without consuming it. The returned reader yields
// the full stream, sniffed bytes included.
func SniffReader(r io.Reader) (Kind, io.Reader, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	buf, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return KindUnknown, br, fmt.Errorf("failed to read input header: %w", err)
	}
	return Sniff(buf), br, nil
}

// LimitReader returns a reader that fails with ErrTooLarge once more than
// max bytes have been read.
func LimitReader(r io.Reader, max int64) io.Reader {
	return &limitedReader{r: r, left: max}
}

type limitedReader struct {
	r    io.Reader
	left int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the limit so an input of exactly max bytes is allowed.
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// SkipBOM returns a reader over r with a leading UTF-8 byte order mark
// removed.
func SkipBOM(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}
