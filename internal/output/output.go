// Package output renders conversion results as CSV or JSON.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/wkelly17/usfm-grammar/core/errors"
)

// CSVOptions controls record delimiters.
type CSVOptions struct {
	// ColSep separates fields. It must be a single character.
	ColSep string
	// RowSep ends every record. Any string is allowed.
	RowSep string
}

// DefaultCSV is tab separated with newline row endings.
var DefaultCSV = CSVOptions{ColSep: "\t", RowSep: "\n"}

func (o CSVOptions) comma() (rune, error) {
	if o.ColSep == "" {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(o.ColSep)
	if size != len(o.ColSep) || r == utf8.RuneError {
		return 0, errors.NewValidation("col-sep", fmt.Sprintf("%q must be a single character", o.ColSep))
	}
	if r == '"' || r == '\r' || r == '\n' {
		return 0, errors.NewValidation("col-sep", fmt.Sprintf("%q cannot be used as a column separator", o.ColSep))
	}
	return r, nil
}

// WriteCSV writes records to w. A field is quoted only when it contains
// the column separator, a quote, a line break or a character of the row
// separator, and quotes inside it are doubled. Leading and trailing spaces
// are written as they are.
func WriteCSV(w io.Writer, records [][]string, opts CSVOptions) error {
	comma, err := opts.comma()
	if err != nil {
		return err
	}
	rowSep := opts.RowSep
	if rowSep == "" {
		rowSep = "\n"
	}
	special := string(comma) + "\"\r\n" + rowSep

	bw := bufio.NewWriter(w)
	for _, rec := range records {
		for i, field := range rec {
			if i > 0 {
				bw.WriteRune(comma)
			}
			if strings.ContainsAny(field, special) {
				bw.WriteByte('"')
				bw.WriteString(strings.ReplaceAll(field, `"`, `""`))
				bw.WriteByte('"')
				continue
			}
			bw.WriteString(field)
		}
		bw.WriteString(rowSep)
	}
	return bw.Flush()
}

// WriteJSON writes v as indented JSON followed by a newline. HTML
// characters are not escaped.
func WriteJSON(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(v)
}
