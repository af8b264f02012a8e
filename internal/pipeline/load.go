package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wkelly17/usfm-grammar/core/biblenlp"
	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/usj"
	"github.com/wkelly17/usfm-grammar/core/usx"
	"github.com/wkelly17/usfm-grammar/internal/validation"
)

// InputFormat names a document format the pipeline can load.
type InputFormat string

// Input formats.
const (
	FormatAuto     InputFormat = ""
	FormatUSJ      InputFormat = "usj"
	FormatUSX      InputFormat = "usx"
	FormatBibleNLP InputFormat = "biblenlp"
)

// Stdin is the input name that reads from standard input.
const Stdin = "-"

var extFormats = map[string]InputFormat{
	".json": FormatUSJ,
	".usj":  FormatUSJ,
	".xml":  FormatUSX,
	".usx":  FormatUSX,
}

// Injectable for testing.
var (
	stdin        io.Reader = os.Stdin
	maxInputSize int64     = validation.MaxInputSize
)

// DetectFormat returns override when set, otherwise the format implied by
// the file name. FormatAuto means the content has to be sniffed.
func DetectFormat(path string, override InputFormat) (InputFormat, error) {
	switch override {
	case FormatUSJ, FormatUSX, FormatBibleNLP:
		return override, nil
	case FormatAuto:
		if biblenlp.VRefPath(path) != "" {
			return FormatBibleNLP, nil
		}
		return extFormats[strings.ToLower(filepath.Ext(path))], nil
	}
	return "", errors.NewUnsupported("input format "+string(override), "expected usj, usx or biblenlp")
}

// Load reads the document at path ("-" for stdin).
func Load(path string, override InputFormat) (*usj.Node, error) {
	return LoadSource(Source{Path: path, Format: override})
}

// LoadSource reads the document src describes. A BibleNLP corpus is
// rebuilt into a USJ document for one book.
func LoadSource(src Source) (*usj.Node, error) {
	path := src.Path
	format, err := DetectFormat(path, src.Format)
	if err != nil {
		return nil, err
	}
	if format == FormatBibleNLP {
		return loadCorpus(src)
	}

	var r io.Reader = stdin
	if path != Stdin {
		if err := validation.ValidatePath(path); err != nil {
			return nil, errors.NewValidation("input", err.Error())
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewIO("open", path, err)
		}
		defer f.Close()
		r = f
	}
	r = validation.LimitReader(r, maxInputSize)

	kind, r, err := validation.SniffReader(r)
	if err != nil {
		if errors.Is(err, validation.ErrTooLarge) {
			return nil, tooLarge(path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	if format == FormatAuto {
		format, err = formatFromContent(path, kind)
		if err != nil {
			return nil, err
		}
	}

	doc, err := LoadReader(r, format)
	if err != nil {
		if errors.Is(err, validation.ErrTooLarge) {
			return nil, tooLarge(path)
		}
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

func tooLarge(path string) error {
	return errors.NewValidation("input", fmt.Sprintf("%s is larger than the %d byte input limit", path, maxInputSize))
}

func formatFromContent(path string, kind validation.Kind) (InputFormat, error) {
	switch kind {
	case validation.KindUSJ:
		return FormatUSJ, nil
	case validation.KindUSX:
		return FormatUSX, nil
	case validation.KindXZ, validation.KindSQLite, validation.KindBinary:
		return "", errors.NewUnsupported("input "+filepath.Base(path), string(kind)+" content is not a USJ or USX document")
	}
	return "", errors.NewUnsupported("input "+filepath.Base(path), "cannot tell USJ from USX; set --in-format")
}

// LoadReader decodes a USJ or USX document. A leading byte order mark is
// skipped.
func LoadReader(r io.Reader, format InputFormat) (*usj.Node, error) {
	r = validation.SkipBOM(r)
	switch format {
	case FormatUSJ:
		return usj.Decode(r)
	case FormatUSX:
		return usx.Load(r)
	}
	return nil, errors.NewUnsupported("input format "+string(format), "expected usj or usx")
}

func loadCorpus(src Source) (*usj.Node, error) {
	if src.Path == Stdin {
		return nil, errors.NewUnsupported("biblenlp input from stdin", "a text file and a vref file are needed")
	}
	vrefPath := src.VRef
	if vrefPath == "" {
		vrefPath = biblenlp.VRefPath(src.Path)
	}
	if vrefPath == "" {
		return nil, errors.NewValidation("vref", fmt.Sprintf("no vref file given for %s", src.Path))
	}
	for _, p := range []string{src.Path, vrefPath} {
		if err := validation.ValidatePath(p); err != nil {
			return nil, errors.NewValidation("input", err.Error())
		}
	}

	c, err := biblenlp.Read(src.Path, vrefPath)
	if err != nil {
		return nil, err
	}
	return biblenlp.ToUSJ(c, src.Book)
}
