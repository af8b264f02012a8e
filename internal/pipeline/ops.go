package pipeline

import (
	"context"
	"io"
	"path/filepath"

	"github.com/wkelly17/usfm-grammar/core/biblenlp"
	"github.com/wkelly17/usfm-grammar/core/flatten"
	"github.com/wkelly17/usfm-grammar/core/sqlite"
	"github.com/wkelly17/usfm-grammar/core/usj"
	"github.com/wkelly17/usfm-grammar/internal/logging"
	"github.com/wkelly17/usfm-grammar/internal/markers"
	"github.com/wkelly17/usfm-grammar/internal/output"
	"github.com/wkelly17/usfm-grammar/internal/validation"
)

// TableOptions configures Table.
type TableOptions struct {
	Source
	Sinks
	// Exclude and Include hold marker names or group names.
	Exclude []string
	Include []string
	CSV     output.CSVOptions
	// JSON writes the records as a JSON list of lists instead of CSV.
	JSON bool
	// Output is the destination file; empty writes to stdout.
	Output string
}

// Table flattens the document into rows.
func Table(ctx context.Context, opts TableOptions, stdout io.Writer) (*Result, error) {
	ctx, r := start(ctx, "table", opts.Source, opts.Sinks)
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	filter := flatten.Filter{
		Exclude: flatten.NewMarkerSet(markers.Expand(opts.Exclude)...),
		Include: flatten.NewMarkerSet(markers.Expand(opts.Include)...),
	}
	logging.DebugContext(ctx, "table filter", "exclude", len(filter.Exclude), "include", len(filter.Include))

	table, err := flatten.ToTable(doc, filter)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	err = r.writeFile(ctx, opts.Output, stdout, func(w io.Writer) error {
		if opts.JSON {
			return output.WriteJSON(w, table.Records(), "")
		}
		return output.WriteCSV(w, table.Records(), opts.CSV)
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	if opts.SQLite != "" {
		err := withStore(ctx, opts.SQLite, func(s *sqlite.Store) error {
			return s.SaveTable(ctx, r.storeRun(usj.BookCode(doc)), table)
		})
		if err != nil {
			return nil, r.fail(ctx, err)
		}
	}
	return r.finish(ctx, len(table.Rows))
}

// BibleNLPOptions configures BibleNLP.
type BibleNLPOptions struct {
	Source
	Sinks
	// OutDir holds the text and vref files; empty uses the input's directory.
	OutDir string
	// Compress writes .xz files.
	Compress bool
}

// corpusMarkers reduce the tree to what the aligner reads.
var corpusMarkers = markers.Expand([]string{string(markers.BCV), string(markers.Text)})

// BibleNLP writes the verse-aligned corpus of the document.
func BibleNLP(ctx context.Context, opts BibleNLPOptions) (*Result, error) {
	ctx, r := start(ctx, "biblenlp", opts.Source, opts.Sinks)
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	reduced := usj.KeepOnly(doc, corpusMarkers, true)
	corpus, err := flatten.ToAlignedCorpus(reduced)
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	input := opts.Path
	if input == Stdin {
		name, err := validation.SanitizeFilename(usj.BookCode(doc))
		if err != nil {
			name = "stdin"
		}
		input = filepath.Join(".", name+".usj")
	}
	textPath, vrefPath := biblenlp.Paths(input, opts.OutDir, opts.Compress)
	if err := biblenlp.Write(corpus, textPath, vrefPath); err != nil {
		return nil, r.fail(ctx, err)
	}
	if err := r.record(ctx, textPath, vrefPath); err != nil {
		return nil, r.fail(ctx, err)
	}

	if opts.SQLite != "" {
		err := withStore(ctx, opts.SQLite, func(s *sqlite.Store) error {
			return s.SaveCorpus(ctx, r.storeRun(usj.BookCode(doc)), corpus)
		})
		if err != nil {
			return nil, r.fail(ctx, err)
		}
	}
	return r.finish(ctx, corpus.Len())
}

// USJOptions configures USJ.
type USJOptions struct {
	Source
	Sinks
	Exclude     []string
	Include     []string
	CombineText bool
	Indent      string
	Output      string
}

// USJ writes the document as USJ JSON, optionally filtered. Exclusion is
// applied before inclusion.
func USJ(ctx context.Context, opts USJOptions, stdout io.Writer) (*Result, error) {
	ctx, r := start(ctx, "usj", opts.Source, opts.Sinks)
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	if ex := markers.Expand(opts.Exclude); len(ex) > 0 {
		doc = usj.RemoveMarkers(doc, ex, opts.CombineText)
	}
	if in := markers.Expand(opts.Include); len(in) > 0 {
		doc = usj.KeepOnly(doc, in, opts.CombineText)
	}

	err = r.writeFile(ctx, opts.Output, stdout, func(w io.Writer) error {
		return usj.Encode(w, doc, opts.Indent)
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	return r.finish(ctx, len(usj.All(doc, func(*usj.Node) bool { return true })))
}

// CheckVRef validates a vref file. When textPath is set the text file is
// read too and must have the same number of lines. It returns the number
// of references.
func CheckVRef(ctx context.Context, vrefPath, textPath string) (int, error) {
	if textPath != "" {
		c, err := biblenlp.Read(textPath, vrefPath)
		if err != nil {
			return 0, err
		}
		logging.DebugContext(ctx, "corpus checked", "text", textPath, "vref", vrefPath, "entries", c.Len())
		return c.Len(), nil
	}

	refs, err := biblenlp.ReadRefs(vrefPath)
	if err != nil {
		return 0, err
	}
	logging.DebugContext(ctx, "vref checked", "vref", vrefPath, "refs", len(refs))
	return len(refs), nil
}
