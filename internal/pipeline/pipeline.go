// Package pipeline runs conversions end to end: load a document, convert
// it, write the outputs and fingerprint them.
//
// Every run gets a fresh ID that tags its log records, SQLite rows and
// manifest.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wkelly17/usfm-grammar/core/digest"
	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/sqlite"
	"github.com/wkelly17/usfm-grammar/core/usj"
	"github.com/wkelly17/usfm-grammar/internal/logging"
)

// Injectable for testing.
var (
	newRunID = func() string { return uuid.New().String() }
	now      = time.Now
)

// Source describes the document a run reads.
type Source struct {
	Path   string
	Format InputFormat

	// VRef and Book apply to BibleNLP input only. VRef defaults to the
	// vref file next to Path; Book may be empty when the corpus holds a
	// single book.
	VRef string
	Book string
}

// Sinks are the optional side outputs shared by every operation.
type Sinks struct {
	// SQLite, when set, receives the converted records.
	SQLite string
	// Manifest, when set, receives the digests of every file written.
	Manifest string
}

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Records int
	Files   []digest.Entry
}

type run struct {
	id       string
	op       string
	source   Source
	started  time.Time
	sinks    Sinks
	result   *Result
	manifest *digest.Manifest
}

func start(ctx context.Context, op string, src Source, sinks Sinks) (context.Context, *run) {
	r := &run{
		id:      newRunID(),
		op:      op,
		source:  src,
		started: now(),
		sinks:   sinks,
	}
	r.result = &Result{RunID: r.id}
	r.manifest = &digest.Manifest{RunID: r.id, Source: src.Path, CreatedAt: r.started.UTC()}
	ctx = logging.WithRunID(ctx, r.id)
	logging.ConversionStart(ctx, op, src.Path, "format", string(src.Format))
	return ctx, r
}

// load reads the source and checks the whole tree before any filter can
// splice a malformed node away.
func (r *run) load(ctx context.Context) (*usj.Node, error) {
	doc, err := LoadSource(r.source)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	if err := usj.Validate(doc); err != nil {
		return nil, r.fail(ctx, err)
	}
	return doc, nil
}

func (r *run) fail(ctx context.Context, err error) error {
	logging.ConversionError(ctx, r.op, err)
	return err
}

func (r *run) storeRun(book string) sqlite.Run {
	return sqlite.Run{ID: r.id, Source: r.source.Path, Book: book, CreatedAt: r.started}
}

// writeFile creates path and hands it to fn. An empty path or "-" writes
// to stdout and is not fingerprinted.
func (r *run) writeFile(ctx context.Context, path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" || path == Stdin {
		return fn(stdout)
	}

	if err := createFile(path, fn); err != nil {
		return err
	}
	return r.record(ctx, path)
}

func createFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return errors.NewIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}

// record fingerprints a file the run produced.
func (r *run) record(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		if err := r.manifest.Add(p); err != nil {
			return err
		}
		e := r.manifest.Files[len(r.manifest.Files)-1]
		logging.OutputWritten(ctx, e.Path, e.Size, e.SHA256, e.BLAKE3)
	}
	return nil
}

func (r *run) finish(ctx context.Context, records int) (*Result, error) {
	r.result.Records = records
	r.result.Files = r.manifest.Files
	if r.sinks.Manifest != "" {
		if err := r.manifest.Write(r.sinks.Manifest); err != nil {
			return nil, r.fail(ctx, err)
		}
		logging.DebugContext(ctx, "manifest written", "path", r.sinks.Manifest, "files", len(r.manifest.Files))
	}
	logging.ConversionDone(ctx, r.op, records, now().Sub(r.started))
	return r.result, nil
}

func withStore(ctx context.Context, path string, fn func(*sqlite.Store) error) error {
	s, err := sqlite.Create(ctx, path)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return errors.NewIO("close", path, err)
	}
	return nil
}
