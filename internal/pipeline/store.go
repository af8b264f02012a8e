package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/wkelly17/usfm-grammar/core/biblenlp"
	"github.com/wkelly17/usfm-grammar/core/digest"
	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/sqlite"
	"github.com/wkelly17/usfm-grammar/internal/logging"
	"github.com/wkelly17/usfm-grammar/internal/output"
	"github.com/wkelly17/usfm-grammar/internal/validation"
)

// Runs lists the conversions stored in the database at path.
func Runs(ctx context.Context, path string) ([]sqlite.Run, error) {
	var runs []sqlite.Run
	err := withStoreReadOnly(path, func(s *sqlite.Store) error {
		var err error
		runs, err = s.Runs(ctx)
		return err
	})
	return runs, err
}

// ExportTableOptions configures ExportTable.
type ExportTableOptions struct {
	Database string
	RunID    string
	CSV      output.CSVOptions
	JSON     bool
	// Output is the destination file; empty writes to stdout.
	Output string
}

// ExportTable writes the table rows stored for a run, in the same layout
// Table writes them. It returns the number of rows.
func ExportTable(ctx context.Context, opts ExportTableOptions, stdout io.Writer) (int, error) {
	var n int
	err := withStoreReadOnly(opts.Database, func(s *sqlite.Store) error {
		if _, err := findRun(ctx, s, opts.Database, opts.RunID); err != nil {
			return err
		}
		table, err := s.LoadTable(ctx, opts.RunID)
		if err != nil {
			return err
		}
		n = len(table.Rows)

		write := func(w io.Writer) error {
			if opts.JSON {
				return output.WriteJSON(w, table.Records(), "")
			}
			return output.WriteCSV(w, table.Records(), opts.CSV)
		}
		if opts.Output == "" || opts.Output == Stdin {
			return write(stdout)
		}
		return createFile(opts.Output, write)
	})
	if err != nil {
		return 0, err
	}
	logging.DebugContext(ctx, "table exported", "database", opts.Database, "run_id", opts.RunID, "rows", n)
	return n, nil
}

// ExportCorpusOptions configures ExportCorpus.
type ExportCorpusOptions struct {
	Database string
	RunID    string
	// OutDir holds the text and vref files; empty uses the working directory.
	OutDir   string
	Compress bool
}

// ExportCorpus writes the corpus stored for a run as BibleNLP files named
// after the run's book. Result.Files fingerprints both files.
func ExportCorpus(ctx context.Context, opts ExportCorpusOptions) (*Result, error) {
	res := &Result{RunID: opts.RunID}
	err := withStoreReadOnly(opts.Database, func(s *sqlite.Store) error {
		run, err := findRun(ctx, s, opts.Database, opts.RunID)
		if err != nil {
			return err
		}
		c, err := s.LoadCorpus(ctx, opts.RunID)
		if err != nil {
			return err
		}

		name, err := validation.SanitizeFilename(run.Book)
		if err != nil {
			name = run.ID
		}
		textPath, vrefPath := biblenlp.Paths(name, opts.OutDir, opts.Compress)
		if err := biblenlp.Write(c, textPath, vrefPath); err != nil {
			return err
		}

		m := &digest.Manifest{RunID: run.ID, Source: opts.Database}
		if err := m.Add(textPath, vrefPath); err != nil {
			return err
		}
		res.Records = c.Len()
		res.Files = m.Files
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.DebugContext(ctx, "corpus exported", "database", opts.Database, "run_id", opts.RunID, "entries", res.Records)
	return res, nil
}

// VerifyManifest re-hashes the files listed in the manifest at path and
// returns it together with the paths whose content changed.
func VerifyManifest(ctx context.Context, path string) (*digest.Manifest, []string, error) {
	m, err := digest.ReadManifest(path)
	if err != nil {
		return nil, nil, err
	}
	changed, err := m.Verify()
	if err != nil {
		return m, nil, err
	}
	logging.DebugContext(ctx, "manifest verified", "path", path, "files", len(m.Files), "changed", len(changed))
	return m, changed, nil
}

func findRun(ctx context.Context, s *sqlite.Store, path, id string) (sqlite.Run, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return sqlite.Run{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return sqlite.Run{}, errors.NewValidation("run", fmt.Sprintf("%s has no run %q", path, id))
}

func withStoreReadOnly(path string, fn func(*sqlite.Store) error) error {
	if err := validation.ValidatePath(path); err != nil {
		return errors.NewValidation("database", err.Error())
	}
	if _, err := os.Stat(path); err != nil {
		return errors.NewIO("open", path, err)
	}
	s, err := sqlite.OpenStore(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
