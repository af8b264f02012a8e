package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/flatten"
)

const schema = `
	CREATE TABLE IF NOT EXISTS meta (
		run_id TEXT PRIMARY KEY,
		source TEXT,
		book TEXT,
		created_at TEXT
	);
	CREATE TABLE IF NOT EXISTS rows (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		book TEXT,
		chapter TEXT,
		verse TEXT,
		text TEXT,
		type TEXT,
		marker TEXT,
		PRIMARY KEY (run_id, seq)
	);
	CREATE TABLE IF NOT EXISTS corpus (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		vref TEXT,
		text TEXT,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_rows_ref ON rows(run_id, book, chapter, verse);
	CREATE INDEX IF NOT EXISTS idx_corpus_vref ON corpus(run_id, vref);
`

// Run identifies one conversion stored in the database.
type Run struct {
	ID        string
	Source    string
	Book      string
	CreatedAt time.Time
}

// Store persists tables and corpora keyed by run ID.
type Store struct {
	db   *sql.DB
	path string
}

// Create opens (or creates) the database at path and applies the schema.
func Create(ctx context.Context, path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenStore opens an existing database read-only.
func OpenStore(path string) (*Store, error) {
	db, err := OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTable stores every row of t under run.
func (s *Store) SaveTable(ctx context.Context, run Run, t *flatten.Table) error {
	return s.inTx(ctx, run, "INSERT INTO rows (run_id, seq, book, chapter, verse, text, type, marker) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		func(stmt *sql.Stmt) error {
			for i, r := range t.Rows {
				if _, err := stmt.ExecContext(ctx, run.ID, i, r.Book, r.Chapter, r.Verse, r.Text, r.Type, r.Marker); err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
			}
			return nil
		})
}

// SaveCorpus stores the aligned entries of c under run.
func (s *Store) SaveCorpus(ctx context.Context, run Run, c *flatten.Corpus) error {
	if len(c.Text) != len(c.VRef) {
		return errors.NewValidation("corpus", fmt.Sprintf("%d text lines but %d references", len(c.Text), len(c.VRef)))
	}
	return s.inTx(ctx, run, "INSERT INTO corpus (run_id, seq, vref, text) VALUES (?, ?, ?, ?)",
		func(stmt *sql.Stmt) error {
			for i := range c.Text {
				if _, err := stmt.ExecContext(ctx, run.ID, i, c.VRef[i], c.Text[i]); err != nil {
					return fmt.Errorf("entry %d: %w", i, err)
				}
			}
			return nil
		})
}

func (s *Store) inTx(ctx context.Context, run Run, insert string, fn func(*sql.Stmt) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("begin", s.path, err)
	}
	defer tx.Rollback()

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO meta (run_id, source, book, created_at) VALUES (?, ?, ?, ?)",
		run.ID, run.Source, run.Book, created.UTC().Format(time.RFC3339)); err != nil {
		return errors.NewIO("insert meta", s.path, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return errors.NewIO("prepare", s.path, err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		return errors.NewIO("insert", s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIO("commit", s.path, err)
	}
	return nil
}

// Runs lists the stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id, source, book, created_at FROM meta ORDER BY created_at, run_id")
	if err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Source, &r.Book, &created); err != nil {
			return nil, errors.NewIO("scan", s.path, err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	return runs, nil
}

// LoadTable returns the rows stored for runID in their original order.
func (s *Store) LoadTable(ctx context.Context, runID string) (*flatten.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT book, chapter, verse, text, type, marker FROM rows WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	defer rows.Close()

	t := &flatten.Table{Rows: []flatten.Row{}}
	for rows.Next() {
		var r flatten.Row
		if err := rows.Scan(&r.Book, &r.Chapter, &r.Verse, &r.Text, &r.Type, &r.Marker); err != nil {
			return nil, errors.NewIO("scan", s.path, err)
		}
		t.Rows = append(t.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	return t, nil
}

// LoadCorpus returns the corpus stored for runID in its original order.
func (s *Store) LoadCorpus(ctx context.Context, runID string) (*flatten.Corpus, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT vref, text FROM corpus WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	defer rows.Close()

	c := &flatten.Corpus{Text: []string{}, VRef: []string{}}
	for rows.Next() {
		var ref, text string
		if err := rows.Scan(&ref, &text); err != nil {
			return nil, errors.NewIO("scan", s.path, err)
		}
		c.VRef = append(c.VRef, ref)
		c.Text = append(c.Text, text)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("query", s.path, err)
	}
	return c, nil
}
