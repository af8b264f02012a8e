package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wkelly17/usfm-grammar/core/biblenlp"
	"github.com/wkelly17/usfm-grammar/core/digest"
	usferrors "github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/sqlite"
	"github.com/wkelly17/usfm-grammar/core/usj"
	"github.com/wkelly17/usfm-grammar/internal/logging"
	"github.com/wkelly17/usfm-grammar/internal/output"
)

const genesisUSJ = `{
  "type": "USJ",
  "version": "3.1",
  "content": [
    {"type": "book", "marker": "id", "code": "GEN", "content": ["Genesis"]},
    {"type": "chapter", "marker": "c", "number": "1"},
    {"type": "para", "marker": "p", "content": [
      {"type": "verse", "marker": "v", "number": "1"},
      "In the beginning",
      {"type": "char", "marker": "nd", "content": ["God"]},
      " created",
      {"type": "verse", "marker": "v", "number": "2"},
      "The earth"
    ]},
    {"type": "para", "marker": "b"}
  ]
}`

func TestMain(m *testing.M) {
	logging.InitLoggerTo(io.Discard, logging.LevelDebug, logging.FormatJSON)
	newRunID = func() string { return "test-run" }
	os.Exit(m.Run())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return p
}

func TestTableToStdout(t *testing.T) {
	input := writeFile(t, t.TempDir(), "GEN.usj", genesisUSJ)

	var out bytes.Buffer
	res, err := Table(context.Background(), TableOptions{
		Source: Source{Path: input},
		CSV:    output.DefaultCSV,
	}, &out)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	want := []string{
		"Book\tChapter\tVerse\tText\tType\tMarker",
		"GEN\t\t\tGenesis\tbook\tid",
		"GEN\t1\t\t\tchapter\tc",
		"GEN\t1\t1\t\tverse\tv",
		"GEN\t1\t1\tIn the beginning\tpara\tp",
		"GEN\t1\t1\tGod\tchar\tnd",
		"GEN\t1\t1\t created\tpara\tp",
		"GEN\t1\t2\t\tverse\tv",
		"GEN\t1\t2\tThe earth\tpara\tp",
		"GEN\t1\t2\t\tpara\tb",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), out.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if res.Records != 9 || res.RunID != "test-run" || len(res.Files) != 0 {
		t.Errorf("Result = %+v", res)
	}
}

func TestTableFiltersByGroup(t *testing.T) {
	input := writeFile(t, t.TempDir(), "GEN.json", genesisUSJ)

	var out bytes.Buffer
	_, err := Table(context.Background(), TableOptions{
		Source:  Source{Path: input},
		Exclude: []string{`\ID`, "text"},
		JSON:    true,
	}, &out)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	var rows [][]string
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("got %d rows, want header plus 8", len(rows))
	}
	for _, r := range rows[1:] {
		if r[5] == "id" {
			t.Error("id row should be excluded")
		}
		if r[3] != "" {
			t.Errorf("text should be blanked, got %q", r[3])
		}
	}
}

func TestTableFileSQLiteManifest(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "GEN.usj", genesisUSJ)
	outPath := filepath.Join(dir, "GEN.tsv")
	dbPath := filepath.Join(dir, "out.db")
	manifestPath := filepath.Join(dir, "manifest.json")

	res, err := Table(context.Background(), TableOptions{
		Source: Source{Path: input},
		Sinks:  Sinks{SQLite: dbPath, Manifest: manifestPath},
		CSV:    output.CSVOptions{ColSep: ",", RowSep: "\r\n"},
		Output: outPath,
	}, io.Discard)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if len(res.Files) != 1 || res.Files[0].Path != outPath {
		t.Fatalf("Files = %+v", res.Files)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "Book,Chapter,Verse,Text,Type,Marker\r\n") {
		t.Errorf("unexpected output: %q", data)
	}

	m, err := digest.ReadManifest(manifestPath)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	want, err := digest.File(outPath)
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if m.RunID != "test-run" || len(m.Files) != 1 || m.Files[0] != want {
		t.Errorf("manifest = %+v, want file %+v", m, want)
	}

	s, err := sqlite.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer s.Close()
	table, err := s.LoadTable(context.Background(), "test-run")
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if len(table.Rows) != 9 || table.Rows[0].Book != "GEN" {
		t.Errorf("stored table = %+v", table.Rows)
	}
}

func TestBibleNLP(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "xz"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeFile(t, dir, "GEN.usj", genesisUSJ)
			outDir := filepath.Join(dir, "out")
			if err := os.Mkdir(outDir, 0755); err != nil {
				t.Fatal(err)
			}
			dbPath := filepath.Join(dir, "corpus.db")

			res, err := BibleNLP(context.Background(), BibleNLPOptions{
				Source:   Source{Path: input},
				Sinks:    Sinks{SQLite: dbPath},
				OutDir:   outDir,
				Compress: compress,
			})
			if err != nil {
				t.Fatalf("BibleNLP failed: %v", err)
			}
			if res.Records != 2 || len(res.Files) != 2 {
				t.Fatalf("Result = %+v", res)
			}

			textPath, vrefPath := biblenlp.Paths(input, outDir, compress)
			c, err := biblenlp.Read(textPath, vrefPath)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			wantText := []string{"In the beginning God created", "The earth"}
			wantRef := []string{"GEN 1:1", "GEN 1:2"}
			for i := range wantText {
				if c.Text[i] != wantText[i] || c.VRef[i] != wantRef[i] {
					t.Errorf("entry %d = %q / %q", i, c.Text[i], c.VRef[i])
				}
			}

			s, err := sqlite.OpenStore(dbPath)
			if err != nil {
				t.Fatalf("OpenStore failed: %v", err)
			}
			defer s.Close()
			stored, err := s.LoadCorpus(context.Background(), "test-run")
			if err != nil {
				t.Fatalf("LoadCorpus failed: %v", err)
			}
			if stored.Len() != 2 || stored.Text[0] != wantText[0] {
				t.Errorf("stored corpus = %+v", stored)
			}

			n, err := CheckVRef(context.Background(), vrefPath, textPath)
			if err != nil || n != 2 {
				t.Errorf("CheckVRef() = %d, %v", n, err)
			}
		})
	}
}

func TestUSJFiltered(t *testing.T) {
	input := writeFile(t, t.TempDir(), "GEN.usj", genesisUSJ)

	var out bytes.Buffer
	_, err := USJ(context.Background(), USJOptions{
		Source:      Source{Path: input},
		Exclude:     []string{"characters", "b"},
		CombineText: true,
	}, &out)
	if err != nil {
		t.Fatalf("USJ failed: %v", err)
	}

	doc, err := usj.Decode(&out)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if usj.First(doc, usj.OfType("char")) != nil {
		t.Error("char markers should be removed")
	}
	para := usj.First(doc, func(n *usj.Node) bool { return n.Marker == "p" })
	if para == nil || len(para.Content) != 4 {
		t.Fatalf("para = %+v", para)
	}
	if got := para.Content[1]; got != usj.Text("In the beginning God created") {
		t.Errorf("combined text = %q", got)
	}
	if usj.First(doc, func(n *usj.Node) bool { return n.Marker == "b" }) != nil {
		t.Error("b should be removed")
	}
}

func TestMalformedInput(t *testing.T) {
	inputs := []struct {
		name string
		doc  string
	}{
		{"chapter without number", `{"type":"USJ","content":[{"type":"chapter","marker":"c"}]}`},
		{"para without type", `{"type":"USJ","content":[
			{"type":"book","marker":"id","code":"GEN"},
			{"type":"chapter","marker":"c","number":"1"},
			{"marker":"p","content":[{"type":"verse","marker":"v","number":"1"},"In the beginning"]}
		]}`},
		{"verse without number inside filtered char", `{"type":"USJ","content":[
			{"type":"book","marker":"id","code":"GEN"},
			{"type":"para","marker":"p","content":[{"type":"char","marker":"nd","content":[{"type":"verse","marker":"v"}]}]}
		]}`},
	}
	ops := []struct {
		name string
		run  func(path string) (*Result, error)
	}{
		{"table", func(path string) (*Result, error) {
			return Table(context.Background(), TableOptions{Source: Source{Path: path}}, io.Discard)
		}},
		{"biblenlp", func(path string) (*Result, error) {
			return BibleNLP(context.Background(), BibleNLPOptions{Source: Source{Path: path}})
		}},
		{"usj", func(path string) (*Result, error) {
			return USJ(context.Background(), USJOptions{Source: Source{Path: path}, Include: []string{"bcv"}}, io.Discard)
		}},
	}

	for _, in := range inputs {
		for _, op := range ops {
			t.Run(in.name+"/"+op.name, func(t *testing.T) {
				dir := t.TempDir()
				res, err := op.run(writeFile(t, dir, "bad.usj", in.doc))
				if !errors.Is(err, usferrors.ErrMalformedNode) {
					t.Errorf("%s() = %+v, %v, want malformed node", op.name, res, err)
				}
				if entries, _ := os.ReadDir(dir); len(entries) != 1 {
					t.Errorf("outputs written for malformed input: %v", entries)
				}
			})
		}
	}
}

func TestBibleNLPLineBreaksInText(t *testing.T) {
	doc := strings.Replace(genesisUSJ, `"The earth"`, `"The earth\r\nwas without form\r"`, 1)
	dir := t.TempDir()
	input := writeFile(t, dir, "GEN.usj", doc)

	if _, err := BibleNLP(context.Background(), BibleNLPOptions{Source: Source{Path: input}}); err != nil {
		t.Fatalf("BibleNLP failed: %v", err)
	}
	c, err := biblenlp.Read(biblenlp.Paths(input, "", false))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if c.Len() != 2 || c.Text[1] != "The earth was without form" {
		t.Errorf("Text = %q", c.Text)
	}
}

func TestTableWithByteOrderMark(t *testing.T) {
	for _, name := range []string{"GEN.usj", "GEN.txt"} {
		t.Run(name, func(t *testing.T) {
			input := writeFile(t, t.TempDir(), name, "\xef\xbb\xbf"+genesisUSJ)
			res, err := Table(context.Background(), TableOptions{Source: Source{Path: input}}, io.Discard)
			if err != nil {
				t.Fatalf("Table failed: %v", err)
			}
			if res.Records != 9 {
				t.Errorf("Records = %d, want 9", res.Records)
			}
		})
	}
}

func TestCheckVRefReportsLine(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "v.txt", "GEN 1:1\nGEN 1:2\nbad\n")

	_, err := CheckVRef(context.Background(), p, "")
	var pe *usferrors.ParseError
	if !errors.As(err, &pe) || pe.Line != 3 || pe.Path != p {
		t.Errorf("CheckVRef() = %v, want ParseError at line 3", err)
	}

	ok := writeFile(t, dir, "ok.txt", "GEN 1:1\nGEN 1:2\n")
	n, err := CheckVRef(context.Background(), ok, "")
	if err != nil || n != 2 {
		t.Errorf("CheckVRef() = %d, %v", n, err)
	}
}

func TestBibleNLPFromStdin(t *testing.T) {
	orig := stdin
	defer func() { stdin = orig }()
	stdin = strings.NewReader(strings.Replace(genesisUSJ, `"code": "GEN"`, `"code": "../GEN"`, 1))

	outDir := t.TempDir()
	res, err := BibleNLP(context.Background(), BibleNLPOptions{
		Source: Source{Path: Stdin},
		OutDir: outDir,
	})
	if err != nil {
		t.Fatalf("BibleNLP failed: %v", err)
	}
	want := filepath.Join(outDir, ".._GEN_biblenlp.txt")
	if len(res.Files) != 2 || res.Files[0].Path != want {
		t.Errorf("Files = %+v, want text file %s", res.Files, want)
	}
}
