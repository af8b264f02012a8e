// Command usfm-grammar converts USJ and USX scripture documents into a flat
// table, a BibleNLP verse-aligned corpus, or filtered USJ.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wkelly17/usfm-grammar/core/errors"
	"github.com/wkelly17/usfm-grammar/core/sqlite"
	"github.com/wkelly17/usfm-grammar/internal/config"
	"github.com/wkelly17/usfm-grammar/internal/logging"
	"github.com/wkelly17/usfm-grammar/internal/markers"
	"github.com/wkelly17/usfm-grammar/internal/output"
	"github.com/wkelly17/usfm-grammar/internal/pipeline"
)

const version = "0.1.0"

// stdout receives converted data. Logs go to stderr.
var stdout io.Writer = os.Stdout

// Globals are flags shared by every command.
type Globals struct {
	LogLevel  string          `help:"Log level (${enum})" default:"info" enum:"debug,info,warn,error" env:"USFM_GRAMMAR_LOG_LEVEL"`
	LogFormat string          `help:"Log format (${enum})" default:"text" enum:"text,json" env:"USFM_GRAMMAR_LOG_FORMAT"`
	Config    kong.ConfigFlag `help:"YAML file with flag defaults"`
}

// AfterApply configures logging once flags are resolved.
func (g *Globals) AfterApply() error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Table    TableCmd      `cmd:"" help:"Flatten a document into a Book/Chapter/Verse/Text/Type/Marker table"`
	BibleNLP BibleNLPCmd   `cmd:"" name:"biblenlp" help:"Write a BibleNLP verse-aligned corpus"`
	USJ      USJCmd        `cmd:"" name:"usj" help:"Write the document as (filtered) USJ JSON"`
	VRef     VRefGroup     `cmd:"" name:"vref" help:"Verse reference file operations"`
	Store    StoreGroup    `cmd:"" help:"Read conversions stored with --sqlite"`
	Manifest ManifestGroup `cmd:"" help:"Output manifest operations"`
	Version  VersionCmd    `cmd:"" help:"Print version information"`
}

// InputFlags select the document to read.
type InputFlags struct {
	Input    string `arg:"" help:"USJ (.json, .usj), USX (.xml, .usx) or BibleNLP (*_biblenlp.txt) file, or - for stdin"`
	InFormat string `name:"in-format" help:"Input format (usj, usx or biblenlp), overriding the file name" env:"USFM_GRAMMAR_IN_FORMAT"`
	VRef     string `name:"vref" help:"vref file for BibleNLP input (default: the matching _biblenlp_vref.txt)" type:"path"`
	BookCode string `name:"bookcode" help:"Book to take from BibleNLP input (default: its only book)"`
}

func (f InputFlags) source() pipeline.Source {
	return pipeline.Source{
		Path:   f.Input,
		Format: pipeline.InputFormat(f.InFormat),
		VRef:   f.VRef,
		Book:   f.BookCode,
	}
}

// CSVFlags control delimited output.
type CSVFlags struct {
	ColSep string `name:"col-sep" help:"Column separator, escapes like \\t allowed (default tab)" env:"USFM_GRAMMAR_COL_SEP"`
	RowSep string `name:"row-sep" help:"Row separator, escapes like \\r\\n allowed (default newline)" env:"USFM_GRAMMAR_ROW_SEP"`
	JSON   bool   `name:"json" help:"Write a JSON list of rows instead of CSV"`
}

func (f CSVFlags) csv() output.CSVOptions {
	return output.CSVOptions{ColSep: unescape(f.ColSep), RowSep: unescape(f.RowSep)}
}

// FilterFlags hold marker names or marker group names.
type FilterFlags struct {
	ExcludeMarkers []string `name:"exclude-markers" short:"e" sep:"," help:"Markers or groups to drop (groups: ${groups})" env:"USFM_GRAMMAR_EXCLUDE_MARKERS"`
	IncludeMarkers []string `name:"include-markers" short:"i" sep:"," help:"Markers or groups to keep (groups: ${groups})" env:"USFM_GRAMMAR_INCLUDE_MARKERS"`
}

// TableCmd flattens a document into rows.
type TableCmd struct {
	InputFlags
	FilterFlags
	CSVFlags

	Output   string `short:"o" help:"Output file (default stdout)" type:"path"`
	SQLite   string `name:"sqlite" help:"Also store the rows in this SQLite database" type:"path" env:"USFM_GRAMMAR_SQLITE"`
	Manifest string `help:"Write SHA-256/BLAKE3 digests of the outputs to this file" type:"path"`
}

func (c *TableCmd) Run(ctx context.Context) error {
	res, err := pipeline.Table(ctx, pipeline.TableOptions{
		Source:  c.source(),
		Sinks:   pipeline.Sinks{SQLite: c.SQLite, Manifest: c.Manifest},
		Exclude: c.ExcludeMarkers,
		Include: c.IncludeMarkers,
		CSV:     c.csv(),
		JSON:    c.JSON,
		Output:  c.Output,
	}, stdout)
	if err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", res.Records, c.Output)
	}
	return nil
}

// BibleNLPCmd writes the text and vref files of a corpus.
type BibleNLPCmd struct {
	InputFlags

	OutDir   string `name:"out-dir" help:"Directory for the corpus files (default: next to the input)" type:"path" env:"USFM_GRAMMAR_OUT_DIR"`
	XZ       bool   `name:"xz" help:"Compress the corpus files with xz" env:"USFM_GRAMMAR_XZ"`
	SQLite   string `name:"sqlite" help:"Also store the corpus in this SQLite database" type:"path" env:"USFM_GRAMMAR_SQLITE"`
	Manifest string `help:"Write SHA-256/BLAKE3 digests of the outputs to this file" type:"path"`
}

func (c *BibleNLPCmd) Run(ctx context.Context) error {
	res, err := pipeline.BibleNLP(ctx, pipeline.BibleNLPOptions{
		Source:   c.source(),
		Sinks:    pipeline.Sinks{SQLite: c.SQLite, Manifest: c.Manifest},
		OutDir:   c.OutDir,
		Compress: c.XZ,
	})
	if err != nil {
		return err
	}
	printOutputs(res)
	return nil
}

func printOutputs(res *pipeline.Result) {
	paths := make([]string, len(res.Files))
	for i, f := range res.Files {
		paths[i] = f.Path
	}
	fmt.Fprintf(stdout, "Outputs written to %s.\n", strings.Join(paths, " and "))
}

// USJCmd writes the document back as USJ.
type USJCmd struct {
	InputFlags
	FilterFlags

	CombineText bool   `name:"combine-text" help:"Join adjacent text runs left behind by filtering"`
	Indent      int    `help:"Indentation width, 0 for compact output" default:"2"`
	Output      string `short:"o" help:"Output file (default stdout)" type:"path"`
	Manifest    string `help:"Write SHA-256/BLAKE3 digests of the outputs to this file" type:"path"`
}

func (c *USJCmd) Run(ctx context.Context) error {
	_, err := pipeline.USJ(ctx, pipeline.USJOptions{
		Source:      c.source(),
		Sinks:       pipeline.Sinks{Manifest: c.Manifest},
		Exclude:     c.ExcludeMarkers,
		Include:     c.IncludeMarkers,
		CombineText: c.CombineText,
		Indent:      strings.Repeat(" ", max(c.Indent, 0)),
		Output:      c.Output,
	}, stdout)
	return err
}

// VRefGroup contains verse reference operations.
type VRefGroup struct {
	Check VRefCheckCmd `cmd:"" help:"Validate a vref file, optionally against its text file"`
}

// VRefCheckCmd validates a vref file.
type VRefCheckCmd struct {
	VRef string `arg:"" help:"vref file (.xz allowed)" type:"existingfile"`
	Text string `help:"Matching text file; line counts must agree" type:"existingfile"`
}

func (c *VRefCheckCmd) Run(ctx context.Context) error {
	n, err := pipeline.CheckVRef(ctx, c.VRef, c.Text)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d references OK\n", c.VRef, n)
	return nil
}

// StoreGroup contains SQLite store operations.
type StoreGroup struct {
	Runs   StoreRunsCmd   `cmd:"" help:"List stored conversions"`
	Table  StoreTableCmd  `cmd:"" help:"Write the table rows of a stored conversion"`
	Corpus StoreCorpusCmd `cmd:"" help:"Write the BibleNLP files of a stored conversion"`
}

// StoreRunsCmd lists stored runs.
type StoreRunsCmd struct {
	Database string `arg:"" help:"SQLite database written with --sqlite" type:"existingfile"`
}

func (c *StoreRunsCmd) Run(ctx context.Context) error {
	runs, err := pipeline.Runs(ctx, c.Database)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", r.ID, r.Book, r.CreatedAt.Format(time.RFC3339), r.Source)
	}
	return nil
}

// StoreTableCmd exports stored rows.
type StoreTableCmd struct {
	Database string `arg:"" help:"SQLite database written with --sqlite" type:"existingfile"`
	RunID    string `arg:"" name:"run-id" help:"Run ID as listed by store runs"`
	CSVFlags

	Output string `short:"o" help:"Output file (default stdout)" type:"path"`
}

func (c *StoreTableCmd) Run(ctx context.Context) error {
	n, err := pipeline.ExportTable(ctx, pipeline.ExportTableOptions{
		Database: c.Database,
		RunID:    c.RunID,
		CSV:      c.csv(),
		JSON:     c.JSON,
		Output:   c.Output,
	}, stdout)
	if err != nil {
		return err
	}
	if c.Output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", n, c.Output)
	}
	return nil
}

// StoreCorpusCmd exports a stored corpus.
type StoreCorpusCmd struct {
	Database string `arg:"" help:"SQLite database written with --sqlite" type:"existingfile"`
	RunID    string `arg:"" name:"run-id" help:"Run ID as listed by store runs"`
	OutDir   string `name:"out-dir" help:"Directory for the corpus files (default: current directory)" type:"path"`
	XZ       bool   `name:"xz" help:"Compress the corpus files with xz"`
}

func (c *StoreCorpusCmd) Run(ctx context.Context) error {
	res, err := pipeline.ExportCorpus(ctx, pipeline.ExportCorpusOptions{
		Database: c.Database,
		RunID:    c.RunID,
		OutDir:   c.OutDir,
		Compress: c.XZ,
	})
	if err != nil {
		return err
	}
	printOutputs(res)
	return nil
}

// ManifestGroup contains manifest operations.
type ManifestGroup struct {
	Verify ManifestVerifyCmd `cmd:"" help:"Check that the files listed in a manifest are unchanged"`
}

// ManifestVerifyCmd re-hashes the files of a manifest.
type ManifestVerifyCmd struct {
	Manifest string `arg:"" help:"Manifest written with --manifest" type:"existingfile"`
}

func (c *ManifestVerifyCmd) Run(ctx context.Context) error {
	m, changed, err := pipeline.VerifyManifest(ctx, c.Manifest)
	if err != nil {
		return err
	}
	for _, p := range changed {
		fmt.Fprintf(stdout, "changed: %s\n", p)
	}
	if len(changed) > 0 {
		return errors.NewValidation("manifest", fmt.Sprintf("%d of %d files changed since run %s", len(changed), len(m.Files), m.RunID))
	}
	fmt.Fprintf(stdout, "%s: %d files OK\n", c.Manifest, len(m.Files))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Fprintf(stdout, "usfm-grammar version %s (sqlite: %s)\n", version, info.Package)
	return nil
}

// unescape interprets Go escape sequences such as \t, so separators can
// be given on the command line or in YAML without literal control
// characters. Strings that do not unquote are used as is.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	u, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return s
	}
	return u
}

func groupNames() string {
	gs := markers.Groups()
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

func options() []kong.Option {
	return []kong.Option{
		kong.Name("usfm-grammar"),
		kong.Description("Convert USJ/USX scripture documents to tables and aligned corpora"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{"groups": groupNames()},
		kong.Configuration(config.YAML, config.DefaultPaths...),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, options()...)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
