package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

type tableCmd struct {
	Input          string   `arg:"" optional:""`
	ColSep         string   `default:"|"`
	ExcludeMarkers []string `sep:","`
	Limit          int
}

type testCLI struct {
	LogLevel string   `default:"info"`
	Verbose  bool     `default:"false"`
	Table    tableCmd `cmd:""`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return p
}

func parse(t *testing.T, configPath string, args ...string) *testCLI {
	t.Helper()
	var cli testCLI
	parser, err := kong.New(&cli, kong.Configuration(YAML, configPath), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return &cli
}

func TestYAMLResolver(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
verbose: true
table:
  col-sep: ","
  exclude_markers: [bcv, notes]
  limit: 5
`)
	cli := parse(t, path, "table", "GEN.usj")

	if cli.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cli.LogLevel)
	}
	if !cli.Verbose {
		t.Error("Verbose should be set from config")
	}
	if cli.Table.ColSep != "," {
		t.Errorf("ColSep = %q, want ,", cli.Table.ColSep)
	}
	if strings.Join(cli.Table.ExcludeMarkers, "|") != "bcv|notes" {
		t.Errorf("ExcludeMarkers = %q", cli.Table.ExcludeMarkers)
	}
	if cli.Table.Limit != 5 {
		t.Errorf("Limit = %d, want 5", cli.Table.Limit)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, "log-level: debug\ntable:\n  col-sep: \",\"\n")
	cli := parse(t, path, "--log-level=warn", "table", "--col-sep=;", "GEN.usj")

	if cli.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cli.LogLevel)
	}
	if cli.Table.ColSep != ";" {
		t.Errorf("ColSep = %q, want ;", cli.Table.ColSep)
	}
}

func TestEmptyAndMissingConfig(t *testing.T) {
	cli := parse(t, writeConfig(t, ""), "table")
	if cli.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cli.LogLevel)
	}

	cli = parse(t, filepath.Join(t.TempDir(), "absent.yaml"), "table")
	if cli.Table.ColSep != "|" {
		t.Errorf("ColSep = %q, want default |", cli.Table.ColSep)
	}
}

func TestYAMLInvalid(t *testing.T) {
	if _, err := YAML(strings.NewReader("a: [b")); err == nil {
		t.Error("YAML() should reject malformed input")
	}
}

func TestFlagValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    any
		wantErr bool
	}{
		{"string", "x", "x", false},
		{"int", 3, "3", false},
		{"bool", true, "true", false},
		{"list", []any{"a", 1}, "a,1", false},
		{"nil", nil, nil, false},
		{"mapping", map[string]any{"a": 1}, nil, true},
		{"nested list", []any{[]any{"a"}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := flagValue("k", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("flagValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("flagValue() = %v, want %v", got, tt.want)
			}
		})
	}
}
