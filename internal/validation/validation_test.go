package validation

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{"valid relative path", "GEN.usj", nil},
		{"valid absolute path", "/tmp/GEN.usx", nil},
		{"empty path", "", ErrEmptyPath},
		{"path with null byte", "file\x00.usj", ErrInvalidCharacter},
		{"path with control character", "dir/file\n.usj", ErrInvalidCharacter},
		{"very long path", strings.Repeat("a/", 2048) + "file.usj", ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantError error
	}{
		{"valid", "GEN_biblenlp.txt", nil},
		{"empty", "", ErrInvalidFilename},
		{"dot dot", "..", ErrInvalidFilename},
		{"separator", "a/b", ErrInvalidFilename},
		{"hyphen", "-rf", ErrInvalidFilename},
		{"too long", strings.Repeat("a", 256), ErrFilenameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if !errors.Is(err, tt.wantError) {
				t.Errorf("ValidateFilename() error = %v, want %v", err, tt.wantError)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		want      string
		wantError error
	}{
		{"valid filename unchanged", "GEN", "GEN", nil},
		{"leading and trailing spaces", "  GEN  ", "GEN", nil},
		{"slashes replaced", "../GEN", ".._GEN", nil},
		{"backslashes replaced", "dir\\GEN", "dir_GEN", nil},
		{"control characters removed", "GE\nN\x00", "GEN", nil},
		{"leading hyphen removed", "-GEN", "GEN", nil},
		{"empty filename", "", "", ErrInvalidFilename},
		{"becomes empty", "---", "", ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.filename)
			if !errors.Is(err, tt.wantError) {
				t.Fatalf("SanitizeFilename() error = %v, want %v", err, tt.wantError)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want Kind
	}{
		{"usj", []byte(`{"type":"USJ"}`), KindUSJ},
		{"usj with bom and space", []byte("\xef\xbb\xbf\n  {"), KindUSJ},
		{"usx", []byte(`<?xml version="1.0"?><usx/>`), KindUSX},
		{"xz", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0x01}, KindXZ},
		{"sqlite", []byte("SQLite format 3\x00rest"), KindSQLite},
		{"binary", []byte{'a', 0x00, 'b'}, KindBinary},
		{"usfm", []byte(`\id GEN`), KindUnknown},
		{"empty", nil, KindUnknown},
		{"whitespace", []byte(" \n\t"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.buf); got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSniffReaderKeepsContent(t *testing.T) {
	input := `<usx version="3.0">` + strings.Repeat(" ", 1000) + `</usx>`
	kind, r, err := SniffReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("SniffReader failed: %v", err)
	}
	if kind != KindUSX {
		t.Errorf("kind = %q, want usx", kind)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != input {
		t.Error("sniffing consumed part of the input")
	}

	kind, _, err = SniffReader(strings.NewReader("{}"))
	if err != nil || kind != KindUSJ {
		t.Errorf("short input: kind = %q, err = %v", kind, err)
	}
}

func TestLimitReader(t *testing.T) {
	data, err := io.ReadAll(LimitReader(strings.NewReader("12345"), 5))
	if err != nil || string(data) != "12345" {
		t.Errorf("exact size: %q, %v", data, err)
	}

	_, err = io.ReadAll(LimitReader(strings.NewReader("123456"), 5))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversize: err = %v, want ErrTooLarge", err)
	}
}

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bom", "\xef\xbb\xbf{\"type\":\"USJ\"}", `{"type":"USJ"}`},
		{"no bom", `<usx/>`, `<usx/>`},
		{"short", "{", "{"},
		{"empty", "", ""},
		{"bom only once", "\xef\xbb\xbf\xef\xbb\xbfx", "\xef\xbb\xbfx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := io.ReadAll(SkipBOM(strings.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("SkipBOM() = %q, want %q", data, tt.want)
			}
		})
	}
}
