// Package digest fingerprints output files with SHA-256 and BLAKE3 and
// records them in a JSON manifest.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/wkelly17/usfm-grammar/core/errors"
)

// Injectable for testing.
var (
	osCreateTemp = os.CreateTemp
	osRename     = os.Rename
)

// Entry fingerprints one file.
type Entry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Manifest lists the files produced by one run.
type Manifest struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Files     []Entry   `json:"files"`
}

// File hashes the file at path in a single pass.
func File(path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, errors.NewIO("open", path, err)
	}
	defer f.Close()

	s := sha256.New()
	b := blake3.New()
	n, err := io.Copy(io.MultiWriter(s, b), f)
	if err != nil {
		return Entry{}, errors.NewIO("read", path, err)
	}
	return Entry{
		Path:   path,
		Size:   n,
		SHA256: hex.EncodeToString(s.Sum(nil)),
		BLAKE3: hex.EncodeToString(b.Sum(nil)),
	}, nil
}

// Add hashes each path and appends it to the manifest.
func (m *Manifest) Add(paths ...string) error {
	for _, p := range paths {
		e, err := File(p)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, e)
	}
	return nil
}

// Write stores the manifest as indented JSON. The file is replaced
// atomically so readers never see a partial manifest.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal manifest")
	}
	data = append(data, '\n')

	tmp, err := osCreateTemp(filepath.Dir(path), ".manifest-*")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("close", path, err)
	}
	if err := osRename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIO("rename", path, err)
	}
	return nil
}

// Verify re-hashes every file in the manifest and returns the paths whose
// content no longer matches.
func (m *Manifest) Verify() ([]string, error) {
	var changed []string
	for _, want := range m.Files {
		got, err := File(want.Path)
		if err != nil {
			return nil, err
		}
		if got.SHA256 != want.SHA256 || got.BLAKE3 != want.BLAKE3 {
			changed = append(changed, want.Path)
		}
	}
	return changed, nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "manifest", Path: path, Message: err.Error(), Err: err}
	}
	return &m, nil
}
