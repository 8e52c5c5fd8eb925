// Package filesystem provides a small file-handling layer rooted at a
// base directory, with helpers for the JSON and CSV formats produced
// by package encoder. Writes go through an atomic rename so readers
// never observe a partially written file.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	atomic_file "github.com/natefinch/atomic"

	"github.com/rawasy/aderlee/pkg/encoder"
)

// FS performs file operations relative to a base directory.
type FS struct {
	base string
}

// New returns an FS rooted at basePath. An empty basePath means the
// current working directory.
func New(basePath string) *FS {
	if basePath == "" {
		basePath = "."
	}
	return &FS{base: basePath}
}

// Base returns the directory the FS is rooted at.
func (f *FS) Base() string { return f.base }

// Path resolves name relative to the base directory.
func (f *FS) Path(name string) string {
	return filepath.Join(f.base, name)
}

// ReadFile returns the contents of name as a string.
func (f *FS) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(f.Path(name))
	if err != nil {
		return "", fmt.Errorf("filesystem: reading %s: %w", name, err)
	}
	return string(data), nil
}

// WriteFile writes content to name, creating parent directories as
// needed. The content lands in a temporary sibling file first and is
// renamed into place, so a crash mid-write cannot leave a truncated
// file behind.
func (f *FS) WriteFile(name, content string) error {
	full := f.Path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("filesystem: creating parent directory for %s: %w", name, err)
	}
	if err := atomic_file.WriteFile(full, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("filesystem: writing %s: %w", name, err)
	}
	return nil
}

// ReadJSON reads name and parses it into v, which must be a non-nil
// pointer to the destination value.
func (f *FS) ReadJSON(name string, v any) error {
	content, err := f.ReadFile(name)
	if err != nil {
		return err
	}
	return encoder.FromJSON(content, v)
}

// WriteJSON writes v to name as an indented JSON document.
func (f *FS) WriteJSON(name string, v any) error {
	content, err := encoder.ToJSON(v)
	if err != nil {
		return err
	}
	return f.WriteFile(name, content)
}

// ReadCSV reads name as a comma-delimited CSV document and returns one
// map per data row, keyed by the header row.
func (f *FS) ReadCSV(name string) ([]map[string]string, error) {
	content, err := f.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return encoder.FromCSV(content)
}

// WriteCSV writes rows to name as a comma-delimited CSV document.
func (f *FS) WriteCSV(name string, rows []map[string]string) error {
	content, err := encoder.ToCSV(rows)
	if err != nil {
		return err
	}
	return f.WriteFile(name, content)
}

// List returns the paths under the base directory matching pattern,
// using filepath.Match glob syntax.
func (f *FS) List(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(f.base, pattern))
	if err != nil {
		return nil, fmt.Errorf("filesystem: listing %s: %w", pattern, err)
	}
	return matches, nil
}

// Exists reports whether name exists under the base directory.
func (f *FS) Exists(name string) bool {
	_, err := os.Stat(f.Path(name))
	return err == nil
}

// Exec runs command through the shell with the base directory as its
// working directory and returns the combined output with surrounding
// whitespace trimmed. The output is returned even when the command
// exits non-zero, alongside the error.
func (f *FS) Exec(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = f.base
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("filesystem: running %q: %w", command, err)
	}
	return output, nil
}
