// Package store implements the reference-table store backends: a volatile
// in-memory store and a durable file store that serializes tables to JSON
// documents through a pluggable DocumentProvider.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentProvider abstracts the physical medium the file store writes JSON
// documents to, so the same table/row logic runs unmodified against local
// disk or a remote object store. Paths are slash-separated and relative to
// the provider's root.
type DocumentProvider interface {
	// ReadJSON decodes the document at path into v. A missing document
	// returns (false, nil) — absence is not an error.
	ReadJSON(ctx context.Context, path string, v interface{}) (bool, error)

	// WriteJSON encodes v to the document at path, creating missing parent
	// directories. The write is durable-or-absent: a crash mid-write never
	// leaves a partial document observable to a subsequent read.
	WriteJSON(ctx context.Context, path string, v interface{}) error

	// Delete removes the document at path. Deleting a missing document is
	// not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a document exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the base names of documents directly under dir. A
	// missing directory yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)

	// EnsureDir creates dir and any missing parents. A no-op on media
	// without real directories.
	EnsureDir(ctx context.Context, dir string) error
}

// LocalProvider stores JSON documents on the local filesystem under a root
// directory.
type LocalProvider struct {
	root string
}

var _ DocumentProvider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider rooted at the given directory.
func NewLocalProvider(root string) *LocalProvider {
	return &LocalProvider{root: root}
}

func (p *LocalProvider) resolve(path string) string {
	return filepath.Join(p.root, filepath.FromSlash(path))
}

func (p *LocalProvider) ReadJSON(ctx context.Context, path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(p.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("corrupt document %s: %w", path, err)
	}
	return true, nil
}

// WriteJSON writes to a temporary file in the target directory and renames
// it over the destination, so readers observe either the old content or the
// new content, never a mix.
func (p *LocalProvider) WriteJSON(ctx context.Context, path string, v interface{}) error {
	dst := p.resolve(path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (p *LocalProvider) Delete(ctx context.Context, path string) error {
	err := os.Remove(p.resolve(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(p.resolve(path))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *LocalProvider) List(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(p.resolve(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (p *LocalProvider) EnsureDir(ctx context.Context, dir string) error {
	return os.MkdirAll(p.resolve(dir), 0o755)
}
