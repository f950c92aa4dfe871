// Package store persists profit documents.
package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/profit"
)

// File stores the document as a JSON file.
type File struct {
	Path string
}

// NewFile returns a store writing to path.
func NewFile(path string) *File { return &File{Path: path} }

// Load reads the document. A missing file yields an error wrapping
// fs.ErrNotExist.
func (f *File) Load(ctx context.Context) (*profit.Document, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", f.Path, err)
	}
	doc, err := profit.DecodeDocument(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", f.Path, err)
	}
	return doc, nil
}

// Save writes the document to a temporary file then renames it, so that a
// failed save never leaves a truncated document behind.
func (f *File) Save(ctx context.Context, doc *profit.Document) error {
	var buf bytes.Buffer
	if err := profit.EncodeDocument(&buf, doc); err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save %q: %w", f.Path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("save %q: %w", f.Path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save %q: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %q: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("save %q: %w", f.Path, err)
	}
	return nil
}
