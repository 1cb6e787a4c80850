// Package filestore keeps invoice documents as files under a root directory.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/navi/orderflow/internal/orders/ports"
)

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Put writes body under name and returns name as the document reference.
// Names are confined to the root directory.
func (s *Store) Put(_ context.Context, name, _ string, body []byte) (string, error) {
	ref, path := s.resolve(name)
	if ref == "" {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document %s: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document %s: %w", ref, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish document %s: %w", ref, err)
	}
	return ref, nil
}

func (s *Store) Get(_ context.Context, ref string) ([]byte, error) {
	clean, path := s.resolve(ref)
	if clean == "" {
		return nil, fmt.Errorf("%w: document %q", ports.ErrNotFound, ref)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: document %s", ports.ErrNotFound, clean)
		}
		return nil, fmt.Errorf("read document %s: %w", clean, err)
	}
	return body, nil
}

func (s *Store) resolve(name string) (ref, path string) {
	ref = filepath.ToSlash(filepath.Clean("/" + name))[1:]
	if ref == "" || ref == "." {
		return "", ""
	}
	return ref, filepath.Join(s.root, filepath.FromSlash(ref))
}
