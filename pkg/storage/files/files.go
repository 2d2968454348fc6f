// Package files implements document storage backed by a directory tree.
// Each document is one file; writes go through a temp file and rename so
// readers never observe a partial document.
package files

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/storage"
)

// Option configures a files store.
type Option func(*config)

// WithReadOnly rejects all Put calls.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) {
		cfg.readOnly = readOnly
	}
}

type config struct {
	readOnly bool
}

// New creates a document store rooted at the given directory. The directory
// must exist.
func New(root string, opts ...Option) (storage.Store, error) {
	if root == "" {
		return nil, errors.NewConfigError("storage", "root path is required for files storage", nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.WrapStorage("stat", root, err)
	}
	if !info.IsDir() {
		return nil, errors.NewConfigError("storage", "root path is not a directory", nil)
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &store{root: root, readOnly: cfg.readOnly}, nil
}

type store struct {
	root     string
	readOnly bool
}

func (s *store) Get(_ context.Context, path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewStorageError("get", path, errors.ErrNotFound)
		}
		return "", errors.WrapStorage("get", path, err)
	}
	return string(data), nil
}

func (s *store) Put(_ context.Context, path string, content string) error {
	if s.readOnly {
		return errors.NewStorageError("put", path, errors.ErrReadOnly)
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.WrapStorage("put", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return errors.WrapStorage("put", path, err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapStorage("put", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapStorage("put", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapStorage("put", path, err)
	}
	return nil
}

func (s *store) List(_ context.Context, prefix string) ([]string, error) {
	base := s.root
	if prefix != "" {
		full, err := s.resolve(prefix)
		if err != nil {
			return nil, err
		}
		base = full
	}

	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapStorage("list", prefix, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// resolve maps a document path onto the root, rejecting escapes.
func (s *store) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", errors.NewStorageError("resolve", path, errors.ErrInvalidInput)
	}
	return filepath.Join(s.root, clean), nil
}
