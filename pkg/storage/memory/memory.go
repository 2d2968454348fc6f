// Package memory implements an in-memory document store. It backs tests
// and dry runs, where writes must not touch the real document tree.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aclement30/raceresults/pkg/errors"
	"github.com/aclement30/raceresults/pkg/storage"
)

// Option configures a memory store.
type Option func(*config)

// WithReadOnly rejects all Put calls.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) {
		cfg.readOnly = readOnly
	}
}

// WithPreload seeds the store with existing documents.
func WithPreload(docs map[string]string) Option {
	return func(cfg *config) {
		for path, content := range docs {
			cfg.preload[path] = content
		}
	}
}

type config struct {
	readOnly bool
	preload  map[string]string
}

// New creates an in-memory document store.
func New(opts ...Option) storage.Store {
	cfg := &config{preload: make(map[string]string)}
	for _, opt := range opts {
		opt(cfg)
	}
	return &store{docs: cfg.preload, readOnly: cfg.readOnly}
}

type store struct {
	mu       sync.RWMutex
	docs     map[string]string
	readOnly bool
}

func (s *store) Get(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.docs[path]
	if !ok {
		return "", errors.NewStorageError("get", path, errors.ErrNotFound)
	}
	return content, nil
}

func (s *store) Put(_ context.Context, path string, content string) error {
	if s.readOnly {
		return errors.NewStorageError("put", path, errors.ErrReadOnly)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = content
	return nil
}

func (s *store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for path := range s.docs {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
