// Package storage abstracts where the engine's documents live. Documents
// are whole files addressed by slash-separated paths relative to a root.
package storage

import "context"

// Store reads and writes whole documents.
type Store interface {
	// Get returns a document's content. Missing documents return an
	// error matching errors.ErrNotFound.
	Get(ctx context.Context, path string) (string, error)

	// Put writes a document, replacing any existing content.
	Put(ctx context.Context, path string, content string) error

	// List returns the paths of all documents under the given prefix,
	// sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
}
