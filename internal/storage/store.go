package storage

import (
	"context"
	"errors"

	"codeir/internal/diag"
)

// ErrNotFound is returned when a key has no cached document.
var ErrNotFound = errors.New("document not found")

// Store persists serialized IR documents keyed by run key.
type Store interface {
	DocumentStore
	Close() error
}

// DocumentStore defines operations for the IR document cache.
type DocumentStore interface {
	// SaveDocument upserts a document and the file snapshot it was built from.
	SaveDocument(ctx context.Context, e *Entry) error

	// LoadDocument retrieves a document by run key.
	LoadDocument(ctx context.Context, key string) (*Entry, error)

	// DeleteDocument removes a document and its file snapshot.
	DeleteDocument(ctx context.Context, key string) error

	// ListKeys returns every cached run key in sorted order.
	ListKeys(ctx context.Context) ([]string, error)
}

// Entry is one cached run.
type Entry struct {
	Key         string
	Data        []byte // canonical JSON
	Entities    int
	Truncated   bool
	Diagnostics []diag.Diagnostic
	Files       map[string]string // path -> content hash
}
