package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks a path (or the whole namespace) that does not
	// exist in the remote repository. Listings treat it as an empty
	// result, never as a failure.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict marks a mutation rejected because the supplied
	// version token no longer matches: the entry changed or was removed
	// underneath us.
	ErrConflict = errors.New("store: version conflict")
)

// Entry is one blob known to the remote store.
type Entry struct {
	Path string // full path within the repository
	Name string // leaf name
	SHA  string // version token of the current content
	Size int64
}

// Store is the remote content repository the service delegates all
// durable storage to. Every write yields a fresh version token and
// deletions require the current one, which is the only concurrency
// control this system relies on.
type Store interface {
	// Write creates or overwrites the blob at path and returns its new
	// version token.
	Write(ctx context.Context, path string, data []byte) (string, error)

	// List enumerates the direct children of a directory-like path.
	// Returns ErrNotFound when the path does not exist.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Stat returns the current version token of the blob at path.
	Stat(ctx context.Context, path string) (string, error)

	// Delete removes the blob at path. The token must match the current
	// version; ErrConflict means the entry already changed or vanished.
	Delete(ctx context.Context, path string, sha string) error

	// PublicURL returns the externally reachable URL for a stored path.
	PublicURL(path string) string
}
