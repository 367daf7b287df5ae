package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// Store reads and writes immutable objects addressed by slash-separated names.
type Store interface {
	// RootPath returns the prefix path builders place objects under.
	RootPath() string
	// Size returns the size of an object in bytes.
	Size(ctx context.Context, name string) (int64, error)
	// Read returns the full contents of an object.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write stores data under name, replacing any previous object.
	Write(ctx context.Context, name string, data []byte) error
	// Remove deletes an object. Removing a missing object is not an error.
	Remove(ctx context.Context, name string) error
	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
