package storage

import (
	"context"
	"io"
)

// BlobStore owns the physical files backing assets. Filenames are flat names
// relative to the store root, derived as {slug}.{ext}.
type BlobStore interface {
	// Save writes data under a name derived from slug and mediaType and returns that name.
	// An existing file with the same name is overwritten.
	Save(ctx context.Context, data []byte, slug, mediaType string) (string, error)

	// Delete removes the file. A missing file is not an error.
	Delete(ctx context.Context, filename string) error

	// Rename moves the file to newBase plus the original extension and returns the new name
	Rename(ctx context.Context, oldFilename, newBase string) (string, error)

	// Open returns the content of the file
	Open(ctx context.Context, filename string) (io.ReadCloser, error)

	// Exists checks if the file exists
	Exists(ctx context.Context, filename string) (bool, error)

	// List returns every stored filename
	List(ctx context.Context) ([]string, error)
}
