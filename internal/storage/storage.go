package storage

import (
	"context"
	"io"
)

// FileStorage abstracts where uploaded files (publication PDFs, cohort
// avatars) end up. Implementations return a URL the client can fetch.
type FileStorage interface {
	// SaveFile stores a file and returns its public URL
	SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error)
	// DeleteFile removes a previously saved file by its URL
	DeleteFile(ctx context.Context, fileURL string) error
}
