package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dailyscrum/internal/storage"
)

// FileEntry is a stored blob together with its public locator.
type FileEntry struct {
	storage.Object
	URL string `json:"url"`
}

// Download is either a redirect target or an open body, never both.
type Download struct {
	RedirectURL string
	Body        io.ReadCloser
}

// FileService serves stored files back to clients.
type FileService struct {
	blobs    storage.BlobStore
	redirect bool
}

// NewFileService creates a FileService. With redirect set, downloads point at
// the store's own locator instead of streaming through the API.
func NewFileService(blobs storage.BlobStore, redirect bool) *FileService {
	return &FileService{blobs: blobs, redirect: redirect}
}

// Fetch prepares the download of key.
func (s *FileService) Fetch(ctx context.Context, key string) (*Download, error) {
	if s.redirect {
		url, err := s.blobs.Resolve(ctx, key)
		if err != nil {
			return nil, blobError(err, key)
		}
		return &Download{RedirectURL: url}, nil
	}
	body, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, blobError(err, key)
	}
	return &Download{Body: body}, nil
}

// List returns every stored blob with its locator.
func (s *FileService) List(ctx context.Context) ([]FileEntry, error) {
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	entries := make([]FileEntry, 0, len(objects))
	for _, obj := range objects {
		url, err := s.blobs.Resolve(ctx, obj.Key)
		if err != nil {
			return nil, blobError(err, obj.Key)
		}
		entries = append(entries, FileEntry{Object: obj, URL: url})
	}
	return entries, nil
}

func blobError(err error, key string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
		return fmt.Errorf("file %s: %w", key, ErrNotFound)
	default:
		return fmt.Errorf("file %s: %w", key, err)
	}
}
