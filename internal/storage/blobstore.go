// Package storage persists uploaded file bytes under generated keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Storage drivers accepted by New.
const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// ErrNotFound is returned by Open when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidKey is returned for keys that could escape the store's namespace.
var ErrInvalidKey = errors.New("invalid blob key")

// Object describes a stored blob for maintenance listings.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobStore is implemented by every storage backend.
type BlobStore interface {
	// Store writes data under name and returns the key to reference it by.
	Store(ctx context.Context, data []byte, name, contentType string) (string, error)
	// Delete removes the blob. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// Resolve returns a locator a client can fetch the blob from directly.
	Resolve(ctx context.Context, key string) (string, error)
	// Open streams the blob's bytes.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context) ([]Object, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver string

	// local
	Path    string
	BaseURL string

	// s3
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PresignTTL      time.Duration
}

// New builds the backend named by cfg.Driver.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocalStore(cfg.Path, cfg.BaseURL)
	case DriverS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
