// Package upload turns raw multipart files into stored blobs.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"dailyscrum/internal/storage"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp" // register the webp decoder for image.Decode
)

// Images are fitted inside this box and re-encoded as JPEG.
const (
	MaxImageWidth    = 1028
	MaxImageHeight   = 768
	imageQuality     = 80
	imageExtension   = ".jpg"
	imageContentType = "image/jpeg"
)

// nameExtension matches extensions that are safe to reuse in a blob key and its URL.
var nameExtension = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// File is one uploaded file as received from the client.
type File struct {
	Data        []byte
	Name        string
	ContentType string
}

// Result lists the stored keys. Images and Other partition Keys, which keeps
// the input order.
type Result struct {
	Images []string
	Other  []string
	Keys   []string
}

// Ingester normalizes and stores uploads.
type Ingester struct {
	store  storage.BlobStore
	logger *slog.Logger
}

// NewIngester creates an Ingester writing to store.
func NewIngester(store storage.BlobStore, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: store, logger: logger}
}

// Ingest stores every well-formed file under a fresh random name. Files without
// bytes or content type are skipped. The first store failure aborts the batch;
// blobs already written stay behind.
func (i *Ingester) Ingest(ctx context.Context, files []File) (Result, error) {
	res := Result{Images: []string{}, Other: []string{}, Keys: []string{}}
	for _, f := range files {
		if len(f.Data) == 0 || f.ContentType == "" {
			i.logger.Debug("skipping malformed upload", "name", f.Name)
			continue
		}

		if strings.HasPrefix(f.ContentType, "image/") {
			data, err := normalizeImage(f.Data)
			if err == nil {
				key, err := i.store.Store(ctx, data, uuid.New().String()+imageExtension, imageContentType)
				if err != nil {
					return res, fmt.Errorf("store image %q: %w", f.Name, err)
				}
				res.Images = append(res.Images, key)
				res.Keys = append(res.Keys, key)
				continue
			}
			i.logger.Warn("image not decodable, storing as-is", "name", f.Name, "content_type", f.ContentType, "error", err)
		}

		key, err := i.store.Store(ctx, f.Data, uuid.New().String()+extension(f.Name, f.ContentType), f.ContentType)
		if err != nil {
			return res, fmt.Errorf("store file %q: %w", f.Name, err)
		}
		res.Other = append(res.Other, key)
		res.Keys = append(res.Keys, key)
	}
	return res, nil
}

// normalizeImage fits the image inside the bounding box without enlarging it.
func normalizeImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > MaxImageWidth || b.Dy() > MaxImageHeight {
		img = imaging.Fit(img, MaxImageWidth, MaxImageHeight, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(imageQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// extension keeps the uploaded name's extension when it is short and
// alphanumeric, falling back to the one registered for the content type.
func extension(name, contentType string) string {
	if ext := strings.ToLower(filepath.Ext(filepath.Base(name))); nameExtension.MatchString(ext) {
		return ext
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	if m := mimetype.Lookup(strings.TrimSpace(mediaType)); m != nil {
		return m.Extension()
	}
	return ""
}
