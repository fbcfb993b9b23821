package services

import (
	"context"
	"fmt"

	"dailyscrum/internal/models"
	"dailyscrum/internal/storage"

	"golang.org/x/sync/errgroup"
)

const resolveConcurrency = 8

// resolveFiles turns stored keys into client-fetchable locators, keeping order.
func resolveFiles(ctx context.Context, blobs storage.BlobStore, keys []string) ([]models.FileLocator, error) {
	locators := make([]models.FileLocator, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			url, err := blobs.Resolve(ctx, key)
			if err != nil {
				return fmt.Errorf("resolve file %s: %w", key, err)
			}
			locators[i] = models.FileLocator{Name: key, URL: url}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locators, nil
}
