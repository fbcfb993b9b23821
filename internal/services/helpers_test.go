package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dailyscrum/internal/cache"
	"dailyscrum/internal/models"
	"dailyscrum/internal/repositories"
	"dailyscrum/internal/services"
	"dailyscrum/internal/storage"
	"dailyscrum/internal/upload"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.MigrateGORM(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// recordingStore remembers every key it was asked to delete.
type recordingStore struct {
	cache.Store
	mu      sync.Mutex
	deleted []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: cache.NewMemoryStore(128, time.Hour)}
}

func (r *recordingStore) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, keys...)
	r.mu.Unlock()
	return r.Store.Delete(ctx, keys...)
}

func (r *recordingStore) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func (r *recordingStore) Reset() {
	r.mu.Lock()
	r.deleted = nil
	r.mu.Unlock()
}

// recordingPublisher collects the routing keys of published events.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(routingKey string, _ []byte) error {
	p.mu.Lock()
	p.keys = append(p.keys, routingKey)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// countingIngester wraps an ingester and counts the batches it receives.
type countingIngester struct {
	inner services.FileIngester
	calls int
}

func (c *countingIngester) Ingest(ctx context.Context, files []upload.File) (upload.Result, error) {
	c.calls++
	return c.inner.Ingest(ctx, files)
}

// failingBlobStore refuses to delete the listed keys.
type failingBlobStore struct {
	storage.BlobStore
	failDelete map[string]bool
}

func (f *failingBlobStore) Delete(ctx context.Context, key string) error {
	if f.failDelete[key] {
		return io.ErrUnexpectedEOF
	}
	return f.BlobStore.Delete(ctx, key)
}

func createUser(t *testing.T, repo repositories.UserRepository, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, repo.Create(context.Background(), &u))
	return u
}
