package s3

import (
	"context"
	"io"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cinelog/cinelog/pkg/storage"
)

type cachedBlob struct {
	data        []byte
	contentType string
}

// CachingBlobStore wraps a BlobStore with an in-process expirable LRU.
// Posters are small, immutable once uploaded, and read far more often than
// written, so a read-through cache in front of S3 cuts most round trips.
type CachingBlobStore struct {
	inner storage.BlobStore
	cache *expirable.LRU[string, cachedBlob]
}

// NewCachingBlobStore builds the cache with the configured size and TTL.
func NewCachingBlobStore(inner storage.BlobStore, cfg storage.Config) *CachingBlobStore {
	return &CachingBlobStore{
		inner: inner,
		cache: expirable.NewLRU[string, cachedBlob](cfg.PosterCacheSize, nil, cfg.PosterCacheTTL),
	}
}

// Put writes through and invalidates any cached copy of the key.
func (c *CachingBlobStore) Put(ctx context.Context, key string, content io.Reader, contentType string) error {
	if err := c.inner.Put(ctx, key, content, contentType); err != nil {
		return err
	}
	c.cache.Remove(key)
	return nil
}

// Get serves from cache when possible, falling back to the inner store.
func (c *CachingBlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if blob, ok := c.cache.Get(key); ok {
		return blob.data, blob.contentType, nil
	}

	data, contentType, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	c.cache.Add(key, cachedBlob{data: data, contentType: contentType})
	return data, contentType, nil
}

// Delete removes the object and its cached copy.
func (c *CachingBlobStore) Delete(ctx context.Context, key string) error {
	if err := c.inner.Delete(ctx, key); err != nil {
		return err
	}
	c.cache.Remove(key)
	return nil
}
