package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// CachedUserDirectory memoises GetByID lookups in a bounded, expiring LRU.
// Batch changes made through Upsert become visible after ttl at the latest,
// or immediately when the caller invokes Invalidate.  Lookup errors are not
// cached.
type CachedUserDirectory struct {
	next  UserDirectory
	cache *expirable.LRU[uint64, model.User]
}

func NewCachedUserDirectory(next UserDirectory, size int, ttl time.Duration) *CachedUserDirectory {
	if size <= 0 {
		size = 1024
	}
	return &CachedUserDirectory{
		next:  next,
		cache: expirable.NewLRU[uint64, model.User](size, nil, ttl),
	}
}

func (c *CachedUserDirectory) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if u, ok := c.cache.Get(id); ok {
		return u, nil
	}
	u, err := c.next.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	c.cache.Add(id, u)
	return u, nil
}

// Invalidate drops id from the cache.
func (c *CachedUserDirectory) Invalidate(id uint64) { c.cache.Remove(id) }
