package raster

import (
	"context"
	"fmt"
	"sync"
)

// DefaultWorkers bounds concurrent fetches during Prefetch
const DefaultWorkers = 4

// Cache memoises rasterized bitmaps for one generation run. Failures are
// cached too, so an unreachable image is fetched once.
type Cache struct {
	rasterizer *Rasterizer
	mu         sync.Mutex
	entries    map[Request]*cacheEntry
}

type cacheEntry struct {
	once   sync.Once
	bitmap *Bitmap
	err    error
}

// NewCache creates an empty cache over r
func NewCache(r *Rasterizer) *Cache {
	return &Cache{
		rasterizer: r,
		entries:    make(map[Request]*cacheEntry),
	}
}

// Get returns the bitmap for req, rasterizing it on first use
func (c *Cache) Get(ctx context.Context, req Request) (*Bitmap, error) {
	c.mu.Lock()
	entry, ok := c.entries[req]
	if !ok {
		entry = &cacheEntry{}
		c.entries[req] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				entry.bitmap, entry.err = nil, fmt.Errorf("image source panic: %v", p)
			}
		}()
		entry.bitmap, entry.err = c.rasterizer.Rasterize(ctx, req)
	})
	return entry.bitmap, entry.err
}

// Prefetch rasterizes reqs concurrently with at most workers in flight and
// waits for all of them. Errors stay in the cache for Get to report.
func (c *Cache) Prefetch(ctx context.Context, reqs []Request, workers int) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(req Request) {
			defer wg.Done()
			defer func() { <-sem }()
			c.Get(ctx, req)
		}(req)
	}
	wg.Wait()
}

// Len returns the number of cached requests
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
