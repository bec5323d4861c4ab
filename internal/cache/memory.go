package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/shopcore/internal/domain"
)

// CleanupInterval is how often expired entries are dropped.
const CleanupInterval = time.Minute

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e memoryEntry[T]) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryCache is a process-local CatalogCache with a fixed TTL.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.RWMutex
	products   map[string]memoryEntry[[]domain.Product]
	categories *memoryEntry[[]string]

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttl:         ttl,
		now:         time.Now,
		products:    make(map[string]memoryEntry[[]domain.Product]),
		stopCleanup: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.expire()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.products {
		if e.expired(now) {
			delete(c.products, k)
		}
	}
	if c.categories != nil && c.categories.expired(now) {
		c.categories = nil
	}
}

func (c *MemoryCache) GetProducts(_ context.Context, category string) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.products[category]
	if !ok || e.expired(c.now()) {
		return nil, ErrCacheMiss
	}
	return slices.Clone(e.value), nil
}

func (c *MemoryCache) SetProducts(_ context.Context, category string, products []domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[category] = memoryEntry[[]domain.Product]{
		value:     slices.Clone(products),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCache) DeleteProducts(_ context.Context, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, category)
	return nil
}

func (c *MemoryCache) GetCategories(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.categories == nil || c.categories.expired(c.now()) {
		return nil, ErrCacheMiss
	}
	return slices.Clone(c.categories.value), nil
}

func (c *MemoryCache) SetCategories(_ context.Context, categories []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = &memoryEntry[[]string]{
		value:     slices.Clone(categories),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Close stops the background cleanup and waits for it to finish.
func (c *MemoryCache) Close() error {
	close(c.stopCleanup)
	c.wg.Wait()
	return nil
}
