package grid

import "sync"

type cacheKey struct {
	width          float64
	cols, num, den int
}

// Cache memoizes transforms per (cols, aspect, width). Containers are
// resized often during window drags, so old widths are evicted once the
// cache holds more than its limit.
type Cache struct {
	mu    sync.Mutex
	limit int
	items map[cacheKey]Transform
	order []cacheKey
}

// NewCache returns a cache holding at most limit transforms.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = 256
	}
	return &Cache{limit: limit, items: make(map[cacheKey]Transform)}
}

// Get returns the memoized transform, computing it on first use. Errors
// are not cached.
func (c *Cache) Get(containerWidthPx float64, cols, aspectNum, aspectDen int) (Transform, error) {
	k := cacheKey{width: containerWidthPx, cols: cols, num: aspectNum, den: aspectDen}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.items[k]; ok {
		return t, nil
	}
	t, err := New(containerWidthPx, cols, aspectNum, aspectDen)
	if err != nil {
		return t, err
	}
	if len(c.order) >= c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
	c.items[k] = t
	c.order = append(c.order, k)
	return t, nil
}

// Len reports how many transforms are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
