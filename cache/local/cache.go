package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// item is one key: a string value or a list, with an optional expiry.
type item struct {
	str      string
	list     []string
	isList   bool
	expireAt time.Time // zero = no expiry
}

func (it *item) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// LocalCache is an in-process Cache used when no Redis is configured.
type LocalCache struct {
	mu         sync.Mutex
	items      map[string]*item
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		items:      make(map[string]*item),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() {
	c.closeOnce.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, it := range c.items {
				if it.expired(now) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

// live returns the unexpired item under key. Caller holds mu.
func (c *LocalCache) live(key string) *item {
	it, ok := c.items[key]
	if !ok {
		return nil
	}
	if it.expired(time.Now()) {
		delete(c.items, key)
		return nil
	}
	return it
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil || it.isList {
		return "", ErrNotFound
	}
	return it.str, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{str: value, expireAt: expiry(ttl)}
	return nil
}

// Expire sets a new ttl on key, which may hold a value or a list.
func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil {
		return ErrNotFound
	}
	it.expireAt = expiry(ttl)
	return nil
}

// ---- List ----

// LPush prepends values in order, so the last value ends up at index 0.
func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil || !it.isList {
		it = &item{isList: true}
		c.items[key] = it
	}
	head := make([]string, 0, len(values)+len(it.list))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	it.list = append(head, it.list...)
	return nil
}

// bounds resolves Redis-style start/stop indexes against n.
func bounds(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start = max(0, n+start)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start >= n || start > stop {
		return 0, 0, false
	}
	return start, stop, true
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil || !it.isList {
		return nil, nil
	}
	lo, hi, ok := bounds(start, stop, int64(len(it.list)))
	if !ok {
		return nil, nil
	}
	return append([]string(nil), it.list[lo:hi+1]...), nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.live(key)
	if it == nil || !it.isList {
		return nil
	}
	lo, hi, ok := bounds(start, stop, int64(len(it.list)))
	if !ok {
		delete(c.items, key)
		return nil
	}
	it.list = append([]string(nil), it.list[lo:hi+1]...)
	return nil
}
