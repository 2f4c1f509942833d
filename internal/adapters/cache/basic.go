package cache

import "sync"

type basicEntry[T any] struct {
	data  T
	valid bool
}

// basicCache is an unbounded in-memory cache. Entries never expire, so it is
// only suitable for tests and short-lived processes.
type basicCache[T any] struct {
	entries map[string]basicEntry[T]
	mutex   sync.Mutex
}

func (c *basicCache[T]) getOrClaim(key string) hitResult[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.entries[key] = basicEntry[T]{valid: false}
		return hitResult[T]{claimed: true}
	}

	return hitResult[T]{
		data:  entry.data,
		valid: entry.valid,
	}
}

func (c *basicCache[T]) set(key string, data T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = basicEntry[T]{data: data, valid: true}
}

func (c *basicCache[T]) delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

func (c *basicCache[T]) wait() {
}

func NewBasicCache[T any]() *basicCache[T] {
	return &basicCache[T]{
		entries: make(map[string]basicEntry[T]),
	}
}
