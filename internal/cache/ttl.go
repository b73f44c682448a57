package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is a size bounded LRU whose entries also expire ttl after they
// were set. Expired entries are dropped by the library in the background.
type TTLCache[T any] struct {
	lru       *expirable.LRU[string, T]
	evictions atomic.Int64
}

// NewTTLCache holds at most size entries. A ttl of zero keeps entries
// until they are pushed out.
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	if size <= 0 {
		size = 1
	}
	c := &TTLCache[T]{}
	c.lru = expirable.NewLRU[string, T](size, func(string, T) { c.evictions.Add(1) }, ttl)
	return c
}

func (c *TTLCache[T]) Get(key string) (T, bool) { return c.lru.Get(key) }

func (c *TTLCache[T]) Set(key string, data T) { c.lru.Add(key, data) }

func (c *TTLCache[T]) Delete(key string) { c.lru.Remove(key) }

// Purge drops every entry.
func (c *TTLCache[T]) Purge() { c.lru.Purge() }

// Size counts stored entries, including expired ones not yet collected.
func (c *TTLCache[T]) Size() int { return c.lru.Len() }

// Evictions counts entries that left the cache, for whatever reason.
func (c *TTLCache[T]) Evictions() int64 { return c.evictions.Load() }
