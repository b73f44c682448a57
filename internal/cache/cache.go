// Package cache holds the in-process caches used for dashboard reads.
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
)

// Cache is the interface shared by the caches in this package.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Loader wraps a cache so concurrent misses on one key run a single load.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	// gen is bumped by Invalidate; loads started before it neither
	// repopulate the cache nor serve callers arriving after it.
	mu  sync.Mutex
	gen uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load once for all callers
// waiting on the same key. The bool reports a cache hit.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	v, err, _ := l.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return loaded, err
		}
		l.mu.Lock()
		if gen == l.gen {
			l.cache.Set(key, loaded)
		}
		l.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate empties the cache.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	l.gen++
	l.cache.Purge()
	l.mu.Unlock()
}

// Sized is anything the Reporter can count.
type Sized interface {
	Size() int
}

// Reporter publishes the size of the registered caches as a gauge at a
// fixed interval.
type Reporter struct {
	metrics *metrics.Metrics
	logger  *log.Logger
	caches  map[string]Sized
	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
}

// NewReporter accepts a nil m; sizes are then only logged.
func NewReporter(m *metrics.Metrics, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Reporter{
		metrics: m,
		logger:  logger.WithComponent(log.ComponentCache),
		caches:  make(map[string]Sized),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Register must be called before Start.
func (r *Reporter) Register(name string, c Sized) {
	r.caches[name] = c
}

// Start reports once right away and then every interval until Stop.
func (r *Reporter) Start(interval time.Duration) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.run(interval)
}

func (r *Reporter) run(interval time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.report()
		select {
		case <-ticker.C:
		case <-r.stop:
			return
		}
	}
}

func (r *Reporter) report() {
	for name, c := range r.caches {
		n := c.Size()
		r.metrics.SetCacheEntries(name, n)
		r.logger.Debug("Cache size", "cache", name, "entries", n)
	}
}

// Stop ends reporting. It may be called more than once, and before Start.
func (r *Reporter) Stop() {
	r.once.Do(func() {
		close(r.stop)
		if r.started.Load() {
			<-r.done
		}
	})
}
