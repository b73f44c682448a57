// Package ratelimit caps how many requests one client may send per window.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Config sets the budget. Zero values fall back to 60 requests per minute,
// with idle clients forgotten after ten minutes.
type Config struct {
	RequestsPerMinute int
	Window            time.Duration
	IdleAfter         time.Duration
	SweepEvery        time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = 60
	}
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = 10 * time.Minute
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 5 * time.Minute
	}
	return c
}

type window struct {
	start time.Time
	seen  time.Time
	used  int
}

// Limiter gives each client key a fixed window of Window length holding at
// most RequestsPerMinute requests. A refused request does not move the
// window.
type Limiter struct {
	cfg      Config
	now      func() time.Time
	rejected atomic.Int64

	mu      sync.Mutex
	windows map[string]*window

	quit     chan struct{}
	quitOnce sync.Once
}

// NewLimiter starts a goroutine that forgets idle clients; Stop ends it.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
		quit:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow spends one request from key's budget.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.take(key)
	return ok
}

// take also reports how long until key's window resets.
func (l *Limiter) take(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.seen = now
	if w.used >= l.cfg.RequestsPerMinute {
		l.rejected.Add(1)
		return false, w.start.Add(l.cfg.Window).Sub(now)
	}
	w.used++
	return true, 0
}

func (l *Limiter) sweepLoop() {
	t := time.NewTicker(l.cfg.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

// sweep forgets clients idle longer than IdleAfter and returns how many.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleAfter)
	n := 0
	for key, w := range l.windows {
		if w.seen.Before(cutoff) {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

// Tracked is the number of clients with a live window.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Rejected is the number of refused requests so far.
func (l *Limiter) Rejected() int64 { return l.rejected.Load() }

// Stop may be called more than once.
func (l *Limiter) Stop() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// Middleware limits the requests whose method is listed, or all requests
// when methods is empty. Refusals carry Retry-After in whole seconds and
// are written by onLimit, or as a plain 429 when onLimit is nil.
func (l *Limiter) Middleware(key func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limits(methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.take(key(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}

func limits(methods []string, method string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}
