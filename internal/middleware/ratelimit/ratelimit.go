// Package ratelimit limits requests per client in fixed one minute windows.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"pocketmoney/internal/log"
)

type Config struct {
	RequestsPerMinute int
	// IdleAfter is how long a client is kept after its last request.
	IdleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleAfter:         10 * time.Minute,
	}
}

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	idle    time.Duration
	now     func() time.Time
	hits    atomic.Int64
}

type window struct {
	start    time.Time
	last     time.Time
	requests int
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.IdleAfter <= 0 {
		config.IdleAfter = def.IdleAfter
	}
	return &Limiter{
		clients: make(map[string]*window),
		limit:   config.RequestsPerMinute,
		idle:    config.IdleAfter,
		now:     time.Now,
	}
}

// Allow counts a request from clientIP and reports whether it is within the
// limit for the current window.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[clientIP]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.clients[clientIP] = &window{start: now, last: now, requests: 1}
		return true
	}
	w.requests++
	w.last = now
	if w.requests > l.limit {
		l.hits.Add(1)
		return false
	}
	return true
}

// Sweep drops clients idle for longer than IdleAfter. It satisfies
// cache.Sweeper so a janitor can drive it.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	n := 0
	for ip, w := range l.clients {
		if w.last.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Hits is the number of rejected requests so far.
func (l *Limiter) Hits() int64 { return l.hits.Load() }

// Middleware rejects requests over the limit with 429. Only methods that
// change state are counted.
func (l *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			ip := extractIP(r)
			if !l.Allow(ip) {
				log.FromContext(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
					log.FieldClientIP, ip, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(60))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
