// Package ratelimit throttles abuse-prone endpoints per client IP. The
// photo proxy and the upload endpoints do disk and outbound network work
// per request, so they get a tighter budget than the JSON API.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Limiter tracks request counts per client over a one-minute window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	stop    chan struct{}
	once    sync.Once

	perMinute       int
	cleanupInterval time.Duration
}

type window struct {
	last  time.Time
	count int
}

// NewLimiter starts a limiter allowing perMinute requests per client.
// Stale client entries are reclaimed in the background until Stop.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	l := &Limiter{
		clients:         make(map[string]*window),
		stop:            make(chan struct{}),
		perMinute:       perMinute,
		cleanupInterval: 5 * time.Minute,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from the client fits its budget.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[clientIP]
	if !ok || now.Sub(w.last) > time.Minute {
		l.clients[clientIP] = &window{last: now, count: 1}
		return true
	}

	w.count++
	w.last = now
	return w.count <= l.perMinute
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the background cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.reclaim()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) reclaim() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range l.clients {
		if w.last.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// ClientIP extracts the caller's address, honoring the first hop of
// X-Forwarded-For when a reverse proxy fronts the service.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects over-budget requests with 429 and a Retry-After.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
