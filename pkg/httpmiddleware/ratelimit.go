// Package httpmiddleware holds HTTP middleware that is not tied to any
// domain package.
package httpmiddleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request. Defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
}

type window struct {
	start time.Time
	count int
}

// RateLimit returns a middleware rejecting clients that exceed cfg.Max
// requests per cfg.Window with 429. Counters for windows older than two
// window lengths are dropped opportunistically on each request, so the map
// does not grow without bound.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*window)
		swept   time.Time
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			key := cfg.KeyFunc(r)

			mu.Lock()
			if now.Sub(swept) > cfg.Window {
				for k, c := range clients {
					if now.Sub(c.start) > 2*cfg.Window {
						delete(clients, k)
					}
				}
				swept = now
			}

			c, ok := clients[key]
			if !ok || now.Sub(c.start) >= cfg.Window {
				c = &window{start: now}
				clients[key] = c
			}
			c.count++
			count := c.count
			resetAt := c.start.Add(cfg.Window)
			mu.Unlock()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			if count > cfg.Max {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(cfg.Max-count))
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
