// Package ratelimit throttles password-guessing endpoints per client IP.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

// Limiter keeps one token bucket per key and forgets idle keys after ttl.
type Limiter struct {
	mu   sync.Mutex
	m    map[string]*keyLimiter
	r    rate.Limit
	b    int
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

// New creates a limiter allowing perMinute events per key with the given burst.
func New(perMinute, burst int, ttl time.Duration) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		m:    make(map[string]*keyLimiter),
		r:    rate.Limit(float64(perMinute) / 60),
		b:    burst,
		ttl:  ttl,
		stop: make(chan struct{}),
	}
}

// Allow reports whether one more event for key is permitted now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.m[key]
	if ok {
		kl.ts = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.m[key] = &keyLimiter{lim: lim, ts: time.Now()}
	return lim
}

// Run evicts idle keys until Stop is called. Call it with 'go'.
func (l *Limiter) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict(time.Now())
		}
	}
}

func (l *Limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.m {
		if now.Sub(v.ts) > l.ttl {
			delete(l.m, k)
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Middleware rejects requests over the limit with 429, keyed by client IP
// and request path.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r.RemoteAddr)
		if !l.Allow(ip + "|" + r.URL.Path) {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port. RemoteAddr is the socket peer unless the router
// was configured to trust proxy headers.
func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
