package httpmw

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPLimiter is an in-memory token bucket per client IP. Each instance limits
// independently; put a shared limiter at the load balancer for a global cap.
type IPLimiter struct {
	rate  rate.Limit
	burst int
	ttl   time.Duration

	mu        sync.Mutex
	clients   map[string]*ipClient
	lastSweep time.Time
	now       func() time.Time
}

type ipClient struct {
	lim  *rate.Limiter
	last time.Time
}

func NewIPLimiter(r rate.Limit, burst int, ttl time.Duration) *IPLimiter {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &IPLimiter{
		rate:    r,
		burst:   burst,
		ttl:     ttl,
		clients: make(map[string]*ipClient),
		now:     time.Now,
	}
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// Sweep idle clients at most once per ttl.
	if now.Sub(l.lastSweep) > l.ttl {
		for k, c := range l.clients {
			if now.Sub(c.last) > l.ttl {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &ipClient{lim: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = c
	}
	c.last = now
	return c.lim
}

func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}
		if !l.get(ip).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			writeError(w, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfter is the whole seconds until one token refills.
func (l *IPLimiter) retryAfter() int {
	if l.rate <= 0 || l.rate == rate.Inf {
		return 1
	}
	s := int(1/float64(l.rate) + 0.999)
	if s < 1 {
		s = 1
	}
	return s
}

// WithRateLimit adapts l into a Middleware. A nil limiter disables limiting.
func WithRateLimit(l *IPLimiter) Middleware {
	if l == nil {
		return nil
	}
	return l.Middleware
}

// clientIP uses the socket peer only. Forwarded headers are spoofable unless a
// trusted proxy rewrites them, so they are ignored here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}
	return ""
}
