package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"floorview/pkg/config"
	apperrors "floorview/pkg/errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client may stay quiet before its bucket is
// dropped. A dropped client starts again with a full burst.
const limiterIdleTTL = 5 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per client address. Idle buckets are
// swept lazily from allow, at most once per limiterIdleTTL.
type clientLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

func (l *clientLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// clientKey prefers the first X-Forwarded-For hop and falls back to the
// remote host.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// NewHTTPRateLimitMiddleware limits the linesim REST surface per client and,
// when max_concurrent is set, caps requests in flight. It is a pass-through
// when simulator.rate_limiting is disabled.
func NewHTTPRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	rl := cfg.Simulator.RateLimiting
	if !rl.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newClientLimiters(rate.Limit(rl.HTTP.RequestsPerSecond), rl.HTTP.Burst)

	var inFlight chan struct{}
	if rl.HTTP.MaxConcurrent > 0 {
		inFlight = make(chan struct{}, rl.HTTP.MaxConcurrent)
	}

	return func(c *gin.Context) {
		if !limiters.allow(clientKey(c.Request)) {
			c.Header("Retry-After", "1")
			writeError(c, apperrors.NewRateLimitError())
			return
		}

		if inFlight != nil {
			select {
			case inFlight <- struct{}{}:
				defer func() { <-inFlight }()
			default:
				writeError(c, apperrors.NewServiceUnavailableError("too many concurrent requests"))
				return
			}
		}
		c.Next()
	}
}
