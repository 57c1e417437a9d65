package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v9"
	"github.com/sirupsen/logrus"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a fixed-window limiter held in process memory. Expired
// entries are cleaned up periodically.
type MemoryLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	rate        int           // max attempts per window
	window      time.Duration // time window
	clock       func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type visitor struct {
	count       int
	windowStart time.Time
}

// NewMemoryLimiter allows `rate` requests per `window` per key.
func NewMemoryLimiter(rate int, window time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		visitors:    make(map[string]*visitor),
		rate:        rate,
		window:      window,
		clock:       time.Now,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop terminates the background cleanup goroutine. Call on server shutdown.
func (rl *MemoryLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// Allow checks whether key is within the rate limit and records the attempt.
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock()
	v, exists := rl.visitors[key]

	if !exists || now.Sub(v.windowStart) >= rl.window {
		rl.visitors[key] = &visitor{count: 1, windowStart: now}
		return Decision{Allowed: true}, nil
	}

	v.count++
	if v.count <= rl.rate {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: v.windowStart.Add(rl.window).Sub(now)}, nil
}

// cleanup removes expired visitor entries periodically.
func (rl *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.clock()
			for key, v := range rl.visitors {
				if now.Sub(v.windowStart) > rl.window*2 {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RedisAllower is the part of *redis_rate.Limiter the Redis limiter uses.
type RedisAllower interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RedisLimiter is a GCRA limiter shared by every instance behind the same Redis.
type RedisLimiter struct {
	allower RedisAllower
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisLimiter allows `rate` requests per `window` per key.
func NewRedisLimiter(allower RedisAllower, prefix string, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		allower: allower,
		limit:   redis_rate.Limit{Rate: rate, Burst: rate, Period: window},
		prefix:  prefix,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := rl.allower.Allow(ctx, rl.prefix+":"+key, rl.limit)
	if err != nil {
		return Decision{}, fmt.Errorf("middleware: redis rate limit: %w", err)
	}
	if res.Allowed > 0 {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAfter: res.RetryAfter}, nil
}

// RateLimit rejects requests over the limit with 429 and a Retry-After
// header. Callers are keyed by authenticated user, falling back to client IP.
// If the limiter itself fails the request is let through.
func RateLimit(l Limiter, ips *ClientIP, log logrus.FieldLogger) func(next http.Handler) http.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "user:" + UserIDFromContext(r.Context())
			if key == "user:" {
				key = "ip:" + ips.Extract(r)
			}

			d, err := l.Allow(r.Context(), key)
			if err != nil {
				log.WithError(err).Warn("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again in a moment.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// ClientIP extracts the real client address, trusting forwarding headers
// only from configured proxies.
type ClientIP struct {
	trustedNets []*net.IPNet
}

// NewClientIP takes CIDR strings (e.g., "127.0.0.1/32", "10.0.0.0/8")
// identifying reverse proxies whose X-Forwarded-For headers should be
// trusted. If empty, only RemoteAddr is used.
func NewClientIP(trustedProxies ...string) *ClientIP {
	var nets []*net.IPNet
	for _, cidr := range trustedProxies {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		// Allow bare IPs (e.g., "127.0.0.1") by appending /32 or /128.
		if !strings.Contains(cidr, "/") {
			if strings.Contains(cidr, ":") {
				cidr += "/128"
			} else {
				cidr += "/32"
			}
		}
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // skip malformed entries
		}
		nets = append(nets, n)
	}
	return &ClientIP{trustedNets: nets}
}

func (c *ClientIP) isTrustedProxy(ipStr string) bool {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return false
	}
	for _, n := range c.trustedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Extract returns the client IP for r.
func (c *ClientIP) Extract(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if c == nil || len(c.trustedNets) == 0 || !c.isTrustedProxy(remoteIP) {
		return remoteIP
	}

	// Rightmost X-Forwarded-For entry that is not a trusted proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		for i := len(parts) - 1; i >= 0; i-- {
			candidate := strings.TrimSpace(parts[i])
			if candidate != "" && !c.isTrustedProxy(candidate) {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteIP
}
