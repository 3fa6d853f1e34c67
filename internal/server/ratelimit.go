package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter throttles report generation per client. Assembling a bundle
// walks every input row several times, so a single noisy client can starve
// the rest without a cap.
type RateLimiter struct {
	redis     *redis.Client
	logger    *zap.Logger
	perMinute int
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

// NewRateLimiter creates a rate limiter. A nil Redis client or a
// non-positive limit disables enforcement.
func NewRateLimiter(redisClient *redis.Client, perMinute int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		logger:    logger,
		perMinute: perMinute,
	}
}

// Check performs a rate limit check for one client.
func (rl *RateLimiter) Check(r *http.Request, clientID string) *RateLimitResult {
	if rl.redis == nil || rl.perMinute <= 0 {
		return &RateLimitResult{Allowed: true, Limit: rl.perMinute}
	}

	ctx := r.Context()
	redisKey := fmt.Sprintf("reportforge:ratelimit:%s:minute", clientID)

	script := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	current, err := script.Run(ctx, rl.redis, []string{redisKey}, 60000).Int()
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: rl.perMinute}
	}

	remaining := rl.perMinute - current
	if remaining < 0 {
		remaining = 0
	}

	result := &RateLimitResult{
		Allowed:   current <= rl.perMinute,
		Remaining: remaining,
		Limit:     rl.perMinute,
	}
	if !result.Allowed {
		ttl, _ := rl.redis.TTL(ctx, redisKey).Result()
		result.RetryAfter = ttl
	}
	return result
}

// Middleware returns an HTTP middleware enforcing the limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := rl.Check(r, clientIP(r))

		if rl.perMinute > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}

		if !result.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"rate_limit_exceeded","retry_after":%d}`,
				int(result.RetryAfter.Seconds()))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
