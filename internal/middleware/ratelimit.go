// ratelimit.go implements per-client rate limiting with token buckets from
// golang.org/x/time/rate.
//
// How token bucket works:
// - Each client gets a bucket holding up to `burst` tokens
// - Each request consumes 1 token
// - Tokens refill at a steady rate (perMinute tokens per minute)
// - If the bucket is empty, the request is rejected with 429 Too Many Requests
//
// Authenticated requests are keyed by user ID, everything else by client IP.
package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Shimizu-Technology/result-analyser-api/internal/models"
)

// RateLimiter tracks request rates per client.
type RateLimiter struct {
	// Go Pattern: A plain sync.Mutex guards the map; each rate.Limiter is
	// already safe for concurrent use on its own.
	mu      sync.Mutex
	clients map[string]*client

	limit rate.Limit
	burst int
	now   func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per minute with bursts of burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		now:     time.Now,
	}
}

// RateLimit returns Gin middleware that enforces the limit.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(clientKey(c))

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.burst))
		if !limiter.AllowN(rl.now(), 1) {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Rate limit exceeded. Try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%.0f", limiter.TokensAt(rl.now())))
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if user := GetUser(c); user != nil {
		return "user:" + user.ID
	}
	return "ip:" + c.ClientIP()
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = rl.now()
	return cl.limiter
}

// Cleanup drops clients idle for longer than maxIdle until stop is closed.
// Without it the map grows with every IP that ever made a request.
func (rl *RateLimiter) Cleanup(stop <-chan struct{}, every, maxIdle time.Duration) {
	// Go Pattern: time.Ticker sends values at regular intervals.
	// Always defer ticker.Stop() to release resources.
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.sweep(maxIdle)
		}
	}
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > maxIdle {
			delete(rl.clients, key)
		}
	}
}
