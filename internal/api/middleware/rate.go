package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL evicts limiters of clients not seen for this long
	IdleTTL time.Duration
	Now     func() time.Time
}

// DefaultRateLimitConfig returns the sandbox defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		Burst:             100,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimit creates a per-client token bucket middleware. Clients are told
// apart by API key when one is sent, otherwise by IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = cfg.Now()
	)

	return func(c *gin.Context) {
		key := clientKey(c)
		now := cfg.Now()

		mu.Lock()
		if now.Sub(lastSweep) > cfg.IdleTTL {
			for k, cl := range clients {
				if now.Sub(cl.lastSeen) > cfg.IdleTTL {
					delete(clients, k)
				}
			}
			lastSweep = now
		}
		cl, exists := clients[key]
		if !exists {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			clients[key] = cl
		}
		cl.lastSeen = now
		allowed := cl.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			tooMany(c, cfg.RequestsPerSecond)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a single bucket shared by every client.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooMany(c, cfg.RequestsPerSecond)
			return
		}
		c.Next()
	}
}

func tooMany(c *gin.Context, rps int) {
	wait := 1
	if rps > 0 {
		wait = int(math.Ceil(1 / float64(rps)))
	}
	c.Header("Retry-After", strconv.Itoa(wait))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
	})
}

func clientKey(c *gin.Context) string {
	if token := bearerToken(c.GetHeader("Authorization")); token != "" {
		return "key:" + token
	}
	return "ip:" + c.ClientIP()
}
