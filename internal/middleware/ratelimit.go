package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/simp-lee/mailsync/internal/pkg"
)

const defaultRateLimitClients = 4096

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// MaxClients bounds the number of tracked client limiters; the least
	// recently seen client is evicted first.
	MaxClients int
}

// RateLimit throttles requests per client IP. Rejected requests get a 429
// envelope and a Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = defaultRateLimitClients
	}
	limiters, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		panic(err)
	}
	var mu sync.Mutex

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(key); ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		limiters.Add(key, l)
		return l
	}

	return func(c *gin.Context) {
		r := limiterFor(c.ClientIP()).Reserve()
		if !r.OK() {
			pkg.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			pkg.Fail(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
