package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	apperrors "ledgerbook/internal/errors"
)

// idleLimiterTTL is how long a client's bucket is kept after its last request.
const idleLimiterTTL = 10 * time.Minute

// RateLimit returns a Gin middleware that applies a token bucket per client
// IP. Requests over the limit are rejected with RATE_LIMITED. A non-positive
// rps disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}

	buckets := cache.New(idleLimiterTTL, 2*idleLimiterTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter
		if v, ok := buckets.Get(ip); ok {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			// Another request may have stored a bucket first.
			if err := buckets.Add(ip, limiter, cache.DefaultExpiration); err != nil {
				if v, ok := buckets.Get(ip); ok {
					limiter = v.(*rate.Limiter)
				}
			}
		}
		buckets.SetDefault(ip, limiter)

		if !limiter.Allow() {
			err := apperrors.ErrRateLimited
			c.AbortWithStatusJSON(err.StatusCode, gin.H{
				"error": gin.H{"code": err.Code, "message": err.Message},
			})
			return
		}
		c.Next()
	}
}
