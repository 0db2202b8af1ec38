package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shoplane/payments/internal/ratelimit"
)

// rateLimit throttles inbound webhook traffic per caller. It fails open: a
// missing limiter or a redis error must never drop a signed webhook.
func rateLimit(limiter *ratelimit.TokenBucket, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), "ratelimit:webhook:"+keyFn(c))
		if err != nil {
			c.Next()
			return
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}

func partnerKey(c *gin.Context) string {
	return "partner:" + c.Param("id")
}

func gatewayKey(c *gin.Context) string {
	return "gateway:" + c.ClientIP()
}
