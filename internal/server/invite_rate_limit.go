package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uniteorg/unite/internal/observability/logger"
	"go.uber.org/zap"
)

// InviteResolveRateLimit throttles anonymous invite token lookups so
// tokens cannot be probed by brute force.
func (s *Server) InviteResolveRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.inviteLimiter == nil || !s.inviteLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.inviteLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("invite resolve rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		if !result.Allowed {
			logger.FromContext(ctx).Warn("invite resolve rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
			)
			retryAfter := int(result.RetryAfter / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
