package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimit returns middleware that enforces a per-user per-minute
// request limit backed by redis. A redis outage fails open: the
// request proceeds and the error is logged.
func RateLimit(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			userID = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", userID, time.Now().Format("200601021504"))

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			slog.Error("rate limit check failed", "error", err, "user_id", userID)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, time.Minute)
		}

		if count > int64(perMinute) {
			slog.Debug("rate limited", "user_id", userID, "count", count, "limit", perMinute)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait a moment."})
			return
		}

		c.Next()
	}
}
