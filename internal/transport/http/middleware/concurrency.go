package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "campus-feedback/internal/transport/http/response"
)

// ConcurrencyLimit 限制同时在处理的请求数。
// 排队等待受请求 context 约束，取消后返回 server busy。
func ConcurrencyLimit(limit int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(limit)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			httpRejected.WithLabelValues("busy").Inc()
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, "server busy"))
			return
		}
		httpInFlight.Inc()
		defer func() {
			httpInFlight.Dec()
			sem.Release(1)
		}()
		c.Next()
	}
}
