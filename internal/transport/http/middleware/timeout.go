package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	resp "campus-feedback/internal/transport/http/response"
)

// Timeout 给请求 context 设置截止时间，下游（gorm / redis / 账本）据此取消。
// 处理器已写响应时不再覆盖，例如 flush 中途超时仍返回其自身的错误。
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		httpRejected.WithLabelValues("timeout").Inc()
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTimeout, "request timeout"))
		}
	}
}
