package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "campus-feedback/internal/transport/http/response"
)

// MaxBodyBytes 限制请求体大小。
// 声明的 Content-Length 超限直接返回 413；未声明长度时由 MaxBytesReader 截断，绑定失败返回 400。
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			httpRejected.WithLabelValues("body").Inc()
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooLarge, "request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
