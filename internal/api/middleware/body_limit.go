package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moving-team/backend/pkg/response"
)

// BodyLimit 请求体大小限制
// 声明长度超限直接拒绝；未声明长度的请求读到上限后 ShouldBindJSON 失败，由 Handler 返回 400
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > maxBytes {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				c.Abort()
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
