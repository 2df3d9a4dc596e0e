package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keijiban/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
//   - 声明的 Content-Length 超限时直接返回 413
//   - 未声明长度（分块传输）时由 MaxBytesReader 截断，绑定阶段返回 *http.MaxBytesError
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
