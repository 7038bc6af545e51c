package middleware

import (
	"net/http"

	"food-wallet-service/pkg/apperror"
	"food-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps the request body at maxBytes. A declared Content-Length
// over the cap is rejected up front; chunked bodies fail on read instead.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.AbortError(c, apperror.ErrPayloadTooLarge())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
