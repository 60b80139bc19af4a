package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/vendor-invoice/internal/interfaces/http/dto"
)

// BodyLimit rejects requests whose body exceeds maxBytes. The creation
// endpoint accepts multipart uploads, so the limit is sized to the attachment
// batch ceiling plus form overhead.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("ATTACHMENTS_TOO_LARGE", "Request body exceeds the allowed size"))
			return
		}
		// ContentLength can be -1 for chunked bodies; MaxBytesReader still
		// enforces the cap while the handler reads.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
