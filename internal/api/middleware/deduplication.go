package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"meal-planner/internal/infrastructure/cache"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplication rejects an identical POST or PUT (same path and body) seen
// within window.
func Deduplication(store cache.FingerprintStore, window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = time.Second
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
					Code:    common.ErrCodeInvalidRequest,
					Message: "request body could not be read",
				})
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(sum[:])
		}

		seen, err := store.Seen(c.Request.Context(), fingerprint, window)
		if err != nil {
			// fingerprint store down: let the request through
			common.LogWarn("deduplication unavailable", zap.Error(err))
			c.Next()
			return
		}
		if seen {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "duplicate request",
			})
			return
		}

		c.Next()
	}
}
