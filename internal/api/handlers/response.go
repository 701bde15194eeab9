// Package handlers holds helpers shared by the HTTP handlers.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"meal-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestID returns the request id set by the requestid middleware, falling
// back to the inbound header.
func RequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Debug reports whether error details may be exposed.
func Debug(c *gin.Context) bool {
	return c.GetBool("debug")
}

// RespondError maps err onto the error taxonomy and writes it.
func RespondError(c *gin.Context, err error) {
	status, body := classify(err)
	if Debug(c) {
		body.Details = err.Error()
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", body.Code),
		zap.Int("status", status),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", RequestID(c)),
	}
	if status >= http.StatusInternalServerError {
		common.LogError("request failed", fields...)
	} else {
		common.LogWarn("request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, common.ErrorResponse) {
	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		return ce.Status, common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	case common.IsValidationError(err):
		return http.StatusBadRequest, common.ErrorResponse{Code: common.ErrCodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, common.ErrorResponse{Code: common.ErrCodeGatewayTimeout, Message: common.ErrGatewayTimeout.Message}
	default:
		return http.StatusInternalServerError, common.ErrorResponse{Code: common.ErrCodeInternalError, Message: common.ErrInternalError.Message}
	}
}

// BindJSON binds the body or responds with 400.
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		RespondError(c, common.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// ParseID reads a positive numeric path parameter or responds with 400.
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, common.NewValidationError("invalid "+name))
		return 0, false
	}
	return uint(id), true
}
