package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/ai"
	"github.com/janawaaz/civichub/internal/chat"
	"github.com/janawaaz/civichub/internal/common"
	"go.uber.org/zap"
)

// apiError is the HTTP form of a service error.
type apiError struct {
	status  int
	code    int
	message string
	details string
}

func classify(err error) apiError {
	var pe *ai.ProviderError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return apiError{http.StatusBadRequest, 10002, "message is required", ""}
	case errors.Is(err, chat.ErrMessageTooLong):
		return apiError{http.StatusBadRequest, 10002, err.Error(), ""}
	case errors.Is(err, chat.ErrIdempotencyNeedsOwner):
		return apiError{http.StatusBadRequest, 10003, err.Error(), ""}
	case errors.Is(err, chat.ErrSessionOwned):
		return apiError{http.StatusForbidden, 40301, "session belongs to another user", ""}
	case errors.Is(err, chat.ErrSessionNotFound):
		return apiError{http.StatusNotFound, 40401, "session not found", ""}
	case errors.Is(err, chat.ErrJobNotFound):
		return apiError{http.StatusNotFound, 40402, "job not found", ""}
	case errors.Is(err, chat.ErrAsyncDisabled):
		return apiError{http.StatusServiceUnavailable, 50301, "async chat is not available", ""}
	case errors.Is(err, ai.ErrNoProviderConfigured):
		return apiError{http.StatusInternalServerError, 50010, "no AI provider is configured", ""}
	case errors.As(err, &pe):
		return apiError{http.StatusBadGateway, 50201, "AI provider request failed", pe.Error()}
	default:
		return apiError{http.StatusInternalServerError, 50001, "internal error", ""}
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		h.reqLog(c).Error("request failed", zap.String("path", c.FullPath()), zap.Int("code", e.code), zap.Error(err))
	}
	_ = c.Error(err)
	common.FailWithDetails(c, e.status, e.code, e.message, e.details)
}
