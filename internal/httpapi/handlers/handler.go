package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/chat"
	"github.com/janawaaz/civichub/internal/common"
	"github.com/janawaaz/civichub/internal/httpapi/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	ChatSvc *chat.Service
	Log     *zap.Logger
}

func NewHandler(svc *chat.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{ChatSvc: svc, Log: log}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

// userIDFromContext returns the verified caller, or "" for anonymous.
func userIDFromContext(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func (h *Handler) reqLog(c *gin.Context) *zap.Logger {
	return h.Log.With(zap.String("request_id", c.GetString(middleware.RequestIDKey)))
}
