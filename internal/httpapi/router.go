package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/chat"
	"github.com/janawaaz/civichub/internal/common"
	"github.com/janawaaz/civichub/internal/httpapi/handlers"
	"github.com/janawaaz/civichub/internal/httpapi/middleware"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

func NewRouter(svc *chat.Service, opts Options, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(svc, log)

	r.GET("/ping", h.Ping)

	// Chat (JWT optional)
	g := r.Group("/chat")
	g.Use(middleware.OptionalAuth(opts.JWTSecret))
	g.POST("", h.SendChatMessage)
	g.POST("/stream", h.SendChatMessageStream)
	g.GET("/history/:sessionId", h.GetChatHistory)
	g.DELETE("/history/:sessionId", h.ClearChatHistory)
	g.POST("/async", h.SendChatMessageAsync)
	g.GET("/jobs/:jobId", h.GetChatJob)
	g.GET("/provider", h.GetProvider)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
