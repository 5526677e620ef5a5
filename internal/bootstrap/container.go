package bootstrap

import (
	"context"
	"time"

	"github.com/janawaaz/civichub/internal/ai"
	"github.com/janawaaz/civichub/internal/chat"
	"github.com/janawaaz/civichub/internal/config"
	"github.com/janawaaz/civichub/internal/db"
	"github.com/janawaaz/civichub/internal/store/redisstore"
	"github.com/janawaaz/civichub/internal/translate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const translationTTL = 24 * time.Hour

// Container holds what both the HTTP server and the worker need.
type Container struct {
	DB      *gorm.DB
	ChatSvc *chat.Service

	closers []func() error
}

func AIConfig(cfg config.Config) ai.Config {
	return ai.Config{
		OpenRouterBaseURL: cfg.OpenRouterBaseURL,
		OpenRouterAPIKey:  cfg.OpenRouterAPIKey,
		OpenRouterModel:   cfg.OpenRouterModel,
		OpenRouterSiteURL: cfg.OpenRouterSiteURL,
		OpenRouterAppName: cfg.OpenRouterAppName,

		GeminiBaseURL: cfg.GeminiBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,

		HuggingFaceBaseURL: cfg.HuggingFaceBaseURL,
		HuggingFaceToken:   cfg.HuggingFaceToken,
		HuggingFaceModel:   cfg.HuggingFaceModel,
	}
}

// translationCache prefers Redis and falls back to an in-process cache when
// Redis is not configured or not reachable at startup.
func translationCache(ctx context.Context, cfg config.Config, log *zap.Logger) (translate.Cache, func() error) {
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rds.Ping(pctx)
		if err == nil {
			log.Info("translation cache: redis", zap.String("addr", cfg.RedisAddr))
			return rds.TranslationCache(translationTTL), rds.Close
		}
		log.Warn("redis unreachable, using in-memory translation cache", zap.Error(err))
		_ = rds.Close()
	}
	return translate.NewMemoryCache(translationTTL), nil
}

// NewContainer connects storage and builds the chat service.
func NewContainer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Container, error) {
	gdb, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb, chat.Models()...); err != nil {
		return nil, err
	}

	c := &Container{DB: gdb}
	if sqlDB, err := gdb.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}

	cache, closeCache := translationCache(ctx, cfg, log)
	if closeCache != nil {
		c.closers = append(c.closers, closeCache)
	}

	selector := ai.NewSelector(AIConfig(cfg))
	if d, err := selector.Select(); err != nil {
		log.Warn("no AI provider configured; chat requests will fail", zap.Strings("providers", selector.Names()))
	} else {
		log.Info("AI provider selected", zap.String("provider", d.Name))
	}

	translator := translate.New(cfg.TranslateURL, cfg.TranslateAPIKey, cache, log.Named("translate"))
	c.ChatSvc = chat.NewService(chat.NewRepo(gdb), selector, translator, log.Named("chat"), cfg.SystemPrompt, cfg.ChatHistoryWindow)
	return c, nil
}

// OnClose registers f to run on Close, before the storage closers.
func (c *Container) OnClose(f func() error) {
	c.closers = append([]func() error{f}, c.closers...)
}

func (c *Container) Close() {
	for _, f := range c.closers {
		_ = f()
	}
}
