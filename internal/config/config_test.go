package config

import (
	"testing"

	"github.com/janawaaz/civichub/internal/ai"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DSN", "OPENROUTER_MODEL", "CHAT_HISTORY_WINDOW", "WORKER_CONCURRENCY", "CORS_ORIGINS", "HF_MODEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "sqlite:civichub.db", cfg.DBDSN)
	assert.Equal(t, "openrouter/auto", cfg.OpenRouterModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, ai.DefaultHuggingFaceModel, cfg.HuggingFaceModel)
	assert.Equal(t, 10, cfg.ChatHistoryWindow)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CHAT_HISTORY_WINDOW", "abc")
	t.Setenv("APP_ENV", "Production")

	cfg := Load()
	assert.Equal(t, "sk-test", cfg.OpenRouterAPIKey)
	assert.Equal(t, 50, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.ChatHistoryWindow)
	assert.True(t, cfg.IsProd)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, clamp(0, 1, 50))
	assert.Equal(t, 7, clamp(7, 1, 50))
	assert.Equal(t, 50, clamp(99, 1, 50))
}
