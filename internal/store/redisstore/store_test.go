package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Nothing listens on port 1, so every call fails fast. A broken cache must
// behave like a miss and never panic.
func TestTranslationCache_UnreachableIsMiss(t *testing.T) {
	s := New("127.0.0.1:1", "", 0, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	assert.Error(t, s.Ping(ctx))

	c := s.TranslationCache(0)
	assert.Equal(t, 24*time.Hour, c.ttl)

	c.Set(ctx, "translate:en:hi:abc", "नमस्ते")
	v, ok := c.Get(ctx, "translate:en:hi:abc")
	assert.False(t, ok)
	assert.Empty(t, v)
}
