package chat

import (
	"fmt"
	"testing"

	"github.com/janawaaz/civichub/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_Shape(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
	}
	got := BuildPrompt("sys", history, 10, "q2")

	assert.Equal(t, []ai.Message{
		{Role: ai.RoleSystem, Content: "sys"},
		{Role: ai.RoleUser, Content: "q1"},
		{Role: ai.RoleAssistant, Content: "a1"},
		{Role: ai.RoleUser, Content: "q2"},
	}, got)
}

func TestBuildPrompt_KeepsTenMostRecent(t *testing.T) {
	var history []Turn
	for i := 0; i < 15; i++ {
		history = append(history, Turn{Role: RoleUser, Content: fmt.Sprintf("t%d", i)})
	}
	orig := append([]Turn(nil), history...)

	got := BuildPrompt("sys", history, DefaultHistoryWindow, "new")
	require.Len(t, got, 12)

	segment := got[1 : len(got)-1]
	require.Len(t, segment, 10)
	for i, m := range segment {
		assert.Equal(t, fmt.Sprintf("t%d", i+5), m.Content)
	}
	assert.Equal(t, orig, history, "history must not be mutated")
}

func TestBuildPrompt_EmptyHistory(t *testing.T) {
	got := BuildPrompt("sys", nil, 10, "hello")
	assert.Len(t, got, 2)
	assert.Equal(t, ai.RoleSystem, got[0].Role)
	assert.Equal(t, "hello", got[1].Content)
}
