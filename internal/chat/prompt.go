package chat

import "github.com/janawaaz/civichub/internal/ai"

// BuildPrompt returns [system, ...history, user]. Only the last window turns
// of history are used, in their original order. The inputs are not modified.
func BuildPrompt(system string, history []Turn, window int, userMsg string) []ai.Message {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	out := make([]ai.Message, 0, len(history)+2)
	out = append(out, ai.Message{Role: ai.RoleSystem, Content: system})
	for _, t := range history {
		role := ai.RoleUser
		if t.Role == RoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: t.Content})
	}
	out = append(out, ai.Message{Role: ai.RoleUser, Content: userMsg})
	return out
}
