package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const geminiName = "gemini"

type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiReq struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// geminiContents folds system messages into systemInstruction and maps the
// assistant role to Gemini's "model".
func geminiContents(messages []Message) (*geminiContent, []geminiContent) {
	var system []string
	out := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			out = append(out, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			out = append(out, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, out
	}
	return &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}, out
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", providerErr(geminiName, errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.APIKey) == "" || strings.TrimSpace(p.Model) == "" {
		return "", providerErr(geminiName, errors.New("api key and model are required"))
	}

	system, contents := geminiContents(messages)
	b, err := json.Marshal(geminiReq{SystemInstruction: system, Contents: contents})
	if err != nil {
		return "", providerErr(geminiName, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(p.BaseURL, "/"), url.PathEscape(strings.TrimSpace(p.Model)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", providerErr(geminiName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", providerErr(geminiName, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(geminiName, resp); err != nil {
		return "", err
	}

	var decoded geminiResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", providerErr(geminiName, fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", &ProviderError{Provider: geminiName, Detail: decoded.Error.Message}
	}
	if len(decoded.Candidates) == 0 {
		return "", &ProviderError{Provider: geminiName, Detail: "no candidates in response"}
	}

	var sb strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ProviderError{Provider: geminiName, Detail: "empty response"}
	}
	return text, nil
}
