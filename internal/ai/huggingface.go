package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const huggingFaceName = "huggingface"

// DefaultHuggingFaceModel is used when only a token is configured.
const DefaultHuggingFaceModel = "meta-llama/Llama-3.1-8B-Instruct"

// HuggingFaceProvider talks to the OpenAI-compatible HuggingFace router.
type HuggingFaceProvider struct {
	BaseURL   string
	Token     string
	Model     string
	MaxTokens int
	Client    *http.Client
}

type huggingFaceReq struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type huggingFaceResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHuggingFaceProvider(baseURL, token, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/v1"
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultHuggingFaceModel
	}
	return &HuggingFaceProvider{
		BaseURL:   baseURL,
		Token:     token,
		Model:     model,
		MaxTokens: 500,
		Client:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *HuggingFaceProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", providerErr(huggingFaceName, errors.New("http client is nil"))
	}
	if strings.TrimSpace(p.Token) == "" {
		return "", providerErr(huggingFaceName, errors.New("token is required"))
	}

	b, err := json.Marshal(huggingFaceReq{Model: p.Model, Messages: messages, MaxTokens: p.MaxTokens})
	if err != nil {
		return "", providerErr(huggingFaceName, err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", providerErr(huggingFaceName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", providerErr(huggingFaceName, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(huggingFaceName, resp); err != nil {
		return "", err
	}

	var decoded huggingFaceResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", providerErr(huggingFaceName, fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", &ProviderError{Provider: huggingFaceName, Detail: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", &ProviderError{Provider: huggingFaceName, Detail: "empty response"}
	}
	return decoded.Choices[0].Message.Content, nil
}
