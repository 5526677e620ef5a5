package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessages = []Message{
	{Role: RoleSystem, Content: "be brief"},
	{Role: RoleUser, Content: "pothole on MG road"},
	{Role: RoleAssistant, Content: "noted"},
	{Role: RoleUser, Content: "how do I report it?"},
}

func TestOpenRouter_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "Jan Awaaz", r.Header.Get("X-Title"))

		var req openRouterChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "openrouter/auto", req.Model)
		assert.Len(t, req.Messages, 4)
		assert.False(t, req.Stream)

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Use the report form."}}]}`)
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "openrouter/auto", "", "Jan Awaaz")
	reply, err := p.Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "Use the report form.", reply)
}

func TestOpenRouter_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "m", "", "")
	_, err := p.Chat(context.Background(), testMessages)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "openrouter", pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Contains(t, pe.Detail, "rate limited")
}

func TestOpenRouter_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	_, err := NewOpenRouterProvider(srv.URL, "key", "m", "", "").Chat(context.Background(), testMessages)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Error(), "decode response")
}

func TestOpenRouter_StreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keep-alive\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	chunks, errs := NewOpenRouterProvider(srv.URL, "key", "m", "", "").StreamChat(context.Background(), testMessages)
	var sb strings.Builder
	for c := range chunks {
		sb.WriteString(c)
	}
	assert.NoError(t, <-errs)
	assert.Equal(t, "Hello", sb.String())
}

func TestGemini_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gkey", r.Header.Get("x-goog-api-key"))

		var req geminiReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "be brief", req.SystemInstruction.Parts[0].Text)
		require.Len(t, req.Contents, 3)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role)

		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Open the "},{"text":"app."}]}}]}`)
	}))
	defer srv.Close()

	reply, err := NewGeminiProvider(srv.URL, "gkey", "gemini-1.5-flash").Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "Open the app.", reply)
}

func TestGemini_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := NewGeminiProvider(srv.URL, "gkey", "g").Chat(context.Background(), testMessages)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "gemini", pe.Provider)
}

func TestHuggingFace_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf", r.Header.Get("Authorization"))
		var req huggingFaceReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"Sure."}}]}`)
	}))
	defer srv.Close()

	reply, err := NewHuggingFaceProvider(srv.URL, "hf", "meta-llama/Llama-3.1-8B-Instruct").Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "Sure.", reply)
}

func TestHuggingFace_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewHuggingFaceProvider(srv.URL, "hf", "m").Chat(context.Background(), testMessages)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.Status)
	assert.NotNil(t, pe.Unwrap())
}
