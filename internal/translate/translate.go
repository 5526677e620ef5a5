// Package translate wraps a LibreTranslate-compatible HTTP endpoint. Failures
// never escape: the caller always gets usable text back, plus an Outcome
// saying what happened.
package translate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultTimeout = 15 * time.Second

type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeTranslated  Outcome = "translated"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
)

// Degraded reports whether the caller should tell the user the text was
// left in the source language.
func (o Outcome) Degraded() bool {
	return o == OutcomeUnsupported || o == OutcomeFailed
}

// wellSupported is the set of targets the translation backend produces
// usable output for. Other targets are passed through untouched.
var wellSupported = map[string]bool{
	"en": true,
	"hi": true,
	"bn": true,
	"gu": true,
	"mr": true,
	"pa": true,
}

// SupportedLanguages returns the well-supported target codes in a stable
// order.
func SupportedLanguages() []string {
	return []string{"en", "hi", "bn", "gu", "mr", "pa"}
}

func IsSupported(lang string) bool { return wellSupported[strings.ToLower(lang)] }

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

type Translator struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Cache   Cache
	Log     *zap.Logger
}

func New(baseURL, apiKey string, cache Cache, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: DefaultTimeout},
		Cache:   cache,
		Log:     log,
	}
}

type translateReq struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResp struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// Translate returns text rendered in target. On any failure it returns text
// unchanged.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, Outcome) {
	source = strings.ToLower(strings.TrimSpace(source))
	target = strings.ToLower(strings.TrimSpace(target))

	if source == target || target == "en" || strings.TrimSpace(text) == "" {
		return text, OutcomeSkipped
	}
	if !IsSupported(target) {
		return text, OutcomeUnsupported
	}

	key := cacheKey(source, target, text)
	if t.Cache != nil {
		if v, ok := t.Cache.Get(ctx, key); ok {
			return v, OutcomeTranslated
		}
	}

	out, err := t.call(ctx, text, source, target)
	if err != nil {
		t.Log.Warn("translation failed, keeping source text",
			zap.String("source", source), zap.String("target", target), zap.Error(err))
		return text, OutcomeFailed
	}

	if t.Cache != nil {
		t.Cache.Set(ctx, key, out)
	}
	return out, OutcomeTranslated
}

func (t *Translator) call(ctx context.Context, text, source, target string) (string, error) {
	if t.BaseURL == "" {
		return "", fmt.Errorf("translate url not configured")
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	b, err := json.Marshal(translateReq{Q: text, Source: source, Target: target, Format: "text", APIKey: t.APIKey})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/translate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded translateResp
	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decoded.Error != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, decoded.Error)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if strings.TrimSpace(decoded.TranslatedText) == "" {
		return "", fmt.Errorf("empty translatedText")
	}
	return decoded.TranslatedText, nil
}

func cacheKey(source, target, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "translate:" + source + ":" + target + ":" + hex.EncodeToString(sum[:])
}
