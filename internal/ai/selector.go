package ai

import "strings"

// Descriptor describes one provider slot in the selection order.
type Descriptor struct {
	Name         string
	IsConfigured func() bool
	New          func() Provider
}

// Config is the provider part of the process configuration. It is built once
// at startup and never re-read from the environment.
type Config struct {
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string

	GeminiBaseURL string
	GeminiAPIKey  string
	GeminiModel   string

	HuggingFaceBaseURL string
	HuggingFaceToken   string
	HuggingFaceModel   string
}

// Selector picks the first configured provider from a fixed, ordered list.
type Selector struct {
	descriptors []Descriptor
}

func NewSelector(cfg Config) *Selector {
	return NewSelectorFrom(
		Descriptor{
			Name:         openRouterName,
			IsConfigured: func() bool { return present(cfg.OpenRouterAPIKey, cfg.OpenRouterModel) },
			New: func() Provider {
				return NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel,
					cfg.OpenRouterSiteURL, cfg.OpenRouterAppName)
			},
		},
		Descriptor{
			Name:         geminiName,
			IsConfigured: func() bool { return present(cfg.GeminiAPIKey, cfg.GeminiModel) },
			New: func() Provider {
				return NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
			},
		},
		Descriptor{
			Name:         huggingFaceName,
			IsConfigured: func() bool { return present(cfg.HuggingFaceToken) },
			New: func() Provider {
				return NewHuggingFaceProvider(cfg.HuggingFaceBaseURL, cfg.HuggingFaceToken, cfg.HuggingFaceModel)
			},
		},
	)
}

// NewSelectorFrom builds a selector over an explicit order. Tests use it to
// plug in fakes.
func NewSelectorFrom(descriptors ...Descriptor) *Selector {
	return &Selector{descriptors: descriptors}
}

// Select returns the first configured descriptor.
func (s *Selector) Select() (Descriptor, error) {
	for _, d := range s.descriptors {
		if d.IsConfigured != nil && d.IsConfigured() {
			return d, nil
		}
	}
	return Descriptor{}, ErrNoProviderConfigured
}

// Names lists the selection order.
func (s *Selector) Names() []string {
	out := make([]string, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		out = append(out, d.Name)
	}
	return out
}

func present(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}
