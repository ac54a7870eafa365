package embedder

import (
	"fmt"
	"os"
	"strings"
)

// EnvProvider selects the embedding provider explicitly
const EnvProvider = "PDFINDEX_EMBEDDING_PROVIDER"

// Config holds embedder configuration
type Config struct {
	Provider  string // jina, openai, gemini, local; empty means detect
	APIKey    string
	Model     string // empty means the provider default
	BaseURL   string // endpoint override; for openai this selects the compatible client
	BatchSize int
	CacheSize int
}

// New creates an embedder with explicit configuration. Fields left empty
// are filled from the environment. The local provider is only used when
// selected explicitly.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		detected, err := DetectProvider()
		if err != nil {
			return nil, err
		}
		provider = detected
	}

	switch provider {
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cache)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache, WithEndpoint(cfg.BaseURL), WithModel(cfg.Model))
	case ProviderOpenAI:
		if cfg.BaseURL != "" {
			model := cfg.Model
			if model == "" {
				model = DefaultOpenAIModel
			}
			return NewCompatibleProvider(CompatibleConfig{
				Name:      ProviderOpenAI,
				BaseURL:   cfg.BaseURL,
				APIKey:    firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIAPIKey)),
				Model:     model,
				BatchSize: cfg.BatchSize,
			}, cache)
		}
		return NewOpenAIProvider(cfg.APIKey, cache, WithModel(cfg.Model))
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider picks the provider from the environment: the explicit
// PDFINDEX_EMBEDDING_PROVIDER first, then the first API key found among
// GOOGLE_API_KEY, JINA_API_KEY and OPENAI_API_KEY. With none of them set it
// returns ErrNoProviderEnabled rather than falling back to local vectors.
func DetectProvider() (string, error) {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider), nil
	}

	switch {
	case os.Getenv(EnvGoogleAPIKey) != "":
		return ProviderGemini, nil
	case os.Getenv(EnvJinaAPIKey) != "":
		return ProviderJina, nil
	case os.Getenv(EnvOpenAIAPIKey) != "":
		return ProviderOpenAI, nil
	}

	return "", fmt.Errorf("%w: set %s, an API key (%s, %s, %s) or provider: %s",
		ErrNoProviderEnabled, EnvProvider, EnvGoogleAPIKey, EnvJinaAPIKey, EnvOpenAIAPIKey, ProviderLocal)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
