package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultGeminiBaseURL is Google's OpenAI-compatible endpoint for Gemini models
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// CompatibleProvider implements Embedder on top of a langchaingo embedder
// speaking the OpenAI embeddings protocol. It serves Gemini through Google's
// compatibility endpoint as well as self-hosted OpenAI-compatible servers.
type CompatibleProvider struct {
	name      string
	model     string
	dimension int
	embedder  embeddings.Embedder
	cache     *Cache
	retry     RetryConfig
	logger    *slog.Logger
}

// CompatibleConfig configures a CompatibleProvider
type CompatibleConfig struct {
	Name      string // provider name reported in embeddings
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int // expected vector length, 0 to accept whatever the model returns
	BatchSize int
}

// NewGeminiProvider creates an embedder for Google's Gemini embedding models.
// An empty apiKey falls back to GOOGLE_API_KEY.
func NewGeminiProvider(apiKey, model string, cache *Cache) (*CompatibleProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvGoogleAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvGoogleAPIKey)
	}

	dimension := GeminiDimension
	if model == "" {
		model = DefaultGeminiModel
	} else if model != DefaultGeminiModel {
		dimension = 0
	}

	return NewCompatibleProvider(CompatibleConfig{
		Name:      ProviderGemini,
		BaseURL:   DefaultGeminiBaseURL,
		APIKey:    apiKey,
		Model:     model,
		Dimension: dimension,
	}, cache)
}

// NewCompatibleProvider creates an embedder for any OpenAI-compatible endpoint
func NewCompatibleProvider(cfg CompatibleConfig, cache *Cache) (*CompatibleProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidInput)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidInput)
	}
	if cfg.Name == "" {
		cfg.Name = ProviderOpenAI
	}
	token := cfg.APIKey
	if token == "" {
		// Local compatible servers often run without authentication
		token = "none"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = DefaultBatchSize
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Name, err)
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(batchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", cfg.Name, err)
	}

	return &CompatibleProvider{
		name:      cfg.Name,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		embedder:  emb,
		cache:     cache,
		retry:     DefaultRetryConfig(),
		logger:    slog.Default().With("component", "embedder", "provider", cfg.Name),
	}, nil
}

func (c *CompatibleProvider) Embed(ctx context.Context, batch Batch) ([]*Embedding, error) {
	return embedBatch(ctx, c.cache, c.name, c.model, batch, func(ctx context.Context, texts []string) ([][]float32, error) {
		c.logger.Debug("generating embeddings", "document", batch.Document, "count", len(texts))
		vectors, err := retryWithBackoff(ctx, c.retry, func() ([][]float32, error) {
			return c.embedder.EmbedDocuments(ctx, texts)
		})
		if err != nil {
			c.logger.Error("failed to generate embeddings", "document", batch.Document, "count", len(texts), "err", err)
			return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, c.name, err)
		}
		if err := ValidateVectors(len(texts), vectors, c.dimension); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, c.name, err)
		}
		if c.dimension == 0 {
			c.dimension = len(vectors[0])
		}
		return vectors, nil
	})
}

func (c *CompatibleProvider) Dimension() int {
	return c.dimension
}

func (c *CompatibleProvider) Provider() string {
	return c.name
}

func (c *CompatibleProvider) Model() string {
	return c.model
}

func (c *CompatibleProvider) Close() error {
	return nil
}
