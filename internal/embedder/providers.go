package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"

	// Environment variables holding API keys
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultGeminiModel = "text-embedding-004"
	DefaultLocalModel  = "local-embeddings"

	// Default endpoints
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIURL = "https://api.openai.com/v1/embeddings"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	GeminiDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	DefaultCacheSize = 10000
	DefaultTimeout   = 30 * time.Second

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// httpProvider implements Embedder against an OpenAI-style /embeddings endpoint.
// Jina and OpenAI share the wire format and differ only in defaults.
type httpProvider struct {
	name       string
	apiKey     string
	model      string
	endpoint   string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
	logger     *slog.Logger
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	*httpProvider
}

// NewJinaProvider creates a new Jina AI embedder. An empty apiKey falls back to JINA_API_KEY.
func NewJinaProvider(apiKey string, cache *Cache, opts ...HTTPOption) (*JinaProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}

	p := newHTTPProvider(ProviderJina, apiKey, DefaultJinaModel, DefaultJinaURL, JinaDimension, cache, opts)
	return &JinaProvider{httpProvider: p}, nil
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	*httpProvider
}

// NewOpenAIProvider creates a new OpenAI embedder. An empty apiKey falls back to OPENAI_API_KEY.
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...HTTPOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	p := newHTTPProvider(ProviderOpenAI, apiKey, DefaultOpenAIModel, DefaultOpenAIURL, OpenAIDimension, cache, opts)
	return &OpenAIProvider{httpProvider: p}, nil
}

// HTTPOption customizes an HTTP-backed provider
type HTTPOption func(*httpProvider)

// WithEndpoint overrides the embeddings URL
func WithEndpoint(url string) HTTPOption {
	return func(p *httpProvider) {
		if url != "" {
			p.endpoint = url
		}
	}
}

// WithModel overrides the default model. The expected dimension is then
// learned from the first response.
func WithModel(model string) HTTPOption {
	return func(p *httpProvider) {
		if model != "" && model != p.model {
			p.model = model
			p.dimension = 0
		}
	}
}

// WithRetryConfig overrides the retry schedule
func WithRetryConfig(cfg RetryConfig) HTTPOption {
	return func(p *httpProvider) {
		p.retry = cfg
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *httpProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

func newHTTPProvider(name, apiKey, model, endpoint string, dimension int, cache *Cache, opts []HTTPOption) *httpProvider {
	p := &httpProvider{
		name:      name,
		apiKey:    apiKey,
		model:     model,
		endpoint:  endpoint,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		cache:  cache,
		retry:  DefaultRetryConfig(),
		logger: slog.Default().With("component", "embedder", "provider", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *httpProvider) Embed(ctx context.Context, batch Batch) ([]*Embedding, error) {
	return embedBatch(ctx, p.cache, p.name, p.model, batch, func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors, err := retryWithBackoff(ctx, p.retry, func() ([][]float32, error) {
			return p.callAPI(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, p.name, err)
		}
		p.logger.Debug("embedded batch", "document", batch.Document, "chunks", len(batch.Chunks), "requested", len(texts))
		return vectors, nil
	})
}

func (p *httpProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformedResponse, err)
	}

	// The API may return entries out of order
	sort.SliceStable(apiResp.Data, func(a, b int) bool {
		return apiResp.Data[a].Index < apiResp.Data[b].Index
	})

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		vectors[i] = data.Embedding
	}
	if err := ValidateVectors(len(texts), vectors, p.dimension); err != nil {
		return nil, err
	}
	if p.dimension == 0 {
		p.dimension = len(vectors[0])
	}

	return vectors, nil
}

func (p *httpProvider) Dimension() int {
	return p.dimension
}

func (p *httpProvider) Provider() string {
	return p.name
}

func (p *httpProvider) Model() string {
	return p.model
}

func (p *httpProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic pseudo-embeddings without network access.
// Vectors are derived from SHA-256 of the text, so identical text always maps to
// the same unit vector. Useful offline and in tests; carries no semantics.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: LocalDimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, batch Batch) ([]*Embedding, error) {
	return embedBatch(ctx, l.cache, ProviderLocal, l.model, batch, func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vectors[i] = localVector(text, l.dimension)
		}
		return vectors, nil
	})
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// localVector expands sha256(text) into dim floats using counter blocks,
// maps each 32-bit word into [-1, 1] and normalizes to unit length.
func localVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	var block [36]byte
	seed := sha256.Sum256([]byte(text))
	copy(block[:32], seed[:])

	var sumSquares float64
	for i := 0; i < dim; i += 8 {
		binary.LittleEndian.PutUint32(block[32:], uint32(i/8))
		digest := sha256.Sum256(block[:])
		for j := 0; j < 8 && i+j < dim; j++ {
			word := binary.LittleEndian.Uint32(digest[j*4:])
			v := float64(word)/float64(math.MaxUint32)*2 - 1
			vector[i+j] = float32(v)
			sumSquares += v * v
		}
	}

	if sumSquares > 0 {
		norm := float32(math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] /= norm
		}
	}

	return vector
}
