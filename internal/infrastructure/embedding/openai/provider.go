// Package openai backs the pipeline's SimilarityProvider port with the
// OpenAI embeddings API.  Embedding calls are memoized in-process and
// optionally through a shared cache tier; lexical similarity is computed
// locally and never leaves the process.
package openai

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/domain/claim"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultCacheTTL       = time.Hour
)

// embeddingsAPI is the slice of the OpenAI client the provider uses.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// SharedCache is an optional second cache tier (Redis) consulted between the
// in-process cache and the API.
type SharedCache interface {
	GetVector(ctx context.Context, key string) ([]float32, bool)
	SetVector(ctx context.Context, key string, vector []float32)
}

// Provider implements Embed and LexicalSimilarity against the OpenAI API.
type Provider struct {
	api     embeddingsAPI
	model   openai.EmbeddingModel
	timeout time.Duration
	retries int

	local  *gocache.Cache
	shared SharedCache
	logger logging.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithSharedCache adds a shared cache tier in front of the API.
func WithSharedCache(cache SharedCache) Option {
	return func(p *Provider) { p.shared = cache }
}

// NewProvider builds a provider from config.
func NewProvider(cfg config.ProviderConfig, log logging.Logger, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "provider api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	p := &Provider{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.EmbeddingModel),
		timeout: timeout,
		retries: cfg.MaxRetries,
		local:   gocache.New(ttl, 2*ttl),
		logger:  log.Named("openai"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Embed returns the dense vector for text, consulting the local cache, then
// the shared cache, then the API.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := string(p.model) + "\x00" + text

	if vec, ok := p.local.Get(key); ok {
		return vec.([]float32), nil
	}
	if p.shared != nil {
		if vec, ok := p.shared.GetVector(ctx, key); ok {
			p.local.SetDefault(key, vec)
			return vec, nil
		}
	}

	vec, err := p.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	p.local.SetDefault(key, vec)
	if p.shared != nil {
		p.shared.SetVector(ctx, key, vec)
	}
	return vec, nil
}

func (p *Provider) embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
		resp, err := p.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: p.model,
		})
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Data) == 0 {
			return nil, apperrors.New(apperrors.CodeProviderEmbedFailed, "embedding response was empty")
		}
		return resp.Data[0].Embedding, nil
	}

	p.logger.Warn("embedding request failed", logging.Err(lastErr))
	return nil, apperrors.ProviderFailed(lastErr, "embedding request failed")
}

// LexicalSimilarity computes the pairwise TF-IDF cosine locally.
func (p *Provider) LexicalSimilarity(_ context.Context, a, b string) (float64, error) {
	return claim.LexicalSimilarity(a, b), nil
}
