package openai

import (
	"context"
	"math"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
)

// embedderFunc is the slice of Provider the reranker needs.
type embedderFunc interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores candidates by embedding cosine against the query.  Cheaper
// than a dedicated cross-encoder and reuses the provider's embedding cache,
// since candidate summaries repeat across queries.
type Reranker struct {
	embedder embedderFunc
	logger   logging.Logger
}

// NewReranker builds a second-pass reranker over the embedding provider.
func NewReranker(p *Provider, log logging.Logger) *Reranker {
	return &Reranker{embedder: p, logger: log.Named("reranker")}
}

// Rerank returns one cosine similarity per text, in input order.  A failed
// candidate embedding scores 0.0 rather than failing the batch; a failed
// query embedding fails the call and the retriever keeps first-pass order.
func (r *Reranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			r.logger.Warn("candidate embedding failed, scoring 0", logging.Int("index", i), logging.Err(err))
			continue
		}
		scores[i] = cosine(queryVec, vec)
	}
	return scores, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
