package retrieval

import (
	"context"

	"github.com/derril-tech/ai-patent-explorer/internal/domain/claim"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// EmbeddingReranker is the default second-pass scorer: it embeds the query
// and each candidate summary and scores by cosine similarity.  A remote
// cross-encoder can replace it behind the same Reranker port.
type EmbeddingReranker struct {
	embedder Embedder
}

// NewEmbeddingReranker builds the default reranker.
func NewEmbeddingReranker(embedder Embedder) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder}
}

func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.ProviderFailed(err, "rerank query embedding failed")
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		if text == "" {
			continue
		}
		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			// One bad candidate degrades to 0 rather than failing the
			// whole rerank pass.
			continue
		}
		scores[i] = claim.CosineSimilarity(queryVec, vec)
	}
	return scores, nil
}
