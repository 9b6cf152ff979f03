package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/testutil"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, apperrors.New(apperrors.CodeProviderEmbedFailed, "unknown text")
}

func TestRerank_OrdersByCosine(t *testing.T) {
	r := &Reranker{
		embedder: &stubEmbedder{vectors: map[string][]float32{
			"query":    {1, 0},
			"match":    {1, 0},
			"partial":  {1, 1},
			"opposite": {0, 1},
		}},
		logger: testutil.NewMockLogger(),
	}

	scores, err := r.Rerank(context.Background(), "query", []string{"match", "partial", "opposite"})
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.InDelta(t, 0.7071, scores[1], 1e-4)
	assert.InDelta(t, 0.0, scores[2], 1e-9)
}

func TestRerank_QueryEmbedFailure(t *testing.T) {
	r := &Reranker{
		embedder: &stubEmbedder{vectors: map[string][]float32{}},
		logger:   testutil.NewMockLogger(),
	}

	_, err := r.Rerank(context.Background(), "query", []string{"a"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeProviderEmbedFailed))
}

func TestRerank_CandidateFailureScoresZero(t *testing.T) {
	r := &Reranker{
		embedder: &stubEmbedder{vectors: map[string][]float32{
			"query": {1, 0},
			"good":  {1, 0},
		}},
		logger: testutil.NewMockLogger(),
	}

	scores, err := r.Rerank(context.Background(), "query", []string{"good", "broken", ""})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.Zero(t, scores[1])
	assert.Zero(t, scores[2])
}
