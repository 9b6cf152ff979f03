package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/testutil"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

type mockLexical struct {
	searchFn func(ctx context.Context, query, workspaceID string, k int) ([]Candidate, error)
}

func (m *mockLexical) Search(ctx context.Context, query, workspaceID string, k int) ([]Candidate, error) {
	return m.searchFn(ctx, query, workspaceID, k)
}

type mockVector struct {
	searchFn func(ctx context.Context, vector []float32, workspaceID string, k int) ([]Candidate, error)
}

func (m *mockVector) Search(ctx context.Context, vector []float32, workspaceID string, k int) ([]Candidate, error) {
	return m.searchFn(ctx, vector, workspaceID, k)
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFn(ctx, text)
}

type mockReranker struct {
	rerankFn func(ctx context.Context, query string, texts []string) ([]float64, error)
}

func (m *mockReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	return m.rerankFn(ctx, query, texts)
}

func candidate(id string, score float64) Candidate {
	return Candidate{
		Doc:   patent.PatentDocument{ID: patent.ID(id), WorkspaceID: "ws"},
		Score: score,
	}
}

func plan(text string) *patent.PlannedQuery {
	return &patent.PlannedQuery{OriginalText: text, CleanedText: text}
}

func emptyLexical() *mockLexical {
	return &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return nil, nil
	}}
}

func emptyVector() *mockVector {
	return &mockVector{searchFn: func(context.Context, []float32, string, int) ([]Candidate, error) {
		return nil, nil
	}}
}

func fixedEmbedder() *mockEmbedder {
	return &mockEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}}
}

func newService(deps Deps) Service {
	deps.Logger = testutil.NewMockLogger()
	return NewService(deps)
}

func TestSearch_InvalidInputs(t *testing.T) {
	svc := newService(Deps{Lexical: emptyLexical(), Vector: emptyVector(), Embedder: fixedEmbedder()})
	ctx := context.Background()

	_, err := svc.Search(ctx, plan(""), "ws", patent.SearchFilters{}, 5, patent.MethodHybrid)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEmptyQuery))

	_, err = svc.Search(ctx, plan("query"), "", patent.SearchFilters{}, 5, patent.MethodHybrid)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWorkspace))

	_, err = svc.Search(ctx, plan("query"), "ws", patent.SearchFilters{}, 5, patent.SearchMethod("fuzzy"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidSearchMode))
}

func TestSearch_LexicalMode(t *testing.T) {
	lexical := &mockLexical{searchFn: func(_ context.Context, query, ws string, k int) ([]Candidate, error) {
		assert.Equal(t, "sensor network", query)
		assert.Equal(t, "ws", ws)
		return []Candidate{candidate("p1", 0.9), candidate("p2", 0.5)}, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: fixedEmbedder()})

	results, err := svc.Search(context.Background(), plan("sensor network"), "ws", patent.SearchFilters{}, 5, patent.MethodLexical)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, patent.ID("p1"), results[0].PatentID)
	assert.Equal(t, patent.MethodLexical, results[0].SourceMethod)
	assert.Equal(t, 0.9, results[0].FinalScore)
}

func TestSearch_CorpusUnavailableYieldsEmpty(t *testing.T) {
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return nil, apperrors.CorpusUnavailable("not built")
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: fixedEmbedder()})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodLexical)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_DenseMode(t *testing.T) {
	vector := &mockVector{searchFn: func(_ context.Context, vec []float32, ws string, k int) ([]Candidate, error) {
		assert.Equal(t, []float32{1, 0}, vec)
		assert.Equal(t, 10, k) // 2k for k=5
		c := candidate("p1", 0.8)
		c.ClaimID = "claim-1"
		return []Candidate{c}, nil
	}}
	svc := newService(Deps{Lexical: emptyLexical(), Vector: vector, Embedder: fixedEmbedder()})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodDense)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, patent.ID("claim-1"), results[0].ClaimID)
	assert.Equal(t, patent.MethodDense, results[0].SourceMethod)
}

func TestSearch_DenseEmbedFailureSurfaced(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("provider down")
	}}
	svc := newService(Deps{Lexical: emptyLexical(), Vector: emptyVector(), Embedder: embedder})

	_, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodDense)
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderFailure(err))
}

func TestSearch_HybridMergesAndAverages(t *testing.T) {
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return []Candidate{candidate("p1", 0.8), candidate("p2", 0.6)}, nil
	}}
	vector := &mockVector{searchFn: func(context.Context, []float32, string, int) ([]Candidate, error) {
		return []Candidate{candidate("p1", 0.4), candidate("p3", 0.9)}, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: vector, Embedder: fixedEmbedder()})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodHybrid)
	require.NoError(t, err)

	require.Len(t, results, 3)
	byID := make(map[patent.ID]patent.SearchResult)
	for _, r := range results {
		byID[r.PatentID] = r
	}
	assert.InDelta(t, 0.6, byID["p1"].Score, 1e-9) // (0.8+0.4)/2
	assert.Equal(t, patent.MethodHybrid, byID["p1"].SourceMethod)
	assert.Equal(t, patent.MethodLexical, byID["p2"].SourceMethod)
	assert.Equal(t, patent.MethodDense, byID["p3"].SourceMethod)
	// Best first: p3 (0.9) before the merged p1 (0.6).
	assert.Equal(t, patent.ID("p3"), results[0].PatentID)
}

func TestSearch_HybridBranchesRequestTwoK(t *testing.T) {
	var lexicalK, vectorK int
	lexical := &mockLexical{searchFn: func(_ context.Context, _, _ string, k int) ([]Candidate, error) {
		lexicalK = k
		return nil, nil
	}}
	vector := &mockVector{searchFn: func(_ context.Context, _ []float32, _ string, k int) ([]Candidate, error) {
		vectorK = k
		return nil, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: vector, Embedder: fixedEmbedder(), MaxTopK: 100})

	_, err := svc.Search(context.Background(), plan("query"), "ws", patent.SearchFilters{}, 5, patent.MethodHybrid)
	require.NoError(t, err)

	assert.Equal(t, 10, lexicalK)
	// The vector index is over-fetched for filtering headroom; the branch
	// itself still contributes at most 2k candidates (next test).
	assert.Equal(t, 20, vectorK)
}

func TestSearch_DenseBranchTruncatesBeforeMerge(t *testing.T) {
	// 20 dense hits for k=5: the branch must cut to 10 after filtering, so
	// dense rank 11..20 never reaches the merge.  A document found by both
	// branches keeps the average of its two scores; d11 at dense rank 11
	// would drag p1's strong lexical score down if it leaked through.
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return []Candidate{candidate("d11", 0.95)}, nil
	}}
	vector := &mockVector{searchFn: func(_ context.Context, _ []float32, _ string, k int) ([]Candidate, error) {
		hits := make([]Candidate, 20)
		for i := range hits {
			hits[i] = candidate(fmt.Sprintf("d%d", i+1), 1.0-float64(i)*0.04)
		}
		return hits, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: vector, Embedder: fixedEmbedder(), MaxTopK: 100})

	results, err := svc.Search(context.Background(), plan("query"), "ws", patent.SearchFilters{}, 5, patent.MethodHybrid)
	require.NoError(t, err)

	var found *patent.SearchResult
	for i := range results {
		if results[i].PatentID == "d11" {
			found = &results[i]
			break
		}
	}
	require.NotNil(t, found)
	assert.InDelta(t, 0.95, found.Score, 1e-9)
	assert.Equal(t, patent.MethodLexical, found.SourceMethod)
}

func TestSearch_HybridDenseFailureDegrades(t *testing.T) {
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return []Candidate{candidate("p1", 0.8)}, nil
	}}
	embedder := &mockEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("provider down")
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: embedder})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodHybrid)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, patent.ID("p1"), results[0].PatentID)
}

func TestSearch_TruncatesToK(t *testing.T) {
	lexical := &mockLexical{searchFn: func(_ context.Context, _, _ string, k int) ([]Candidate, error) {
		assert.Equal(t, 4, k) // 2k for hybrid with k=2
		return []Candidate{
			candidate("p1", 0.9), candidate("p2", 0.8),
			candidate("p3", 0.7), candidate("p4", 0.6),
		}, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: fixedEmbedder()})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 2, patent.MethodHybrid)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_Rerank(t *testing.T) {
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return []Candidate{candidate("p1", 0.9), candidate("p2", 0.5)}, nil
	}}
	reranker := &mockReranker{rerankFn: func(_ context.Context, _ string, texts []string) ([]float64, error) {
		require.Len(t, texts, 2)
		return []float64{0.1, 0.9}, nil
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: fixedEmbedder(), Reranker: reranker})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodLexical)
	require.NoError(t, err)

	require.Len(t, results, 2)
	// p2: (0.5+0.9)/2 = 0.7 beats p1: (0.9+0.1)/2 = 0.5.
	assert.Equal(t, patent.ID("p2"), results[0].PatentID)
	assert.InDelta(t, 0.7, results[0].FinalScore, 1e-9)
	assert.InDelta(t, 0.9, results[0].RerankScore, 1e-9)
}

func TestSearch_RerankFailureKeepsOrder(t *testing.T) {
	lexical := &mockLexical{searchFn: func(context.Context, string, string, int) ([]Candidate, error) {
		return []Candidate{candidate("p1", 0.9), candidate("p2", 0.5)}, nil
	}}
	reranker := &mockReranker{rerankFn: func(context.Context, string, []string) ([]float64, error) {
		return nil, errors.New("cross encoder down")
	}}
	svc := newService(Deps{Lexical: lexical, Vector: emptyVector(), Embedder: fixedEmbedder(), Reranker: reranker})

	results, err := svc.Search(context.Background(), plan("sensor"), "ws", patent.SearchFilters{}, 5, patent.MethodLexical)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, patent.ID("p1"), results[0].PatentID)
	assert.Equal(t, 0.9, results[0].FinalScore)
}

func TestMatchesFilters(t *testing.T) {
	from := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	date := time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)

	doc := patent.PatentDocument{
		ID:           "p1",
		CPCCodes:     []string{"G06F", "H04L"},
		Assignees:    []string{"Acme"},
		PriorityDate: &date,
	}

	assert.True(t, matchesFilters(doc, patent.SearchFilters{DateFrom: &from, DateTo: &to}))
	assert.False(t, matchesFilters(doc, patent.SearchFilters{DateTo: &from}))
	assert.False(t, matchesFilters(doc, patent.SearchFilters{DateFrom: &to}))
	assert.True(t, matchesFilters(doc, patent.SearchFilters{CPCCodes: []string{"G06F"}}))
	assert.False(t, matchesFilters(doc, patent.SearchFilters{CPCCodes: []string{"A61B"}}))
	assert.True(t, matchesFilters(doc, patent.SearchFilters{Assignees: []string{"Acme", "Other"}}))
	assert.False(t, matchesFilters(doc, patent.SearchFilters{Assignees: []string{"Other"}}))

	// Fail-open: a document without a priority date passes date filters.
	noDate := patent.PatentDocument{ID: "p2"}
	assert.True(t, matchesFilters(noDate, patent.SearchFilters{DateFrom: &from, DateTo: &to}))
}

func TestEmbeddingReranker(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if text == "query text" || text == "close match" {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	}}
	r := NewEmbeddingReranker(embedder)

	scores, err := r.Rerank(context.Background(), "query text", []string{"close match", "far away", ""})
	require.NoError(t, err)

	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.0, scores[1], 1e-6)
	assert.Zero(t, scores[2])
}
