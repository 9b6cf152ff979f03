package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/application/align"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

type mockPlanner struct {
	planFn func(ctx context.Context, workspaceID, query string, method patent.SearchMethod) (*patent.PlannedQuery, error)
}

func (m *mockPlanner) Plan(ctx context.Context, workspaceID, query string, method patent.SearchMethod) (*patent.PlannedQuery, error) {
	return m.planFn(ctx, workspaceID, query, method)
}

type mockRetriever struct {
	searchFn func(ctx context.Context, plan *patent.PlannedQuery, workspaceID string, filters patent.SearchFilters, k int, mode patent.SearchMethod) ([]patent.SearchResult, error)
}

func (m *mockRetriever) Search(ctx context.Context, plan *patent.PlannedQuery, workspaceID string, filters patent.SearchFilters, k int, mode patent.SearchMethod) ([]patent.SearchResult, error) {
	return m.searchFn(ctx, plan, workspaceID, filters, k, mode)
}

type mockAligner struct {
	alignClaimFn func(ctx context.Context, patentID patent.ID, claimNumber int, referencePatentIDs []patent.ID) ([]patent.Alignment, error)
}

func (m *mockAligner) AlignClause(context.Context, string, []patent.Clause) (*align.BestMatch, error) {
	return nil, nil
}

func (m *mockAligner) AlignClaim(ctx context.Context, patentID patent.ID, claimNumber int, referencePatentIDs []patent.ID) ([]patent.Alignment, error) {
	return m.alignClaimFn(ctx, patentID, claimNumber, referencePatentIDs)
}

type mockScorer struct {
	scoreFn func(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error)
}

func (m *mockScorer) ScoreNovelty(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	return m.scoreFn(ctx, patentID, claimNumber)
}

func (m *mockScorer) GetScore(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	return m.scoreFn(ctx, patentID, claimNumber)
}

func envelope(t *testing.T, payload interface{}) *RequestEnvelope {
	t.Helper()
	env, err := NewRequestEnvelope(payload)
	require.NoError(t, err)
	return env
}

func TestPlanHandler(t *testing.T) {
	planner := &mockPlanner{
		planFn: func(_ context.Context, workspaceID, query string, method patent.SearchMethod) (*patent.PlannedQuery, error) {
			assert.Equal(t, "ws-1", workspaceID)
			assert.Equal(t, "wireless sensor", query)
			assert.Equal(t, patent.MethodHybrid, method)
			return &patent.PlannedQuery{OriginalText: query}, nil
		},
	}

	h := planHandler(planner)
	result, err := h(context.Background(), envelope(t, PlanRequest{WorkspaceID: "ws-1", Query: "wireless sensor"}))
	require.NoError(t, err)

	plan := result.(PlanResult)
	assert.Equal(t, "wireless sensor", plan.Plan.OriginalText)
}

func TestSearchHandler_PlansThenSearches(t *testing.T) {
	planner := &mockPlanner{
		planFn: func(_ context.Context, _, query string, _ patent.SearchMethod) (*patent.PlannedQuery, error) {
			return &patent.PlannedQuery{OriginalText: query}, nil
		},
	}
	retriever := &mockRetriever{
		searchFn: func(_ context.Context, plan *patent.PlannedQuery, workspaceID string, _ patent.SearchFilters, k int, mode patent.SearchMethod) ([]patent.SearchResult, error) {
			assert.Equal(t, "wireless sensor", plan.OriginalText)
			assert.Equal(t, "ws-1", workspaceID)
			assert.Equal(t, patent.MethodLexical, mode)
			assert.Equal(t, 5, k)
			return []patent.SearchResult{{PatentID: "US-001", FinalScore: 0.9}}, nil
		},
	}

	h := searchHandler(PipelineServices{Planner: planner, Retriever: retriever, DefaultTopK: 20, MaxTopK: 100})
	result, err := h(context.Background(), envelope(t, SearchRequest{
		WorkspaceID: "ws-1",
		Query:       "wireless sensor",
		Method:      patent.MethodLexical,
		K:           5,
	}))
	require.NoError(t, err)

	results := result.(SearchResults)
	require.Len(t, results.Results, 1)
	assert.Equal(t, patent.ID("US-001"), results.Results[0].PatentID)
}

func TestSearchHandler_ClampsK(t *testing.T) {
	planner := &mockPlanner{
		planFn: func(_ context.Context, _, query string, _ patent.SearchMethod) (*patent.PlannedQuery, error) {
			return &patent.PlannedQuery{OriginalText: query}, nil
		},
	}
	var gotK []int
	retriever := &mockRetriever{
		searchFn: func(_ context.Context, _ *patent.PlannedQuery, _ string, _ patent.SearchFilters, k int, _ patent.SearchMethod) ([]patent.SearchResult, error) {
			gotK = append(gotK, k)
			return nil, nil
		},
	}
	h := searchHandler(PipelineServices{Planner: planner, Retriever: retriever, DefaultTopK: 20, MaxTopK: 100})

	_, err := h(context.Background(), envelope(t, SearchRequest{WorkspaceID: "ws", Query: "q"}))
	require.NoError(t, err)
	_, err = h(context.Background(), envelope(t, SearchRequest{WorkspaceID: "ws", Query: "q", K: 500}))
	require.NoError(t, err)

	assert.Equal(t, []int{20, 100}, gotK)
}

func TestSearchHandler_PlanFailure(t *testing.T) {
	planner := &mockPlanner{
		planFn: func(context.Context, string, string, patent.SearchMethod) (*patent.PlannedQuery, error) {
			return nil, apperrors.New(apperrors.CodeEmptyQuery, "query is empty")
		},
	}
	h := searchHandler(PipelineServices{Planner: planner})

	_, err := h(context.Background(), envelope(t, SearchRequest{WorkspaceID: "ws"}))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeEmptyQuery))
}

func TestAlignHandler(t *testing.T) {
	aligner := &mockAligner{
		alignClaimFn: func(_ context.Context, patentID patent.ID, claimNumber int, refs []patent.ID) ([]patent.Alignment, error) {
			assert.Equal(t, patent.ID("US-001"), patentID)
			assert.Equal(t, 1, claimNumber)
			assert.Equal(t, []patent.ID{"US-100", "US-200"}, refs)
			return []patent.Alignment{{TargetClaimID: "US-001-1", SimilarityScore: 0.8}}, nil
		},
	}

	h := alignHandler(aligner)
	result, err := h(context.Background(), envelope(t, AlignRequest{
		PatentID:           "US-001",
		ClaimNumber:        1,
		ReferencePatentIDs: []patent.ID{"US-100", "US-200"},
	}))
	require.NoError(t, err)

	alignments := result.(AlignResult)
	require.Len(t, alignments.Alignments, 1)
	assert.InDelta(t, 0.8, alignments.Alignments[0].SimilarityScore, 1e-9)
}

func TestNoveltyHandler(t *testing.T) {
	scorer := &mockScorer{
		scoreFn: func(_ context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
			return &patent.NoveltyScore{PatentID: patentID, ClaimNumber: claimNumber, NoveltyScore: 0.7}, nil
		},
	}

	h := noveltyHandler(scorer)
	result, err := h(context.Background(), envelope(t, NoveltyRequest{PatentID: "US-001", ClaimNumber: 2}))
	require.NoError(t, err)

	score := result.(NoveltyResult)
	assert.Equal(t, patent.ID("US-001"), score.Score.PatentID)
	assert.InDelta(t, 0.7, score.Score.NoveltyScore, 1e-9)
}

func TestNoveltyHandler_BadPayload(t *testing.T) {
	h := noveltyHandler(&mockScorer{})

	_, err := h(context.Background(), &RequestEnvelope{RequestID: "r1", Payload: []byte(`"scalar"`)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSerialization))
}

func TestRegisterPipeline_CoversAllOperations(t *testing.T) {
	c := newTestConsumer(newFakeReader(), &fakeWriter{})
	RegisterPipeline(c, PipelineServices{
		Planner:   &mockPlanner{},
		Retriever: &mockRetriever{},
		Aligner:   &mockAligner{},
		Scorer:    &mockScorer{},
	})

	for _, op := range Operations() {
		assert.Contains(t, c.handlers, c.topics.Request(op))
	}
}
