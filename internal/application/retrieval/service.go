// Package retrieval executes planned queries against the corpus: lexical
// (BM25) and dense (vector) branches, hybrid merging, filtering, and
// cross-encoder-style reranking.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// Candidate is a scored document flowing between the search backends and the
// merge/rerank stages.
type Candidate struct {
	Doc     patent.PatentDocument
	ClaimID patent.ID // set by the dense branch only
	Score   float64
}

// LexicalSearcher is the keyword search backend (in-process BM25 snapshot or
// OpenSearch).
type LexicalSearcher interface {
	Search(ctx context.Context, query, workspaceID string, k int) ([]Candidate, error)
}

// VectorSearcher is the dense search backend over claim-level embeddings.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, workspaceID string, k int) ([]Candidate, error)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker scores (query, candidate summary) pairs for second-pass ranking.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Service executes planned queries.
type Service interface {
	// Search returns at most k results ordered best first.  mode selects
	// the lexical, dense, or hybrid branch.
	Search(ctx context.Context, plan *patent.PlannedQuery, workspaceID string, filters patent.SearchFilters, k int, mode patent.SearchMethod) ([]patent.SearchResult, error)
}

// Deps carries the service's collaborators.
type Deps struct {
	Lexical  LexicalSearcher
	Vector   VectorSearcher
	Embedder Embedder
	Reranker Reranker
	Logger   logging.Logger
	Metrics  *prometheus.PipelineMetrics

	// DefaultTopK is used when the caller passes k <= 0; MaxTopK caps k.
	DefaultTopK int
	MaxTopK     int
}

type service struct {
	deps Deps
}

// NewService wires a retrieval service.
func NewService(deps Deps) Service {
	deps.Logger = deps.Logger.Named("retrieval")
	if deps.DefaultTopK <= 0 {
		deps.DefaultTopK = 20
	}
	if deps.MaxTopK <= 0 {
		deps.MaxTopK = 100
	}
	return &service{deps: deps}
}

// scoredDoc pairs a result with the document metadata the reranker and
// filters need.
type scoredDoc struct {
	res patent.SearchResult
	doc patent.PatentDocument
}

func (s *service) Search(ctx context.Context, plan *patent.PlannedQuery, workspaceID string, filters patent.SearchFilters, k int, mode patent.SearchMethod) ([]patent.SearchResult, error) {
	start := time.Now()

	if plan == nil || strings.TrimSpace(plan.CleanedText) == "" {
		return nil, apperrors.New(apperrors.CodeEmptyQuery, "planned query has no searchable text")
	}
	if strings.TrimSpace(workspaceID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidWorkspace, "workspace id is required")
	}
	if !mode.IsValid() {
		return nil, apperrors.New(apperrors.CodeInvalidSearchMode, "search mode must be lexical, dense, or hybrid").
			WithDetail(string(mode))
	}
	if k <= 0 {
		k = s.deps.DefaultTopK
	}
	if k > s.deps.MaxTopK {
		k = s.deps.MaxTopK
	}

	var (
		candidates []scoredDoc
		err        error
	)
	switch mode {
	case patent.MethodLexical:
		candidates, err = s.lexicalSearch(ctx, plan.CleanedText, workspaceID, filters, k)
	case patent.MethodDense:
		candidates, err = s.denseSearch(ctx, plan.CleanedText, workspaceID, filters, k)
	case patent.MethodHybrid:
		candidates, err = s.hybridSearch(ctx, plan.CleanedText, workspaceID, filters, k)
	}
	if err != nil {
		s.deps.Metrics.ObserveSearch(string(mode), "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	results, err := s.rerank(ctx, plan.CleanedText, candidates)
	if err != nil {
		s.deps.Metrics.ObserveSearch(string(mode), "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	s.deps.Metrics.ObserveSearch(string(mode), "ok", time.Since(start).Seconds(), len(results))
	s.deps.Logger.Debug("search complete",
		logging.String("workspace_id", workspaceID),
		logging.String("mode", string(mode)),
		logging.Int("results", len(results)),
	)
	return results, nil
}

// lexicalSearch runs the keyword branch.  An unavailable corpus yields an
// empty list, not an error.
func (s *service) lexicalSearch(ctx context.Context, query, workspaceID string, filters patent.SearchFilters, k int) ([]scoredDoc, error) {
	candidates, err := s.deps.Lexical.Search(ctx, query, workspaceID, k)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeCorpusUnavailable) {
			s.deps.Logger.Warn("lexical corpus unavailable", logging.Err(err))
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "lexical search failed")
	}

	return filterCandidates(candidates, filters, patent.MethodLexical), nil
}

// denseSearch embeds the query and retrieves the k nearest claim vectors.
// The index is over-fetched at 2k so filtering can discard rows without
// starving the result, then the filtered list is truncated back to k.
func (s *service) denseSearch(ctx context.Context, query, workspaceID string, filters patent.SearchFilters, k int) ([]scoredDoc, error) {
	vector, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		s.deps.Metrics.ObserveProviderFailure("embed")
		return nil, apperrors.ProviderFailed(err, "query embedding failed")
	}

	candidates, err := s.deps.Vector.Search(ctx, vector, workspaceID, 2*k)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "vector search failed")
	}

	filtered := filterCandidates(candidates, filters, patent.MethodDense)
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered, nil
}

// hybridSearch runs both branches at 2k, merges by patent id averaging the
// scores of documents found by both, sorts, and truncates to k.  A dense
// branch failure degrades to lexical-only results.
func (s *service) hybridSearch(ctx context.Context, query, workspaceID string, filters patent.SearchFilters, k int) ([]scoredDoc, error) {
	lexical, err := s.lexicalSearch(ctx, query, workspaceID, filters, 2*k)
	if err != nil {
		return nil, err
	}

	dense, err := s.denseSearch(ctx, query, workspaceID, filters, 2*k)
	if err != nil {
		if !apperrors.IsProviderFailure(err) && !apperrors.IsCode(err, apperrors.CodeVectorSearchFailed) {
			return nil, err
		}
		s.deps.Logger.Warn("dense branch failed, serving lexical results only", logging.Err(err))
		dense = nil
	}

	return mergeCandidates(lexical, dense, k), nil
}

// mergeCandidates combines the two branches by patent id.  A document
// present in both keeps the average of its two scores and is tagged hybrid.
func mergeCandidates(lexical, dense []scoredDoc, k int) []scoredDoc {
	byID := make(map[patent.ID]*scoredDoc)
	var order []patent.ID

	absorb := func(candidates []scoredDoc) {
		for _, c := range candidates {
			existing, ok := byID[c.res.PatentID]
			if !ok {
				c := c
				byID[c.res.PatentID] = &c
				order = append(order, c.res.PatentID)
				continue
			}
			existing.res.Score = (existing.res.Score + c.res.Score) / 2
			existing.res.SourceMethod = patent.MethodHybrid
			if existing.res.ClaimID == "" {
				existing.res.ClaimID = c.res.ClaimID
			}
		}
	}
	absorb(lexical)
	absorb(dense)

	merged := make([]scoredDoc, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}
	sortCandidates(merged, func(c scoredDoc) float64 { return c.res.Score })

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// rerank scores every candidate against the query with the second-pass
// model and re-sorts by the mean of retrieval and rerank scores.  Candidate
// identities never change; a reranker failure keeps the retrieval order.
func (s *service) rerank(ctx context.Context, query string, candidates []scoredDoc) ([]patent.SearchResult, error) {
	finalize := func() []patent.SearchResult {
		results := make([]patent.SearchResult, len(candidates))
		for i, c := range candidates {
			results[i] = c.res
		}
		return results
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	if s.deps.Reranker == nil {
		for i := range candidates {
			candidates[i].res.FinalScore = candidates[i].res.Score
		}
		return finalize(), nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = strings.TrimSpace(c.doc.Title + " " + c.doc.Abstract)
	}

	scores, err := s.deps.Reranker.Rerank(ctx, query, texts)
	if err != nil {
		s.deps.Metrics.ObserveProviderFailure("rerank")
		s.deps.Logger.Warn("rerank failed, keeping retrieval order", logging.Err(err))
		for i := range candidates {
			candidates[i].res.FinalScore = candidates[i].res.Score
		}
		return finalize(), nil
	}
	if len(scores) != len(candidates) {
		return nil, apperrors.New(apperrors.CodeRerankFailed, "reranker returned mismatched score count")
	}

	for i := range candidates {
		candidates[i].res.RerankScore = scores[i]
		candidates[i].res.FinalScore = (candidates[i].res.Score + scores[i]) / 2
	}
	sortCandidates(candidates, func(c scoredDoc) float64 { return c.res.FinalScore })
	return finalize(), nil
}

// filterCandidates applies the caller's filters and converts survivors.
func filterCandidates(candidates []Candidate, filters patent.SearchFilters, method patent.SearchMethod) []scoredDoc {
	out := make([]scoredDoc, 0, len(candidates))
	for _, c := range candidates {
		if !matchesFilters(c.Doc, filters) {
			continue
		}
		out = append(out, scoredDoc{
			res: patent.SearchResult{
				PatentID:     c.Doc.ID,
				ClaimID:      c.ClaimID,
				Score:        c.Score,
				SourceMethod: method,
			},
			doc: c.Doc,
		})
	}
	return out
}

// matchesFilters applies the caller's filters to one document.  Criteria the
// document cannot satisfy for lack of data pass by default (fail-open); the
// date range is inclusive on both ends.
func matchesFilters(doc patent.PatentDocument, filters patent.SearchFilters) bool {
	if filters.DateFrom != nil && doc.PriorityDate != nil && doc.PriorityDate.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && doc.PriorityDate != nil && doc.PriorityDate.After(*filters.DateTo) {
		return false
	}
	if len(filters.CPCCodes) > 0 && len(doc.CPCCodes) > 0 && !intersects(doc.CPCCodes, filters.CPCCodes) {
		return false
	}
	if len(filters.Assignees) > 0 && len(doc.Assignees) > 0 && !intersects(doc.Assignees, filters.Assignees) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func sortCandidates(candidates []scoredDoc, key func(scoredDoc) float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ki, kj := key(candidates[i]), key(candidates[j])
		if ki != kj {
			return ki > kj
		}
		return candidates[i].res.PatentID < candidates[j].res.PatentID
	})
}
