package kafka

import (
	"context"

	"github.com/derril-tech/ai-patent-explorer/internal/application/align"
	"github.com/derril-tech/ai-patent-explorer/internal/application/novelty"
	"github.com/derril-tech/ai-patent-explorer/internal/application/queryplan"
	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// PipelineServices bundles the four application services the worker exposes
// over the request topics.
type PipelineServices struct {
	Planner   queryplan.Service
	Retriever retrieval.Service
	Aligner   align.Service
	Scorer    novelty.Service

	// DefaultTopK bounds search requests that omit k.
	DefaultTopK int
	// MaxTopK caps search requests that ask for more.
	MaxTopK int
}

// RegisterPipeline wires one handler per pipeline operation onto c.
func RegisterPipeline(c *Consumer, svcs PipelineServices) {
	c.Handle(OpPlan, planHandler(svcs.Planner))
	c.Handle(OpSearch, searchHandler(svcs))
	c.Handle(OpAlign, alignHandler(svcs.Aligner))
	c.Handle(OpNovelty, noveltyHandler(svcs.Scorer))
}

func planHandler(planner queryplan.Service) Handler {
	return func(ctx context.Context, env *RequestEnvelope) (interface{}, error) {
		var req PlanRequest
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
		plan, err := planner.Plan(ctx, req.WorkspaceID, req.Query, normalizeMethod(req.Method))
		if err != nil {
			return nil, err
		}
		return PlanResult{Plan: plan}, nil
	}
}

// searchHandler plans then retrieves, so a single search.request message
// drives the full query half of the pipeline.
func searchHandler(svcs PipelineServices) Handler {
	return func(ctx context.Context, env *RequestEnvelope) (interface{}, error) {
		var req SearchRequest
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
		method := normalizeMethod(req.Method)
		plan, err := svcs.Planner.Plan(ctx, req.WorkspaceID, req.Query, method)
		if err != nil {
			return nil, err
		}
		k := req.K
		if k <= 0 {
			k = svcs.DefaultTopK
		}
		if svcs.MaxTopK > 0 && k > svcs.MaxTopK {
			k = svcs.MaxTopK
		}
		results, err := svcs.Retriever.Search(ctx, plan, req.WorkspaceID, req.Filters, k, method)
		if err != nil {
			return nil, err
		}
		return SearchResults{Results: results}, nil
	}
}

func alignHandler(aligner align.Service) Handler {
	return func(ctx context.Context, env *RequestEnvelope) (interface{}, error) {
		var req AlignRequest
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
		alignments, err := aligner.AlignClaim(ctx, req.PatentID, req.ClaimNumber, req.ReferencePatentIDs)
		if err != nil {
			return nil, err
		}
		return AlignResult{Alignments: alignments}, nil
	}
}

func noveltyHandler(scorer novelty.Service) Handler {
	return func(ctx context.Context, env *RequestEnvelope) (interface{}, error) {
		var req NoveltyRequest
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
		score, err := scorer.ScoreNovelty(ctx, req.PatentID, req.ClaimNumber)
		if err != nil {
			return nil, err
		}
		return NoveltyResult{Score: score}, nil
	}
}

func normalizeMethod(m patent.SearchMethod) patent.SearchMethod {
	if m == "" {
		return patent.MethodHybrid
	}
	return m
}
