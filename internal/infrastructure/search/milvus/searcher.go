package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

const defaultNProbe = 16

// DocLookup hydrates patent metadata for vector hits so the retrieval layer
// can filter and rerank them.
type DocLookup interface {
	GetPatent(ctx context.Context, patentID patent.ID) (*patent.PatentDocument, error)
}

// Searcher implements the dense retrieval branch over the claim-vector
// collection.
type Searcher struct {
	client *Client
	docs   DocLookup
	logger logging.Logger
}

// NewSearcher builds a vector searcher.
func NewSearcher(c *Client, docs DocLookup, log logging.Logger) *Searcher {
	return &Searcher{client: c, docs: docs, logger: log.Named("vector_search")}
}

// Search returns the k nearest claim vectors within a workspace, hydrated
// with patent metadata.  Hits whose patent cannot be loaded are dropped.
func (s *Searcher) Search(ctx context.Context, vector []float32, workspaceID string, k int) ([]retrieval.Candidate, error) {
	nprobe := s.client.cfg.NProbe
	if nprobe <= 0 {
		nprobe = defaultNProbe
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(nprobe)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to build search params")
	}

	results, err := s.client.milvus.Search(ctx,
		s.client.collection,
		nil,
		workspaceExpr(workspaceID),
		[]string{claimIDField, patentIDField},
		[]entity.Vector{entity.FloatVector(vector)},
		vectorField,
		entity.MetricType(s.client.cfg.MetricType),
		k,
		sp,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "vector search failed")
	}

	var candidates []retrieval.Candidate
	for _, result := range results {
		hits, err := convertResult(result)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			doc, err := s.docs.GetPatent(ctx, hit.patentID)
			if err != nil {
				s.logger.Warn("dropping vector hit without patent metadata",
					logging.String("patent_id", string(hit.patentID)), logging.Err(err))
				continue
			}
			candidates = append(candidates, retrieval.Candidate{
				Doc:     *doc,
				ClaimID: hit.claimID,
				Score:   hit.score,
			})
		}
	}
	return candidates, nil
}

// UpsertClaimVector stores or replaces one claim's embedding.
func (s *Searcher) UpsertClaimVector(ctx context.Context, claimID, patentID patent.ID, workspaceID string, vector []float32) error {
	_, err := s.client.milvus.Upsert(ctx, s.client.collection, "",
		entity.NewColumnVarChar(claimIDField, []string{string(claimID)}),
		entity.NewColumnVarChar(patentIDField, []string{string(patentID)}),
		entity.NewColumnVarChar(workspaceIDField, []string{workspaceID}),
		entity.NewColumnFloatVector(vectorField, s.client.cfg.EmbeddingDim, [][]float32{vector}),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to upsert claim vector")
	}
	return nil
}

// DeletePatentVectors removes every claim vector of a patent.
func (s *Searcher) DeletePatentVectors(ctx context.Context, patentID patent.ID) error {
	expr := fmt.Sprintf(`%s == "%s"`, patentIDField, escapeExprString(string(patentID)))
	if err := s.client.milvus.Delete(ctx, s.client.collection, "", expr); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to delete claim vectors")
	}
	return nil
}

type vectorHit struct {
	claimID  patent.ID
	patentID patent.ID
	score    float64
}

func convertResult(result client.SearchResult) ([]vectorHit, error) {
	claimCol := columnByName(result.Fields, claimIDField)
	patentCol := columnByName(result.Fields, patentIDField)
	if claimCol == nil || patentCol == nil {
		return nil, apperrors.New(apperrors.CodeVectorSearchFailed, "search result missing id fields")
	}

	hits := make([]vectorHit, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		claimID, err := claimCol.GetAsString(i)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to read claim id")
		}
		patentID, err := patentCol.GetAsString(i)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to read patent id")
		}
		hits = append(hits, vectorHit{
			claimID:  patent.ID(claimID),
			patentID: patent.ID(patentID),
			score:    float64(result.Scores[i]),
		})
	}
	return hits, nil
}

func columnByName(columns []entity.Column, name string) entity.Column {
	for _, col := range columns {
		if col.Name() == name {
			return col
		}
	}
	return nil
}

func workspaceExpr(workspaceID string) string {
	return fmt.Sprintf(`%s == "%s"`, workspaceIDField, escapeExprString(workspaceID))
}

// escapeExprString guards the boolean-expression string literal.
func escapeExprString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
