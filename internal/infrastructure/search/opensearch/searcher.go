package opensearch

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// searchAPI is the slice of the OpenSearch client the searcher uses.
type searchAPI interface {
	Search(ctx context.Context, req *opensearchapi.SearchReq) (*opensearchapi.SearchResp, error)
}

// Searcher implements the lexical retrieval branch against an OpenSearch
// index.
type Searcher struct {
	api    searchAPI
	index  string
	logger logging.Logger
}

// NewSearcher builds a lexical searcher over the configured index.
func NewSearcher(client *opensearchapi.Client, indexPrefix string, log logging.Logger) *Searcher {
	return &Searcher{
		api:    client,
		index:  indexPrefix + "patents",
		logger: log.Named("opensearch_search"),
	}
}

// indexedDoc is the stored form of one patent in the index.
type indexedDoc struct {
	PatentID     patent.ID  `json:"patent_id"`
	WorkspaceID  patent.ID  `json:"workspace_id"`
	Title        string     `json:"title"`
	Abstract     string     `json:"abstract"`
	Assignees    []string   `json:"assignees,omitempty"`
	CPCCodes     []string   `json:"cpc_codes,omitempty"`
	PriorityDate *time.Time `json:"priority_date,omitempty"`
	FamilyID     string     `json:"family_id,omitempty"`
	SearchText   string     `json:"search_text"`
}

// Search runs a match query over the workspace's documents and returns
// candidates with scores normalized to [0,1] by the best hit, mirroring the
// in-process BM25 backend so hybrid merging treats both branches alike.
func (s *Searcher) Search(ctx context.Context, query, workspaceID string, k int) ([]retrieval.Candidate, error) {
	body, err := buildSearchBody(query, workspaceID, k)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "failed to build search request")
	}

	resp, err := s.api.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index},
		Body:    strings.NewReader(body),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "opensearch query failed")
	}

	return convertHits(resp)
}

func buildSearchBody(query, workspaceID string, k int) (string, error) {
	type m = map[string]interface{}
	body := m{
		"size": k,
		"query": m{
			"bool": m{
				"must": []m{
					{"match": m{"search_text": m{"query": query}}},
				},
				"filter": []m{
					{"term": m{"workspace_id": workspaceID}},
				},
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func convertHits(resp *opensearchapi.SearchResp) ([]retrieval.Candidate, error) {
	if resp == nil || len(resp.Hits.Hits) == 0 {
		return nil, nil
	}

	maxScore := float64(resp.Hits.MaxScore)

	candidates := make([]retrieval.Candidate, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var doc indexedDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeSerialization, "failed to decode search hit")
		}

		score := float64(hit.Score)
		if maxScore > 0 {
			score /= maxScore
		}
		candidates = append(candidates, retrieval.Candidate{
			Doc: patent.PatentDocument{
				ID:           doc.PatentID,
				WorkspaceID:  doc.WorkspaceID,
				Title:        doc.Title,
				Abstract:     doc.Abstract,
				Assignees:    doc.Assignees,
				CPCCodes:     doc.CPCCodes,
				PriorityDate: doc.PriorityDate,
				FamilyID:     doc.FamilyID,
			},
			Score: score,
		})
	}
	return candidates, nil
}
