package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// PlanRequest asks the server to expand a query.
type PlanRequest struct {
	WorkspaceID string              `json:"workspace_id"`
	Query       string              `json:"query"`
	Method      patent.SearchMethod `json:"method,omitempty"`
}

// Plan expands query into a retrieval plan.
func (c *Client) Plan(ctx context.Context, req PlanRequest) (*patent.PlannedQuery, error) {
	var resp struct {
		Plan *patent.PlannedQuery `json:"plan"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/queries/plan", req, &resp); err != nil {
		return nil, err
	}
	return resp.Plan, nil
}

// SearchRequest runs planning plus retrieval in one call.
type SearchRequest struct {
	WorkspaceID string               `json:"workspace_id"`
	Query       string               `json:"query"`
	Method      patent.SearchMethod  `json:"method,omitempty"`
	Filters     patent.SearchFilters `json:"filters,omitempty"`
	K           int                  `json:"k,omitempty"`
}

// Search returns ranked prior-art candidates for the query.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]patent.SearchResult, error) {
	var resp struct {
		Results []patent.SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// AlignRequest aligns one target claim against reference patents.
type AlignRequest struct {
	PatentID           patent.ID   `json:"patent_id"`
	ClaimNumber        int         `json:"claim_number"`
	ReferencePatentIDs []patent.ID `json:"reference_patent_ids"`
}

// AlignClaim computes and persists clause alignments for the claim.
func (c *Client) AlignClaim(ctx context.Context, req AlignRequest) ([]patent.Alignment, error) {
	var resp struct {
		Alignments []patent.Alignment `json:"alignments"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/alignments", req, &resp); err != nil {
		return nil, err
	}
	return resp.Alignments, nil
}

// GetAlignments returns the stored alignments for one claim.
func (c *Client) GetAlignments(ctx context.Context, patentID patent.ID, claimNumber int) ([]patent.Alignment, error) {
	var resp struct {
		Alignments []patent.Alignment `json:"alignments"`
	}
	path := fmt.Sprintf("/api/v1/alignments/%s/%d", url.PathEscape(string(patentID)), claimNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Alignments, nil
}

// NoveltyRequest scores one claim.
type NoveltyRequest struct {
	PatentID    patent.ID `json:"patent_id"`
	ClaimNumber int       `json:"claim_number"`
}

// ScoreNovelty computes and persists a calibrated novelty score.
func (c *Client) ScoreNovelty(ctx context.Context, req NoveltyRequest) (*patent.NoveltyScore, error) {
	var resp struct {
		Score *patent.NoveltyScore `json:"score"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/novelty", req, &resp); err != nil {
		return nil, err
	}
	return resp.Score, nil
}

// GetNovelty returns the stored score for one claim.
func (c *Client) GetNovelty(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	var resp struct {
		Score *patent.NoveltyScore `json:"score"`
	}
	path := fmt.Sprintf("/api/v1/novelty/%s/%d", url.PathEscape(string(patentID)), claimNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Score, nil
}

// Healthy reports whether the server's readiness probe passes.
func (c *Client) Healthy(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}
