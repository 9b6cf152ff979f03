package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/derril-tech/ai-patent-explorer/internal/application/align"
	"github.com/derril-tech/ai-patent-explorer/internal/application/novelty"
	"github.com/derril-tech/ai-patent-explorer/internal/application/queryplan"
	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// PipelineHandler exposes the four pipeline stages plus read endpoints for
// stored alignments and scores.
type PipelineHandler struct {
	planner    queryplan.Service
	retriever  retrieval.Service
	aligner    align.Service
	scorer     novelty.Service
	alignments novelty.AlignmentSource

	defaultTopK int
	maxTopK     int
}

// PipelineHandlerDeps carries the handler's collaborators.
type PipelineHandlerDeps struct {
	Planner    queryplan.Service
	Retriever  retrieval.Service
	Aligner    align.Service
	Scorer     novelty.Service
	Alignments novelty.AlignmentSource

	DefaultTopK int
	MaxTopK     int
}

// NewPipelineHandler builds the pipeline handler.
func NewPipelineHandler(deps PipelineHandlerDeps) *PipelineHandler {
	if deps.DefaultTopK <= 0 {
		deps.DefaultTopK = 20
	}
	return &PipelineHandler{
		planner:     deps.Planner,
		retriever:   deps.Retriever,
		aligner:     deps.Aligner,
		scorer:      deps.Scorer,
		alignments:  deps.Alignments,
		defaultTopK: deps.DefaultTopK,
		maxTopK:     deps.MaxTopK,
	}
}

type planRequest struct {
	WorkspaceID string              `json:"workspace_id"`
	Query       string              `json:"query"`
	Method      patent.SearchMethod `json:"method"`
}

// Plan handles POST /api/v1/queries/plan.
func (h *PipelineHandler) Plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid request body"))
		return
	}

	plan, err := h.planner.Plan(c.Request.Context(), req.WorkspaceID, req.Query, normalizeMethod(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

type searchRequest struct {
	WorkspaceID string               `json:"workspace_id"`
	Query       string               `json:"query"`
	Method      patent.SearchMethod  `json:"method"`
	Filters     patent.SearchFilters `json:"filters"`
	K           int                  `json:"k"`
}

// Search handles POST /api/v1/search.  A single request runs planning and
// retrieval back to back.
func (h *PipelineHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid request body"))
		return
	}

	method := normalizeMethod(req.Method)
	plan, err := h.planner.Plan(c.Request.Context(), req.WorkspaceID, req.Query, method)
	if err != nil {
		respondError(c, err)
		return
	}

	k := req.K
	if k <= 0 {
		k = h.defaultTopK
	}
	if h.maxTopK > 0 && k > h.maxTopK {
		k = h.maxTopK
	}

	results, err := h.retriever.Search(c.Request.Context(), plan, req.WorkspaceID, req.Filters, k, method)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

type alignClaimRequest struct {
	PatentID           patent.ID   `json:"patent_id"`
	ClaimNumber        int         `json:"claim_number"`
	ReferencePatentIDs []patent.ID `json:"reference_patent_ids"`
}

// Align handles POST /api/v1/alignments.
func (h *PipelineHandler) Align(c *gin.Context) {
	var req alignClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid request body"))
		return
	}
	if req.PatentID == "" {
		respondError(c, apperrors.InvalidParam("patent_id is required"))
		return
	}

	alignments, err := h.aligner.AlignClaim(c.Request.Context(), req.PatentID, req.ClaimNumber, req.ReferencePatentIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alignments": alignments, "count": len(alignments)})
}

// GetAlignments handles GET /api/v1/alignments/:patentID/:claimNumber.
func (h *PipelineHandler) GetAlignments(c *gin.Context) {
	patentID, claimNumber, err := claimParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	alignments, err := h.alignments.GetAlignments(c.Request.Context(), patentID, claimNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alignments": alignments, "count": len(alignments)})
}

type noveltyScoreRequest struct {
	PatentID    patent.ID `json:"patent_id"`
	ClaimNumber int       `json:"claim_number"`
}

// Novelty handles POST /api/v1/novelty.
func (h *PipelineHandler) Novelty(c *gin.Context) {
	var req noveltyScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid request body"))
		return
	}
	if req.PatentID == "" {
		respondError(c, apperrors.InvalidParam("patent_id is required"))
		return
	}

	score, err := h.scorer.ScoreNovelty(c.Request.Context(), req.PatentID, req.ClaimNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

// GetNovelty handles GET /api/v1/novelty/:patentID/:claimNumber.
func (h *PipelineHandler) GetNovelty(c *gin.Context) {
	patentID, claimNumber, err := claimParams(c)
	if err != nil {
		respondError(c, err)
		return
	}

	score, err := h.scorer.GetScore(c.Request.Context(), patentID, claimNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

func claimParams(c *gin.Context) (patent.ID, int, error) {
	patentID := c.Param("patentID")
	if patentID == "" {
		return "", 0, apperrors.InvalidParam("patentID is required")
	}
	claimNumber, err := strconv.Atoi(c.Param("claimNumber"))
	if err != nil || claimNumber <= 0 {
		return "", 0, apperrors.InvalidParam("claimNumber must be a positive integer")
	}
	return patent.ID(patentID), claimNumber, nil
}

func normalizeMethod(m patent.SearchMethod) patent.SearchMethod {
	if m == "" {
		return patent.MethodHybrid
	}
	return m
}
