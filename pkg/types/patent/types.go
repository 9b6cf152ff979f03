// Package patent defines the shared data model for the prior-art analysis
// pipeline: claims and clauses, planned queries, search results, clause
// alignments, and novelty scores.  Types here are plain data carriers; all
// behavior lives in internal/domain and internal/application.
package patent

import "time"

// ID is the canonical identifier type for patents, claims, and workspaces.
type ID = string

// Claim is a single numbered claim of a patent.  Claims are created at
// ingestion time and immutable once stored; downstream components reference
// them by ID only.
type Claim struct {
	ID            ID     `json:"id"`
	PatentID      ID     `json:"patent_id"`
	Number        int    `json:"number"`
	Text          string `json:"text"`
	IsIndependent bool   `json:"is_independent"`
}

// Clause is a sub-segment of a claim's text produced by segmentation.
// Clauses are never persisted independently; they are recomputed
// deterministically from Claim.Text.
type Clause struct {
	ClaimID ID     `json:"claim_id,omitempty"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// PatentDocument carries the searchable metadata of one patent in the corpus.
type PatentDocument struct {
	ID           ID         `json:"id"`
	WorkspaceID  ID         `json:"workspace_id"`
	Title        string     `json:"title"`
	Abstract     string     `json:"abstract"`
	Assignees    []string   `json:"assignees,omitempty"`
	CPCCodes     []string   `json:"cpc_codes,omitempty"`
	PriorityDate *time.Time `json:"priority_date,omitempty"`
	FamilyID     string     `json:"family_id,omitempty"`
}

// SearchMethod identifies which retrieval branch produced a SearchResult.
type SearchMethod string

const (
	MethodLexical SearchMethod = "lexical"
	MethodDense   SearchMethod = "dense"
	MethodHybrid  SearchMethod = "hybrid"
)

func (m SearchMethod) IsValid() bool {
	return m == MethodLexical || m == MethodDense || m == MethodHybrid
}

// SearchResult is one retrieval hit.  Ephemeral: produced per query, never
// persisted by the core.
type SearchResult struct {
	PatentID     ID           `json:"patent_id"`
	ClaimID      ID           `json:"claim_id,omitempty"`
	Score        float64      `json:"score"`
	RerankScore  float64      `json:"rerank_score,omitempty"`
	FinalScore   float64      `json:"final_score"`
	SourceMethod SearchMethod `json:"source_method"`
}

// SearchStrategy holds the branch weighting decided by the query planner.
// LexicalWeight + DenseWeight is always 1.0.
type SearchStrategy struct {
	LexicalWeight   float64 `json:"lexical_weight"`
	DenseWeight     float64 `json:"dense_weight"`
	UseSynonyms     bool    `json:"use_synonyms"`
	UseCPCExpansion bool    `json:"use_cpc_expansion"`
}

// PlannedQuery is the expanded form of a raw search query.
type PlannedQuery struct {
	OriginalText     string              `json:"original_text"`
	CleanedText      string              `json:"cleaned_text"`
	TechnicalTerms   []string            `json:"technical_terms"`
	SynonymMap       map[string][]string `json:"synonym_map"`
	CPCCodes         []string            `json:"cpc_codes"`
	ExpandedCPCCodes map[string][]string `json:"expanded_cpc_codes"`
	AlternativeQueries []string          `json:"alternative_queries"`
	Strategy         SearchStrategy      `json:"strategy"`
}

// SearchFilters narrows a retrieval request.  Empty criteria pass everything
// (fail-open); the date range is inclusive on both ends.
type SearchFilters struct {
	DateFrom  *time.Time `json:"date_from,omitempty"`
	DateTo    *time.Time `json:"date_to,omitempty"`
	CPCCodes  []string   `json:"cpc_codes,omitempty"`
	Assignees []string   `json:"assignees,omitempty"`
}

// AlignmentType classifies the quality of a clause match.
type AlignmentType string

const (
	AlignExactMatch         AlignmentType = "exact_match"
	AlignHighSimilarity     AlignmentType = "high_similarity"
	AlignModerateSimilarity AlignmentType = "moderate_similarity"
	AlignLowSimilarity      AlignmentType = "low_similarity"
	AlignNoMatch            AlignmentType = "no_match"
)

// OverlapDetails reports the token-level overlap between a target clause and
// its best-matching reference clause.
type OverlapDetails struct {
	JaccardSimilarity  float64  `json:"jaccard_similarity"`
	OverlappingTokens  []string `json:"overlapping_tokens"`
	OverlappingPhrases []string `json:"overlapping_phrases"`
	TargetUnique       []string `json:"target_unique"`
	ReferenceUnique    []string `json:"reference_unique"`
}

// Alignment is the recorded best-match pairing between one target clause and
// one reference claim's best clause.
type Alignment struct {
	TargetClaimID        ID             `json:"target_claim_id"`
	TargetClauseIndex    int            `json:"target_clause_index"`
	TargetClauseText     string         `json:"target_clause_text"`
	ReferencePatentID    ID             `json:"reference_patent_id"`
	ReferenceClaimID     ID             `json:"reference_claim_id"`
	ReferenceClauseIndex int            `json:"reference_clause_index"`
	ReferenceClauseText  string         `json:"reference_clause_text"`
	SimilarityScore      float64        `json:"similarity_score"`
	AlignmentType        AlignmentType  `json:"alignment_type"`
	OverlapDetails       OverlapDetails `json:"overlap_details"`
}

// ConfidenceBand is the qualitative reliability label for a score.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

func (b ConfidenceBand) IsValid() bool {
	return b == ConfidenceHigh || b == ConfidenceMedium || b == ConfidenceLow
}

// Multiplier returns the weighting multiplier applied to clause scores at
// claim-level aggregation.
func (b ConfidenceBand) Multiplier() float64 {
	switch b {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.8
	case ConfidenceLow:
		return 0.6
	default:
		return 0.8
	}
}

// CalibrationFactors records the technology-area and decade corrections
// applied to a score.
type CalibrationFactors struct {
	CPCFactor    float64 `json:"cpc_factor"`
	DecadeFactor float64 `json:"decade_factor"`
}

// ClauseDetail is the per-clause breakdown inside a NoveltyScore.
type ClauseDetail struct {
	ClauseIndex    int            `json:"clause_index"`
	ClauseText     string         `json:"clause_text"`
	NoveltyScore   float64        `json:"novelty_score"`
	MaxSimilarity  float64        `json:"max_similarity"`
	AlignmentCount int            `json:"alignment_count"`
	Confidence     ConfidenceBand `json:"confidence"`
	TopAlignments  []Alignment    `json:"top_alignments,omitempty"`
}

// NoveltyScore is the calibrated claim-level result of one scoring run.
// Exactly one row exists per (patent, claim); recomputation overwrites it.
type NoveltyScore struct {
	PatentID           ID                 `json:"patent_id"`
	ClaimNumber        int                `json:"claim_number"`
	NoveltyScore       float64            `json:"novelty_score"`
	ObviousnessScore   float64            `json:"obviousness_score"`
	ConfidenceBand     ConfidenceBand     `json:"confidence_band"`
	CalibrationFactors CalibrationFactors `json:"calibration_factors"`
	ClauseDetails      []ClauseDetail     `json:"clause_details"`
	ComputedAt         time.Time          `json:"computed_at"`
}
