// Package align performs per-clause alignment between a target claim and a
// set of reference claims: segmentation, pairwise lexical and dense
// similarity, best-match selection, and overlap analysis.
package align

import (
	"context"
	"sort"
	"time"

	"github.com/derril-tech/ai-patent-explorer/internal/domain/claim"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// SimilarityProvider computes the two similarity channels.  Implementations
// may be remote; the aligner degrades any single failed comparison to 0.0
// instead of failing the request.
type SimilarityProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	LexicalSimilarity(ctx context.Context, a, b string) (float64, error)
}

// CorpusStore loads claims for alignment.
type CorpusStore interface {
	GetClaim(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error)
	GetClaimsByPatent(ctx context.Context, patentID patent.ID) ([]patent.Claim, error)
}

// AlignmentStore persists alignment results.  ReplaceAlignments is
// idempotent for a (patent, claim) pair: re-running an alignment overwrites
// the previous results.
type AlignmentStore interface {
	ReplaceAlignments(ctx context.Context, patentID patent.ID, claimNumber int, alignments []patent.Alignment) error
	GetAlignments(ctx context.Context, patentID patent.ID, claimNumber int) ([]patent.Alignment, error)
}

// BestMatch is the winning reference clause for one target clause within a
// single reference claim.
type BestMatch struct {
	ClauseIndex  int
	ClauseText   string
	Combined     float64
	DenseScore   float64
	LexicalScore float64
	Type         patent.AlignmentType
	Overlap      patent.OverlapDetails
}

// Service aligns claims clause by clause.
type Service interface {
	// AlignClause finds the best match for targetClause among candidates.
	// Returns nil when candidates is empty.
	AlignClause(ctx context.Context, targetClause string, candidates []patent.Clause) (*BestMatch, error)

	// AlignClaim segments the claim (patentID, claimNumber), aligns every
	// clause against every reference claim of referencePatentIDs, persists
	// the results, and returns them.
	AlignClaim(ctx context.Context, patentID patent.ID, claimNumber int, referencePatentIDs []patent.ID) ([]patent.Alignment, error)
}

// Deps carries the service's collaborators.
type Deps struct {
	Provider SimilarityProvider
	Corpus   CorpusStore
	Store    AlignmentStore
	Logger   logging.Logger
	Metrics  *prometheus.PipelineMetrics
}

type service struct {
	deps Deps
}

// NewService wires an alignment service.
func NewService(deps Deps) Service {
	deps.Logger = deps.Logger.Named("align")
	return &service{deps: deps}
}

func (s *service) AlignClause(ctx context.Context, targetClause string, candidates []patent.Clause) (*BestMatch, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	targetVec := s.embedOrNil(ctx, targetClause)

	// Best starts at 0.0: a candidate whose combined score never exceeds
	// zero (embedding cosine can be negative) produces no match at all.
	var best *BestMatch
	bestScore := 0.0
	for _, cand := range candidates {
		dense := s.denseSimilarity(ctx, targetVec, cand.Text)
		lexical := s.lexicalSimilarity(ctx, targetClause, cand.Text)
		combined := claim.CombinedSimilarity(dense, lexical)

		// Strict inequality keeps the first-seen candidate on ties.
		if combined <= bestScore {
			continue
		}
		bestScore = combined
		best = &BestMatch{
			ClauseIndex:  cand.Index,
			ClauseText:   cand.Text,
			Combined:     combined,
			DenseScore:   dense,
			LexicalScore: lexical,
			Type:         claim.AlignmentTypeForScore(combined),
			Overlap:      claim.AnalyzeOverlap(targetClause, cand.Text),
		}
	}
	return best, nil
}

func (s *service) AlignClaim(ctx context.Context, patentID patent.ID, claimNumber int, referencePatentIDs []patent.ID) ([]patent.Alignment, error) {
	start := time.Now()

	target, err := s.deps.Corpus.GetClaim(ctx, patentID, claimNumber)
	if err != nil {
		s.deps.Metrics.ObserveAlignment("error", time.Since(start).Seconds())
		return nil, err
	}

	targetClauses := claim.Segment(target.Text)

	references, err := s.loadReferences(ctx, referencePatentIDs)
	if err != nil {
		s.deps.Metrics.ObserveAlignment("error", time.Since(start).Seconds())
		return nil, err
	}

	var alignments []patent.Alignment
	for clauseIdx, clauseText := range targetClauses {
		var clauseAlignments []patent.Alignment
		for _, ref := range references {
			best, err := s.AlignClause(ctx, clauseText, ref.clauses)
			if err != nil {
				return nil, err
			}
			if best == nil {
				continue
			}
			clauseAlignments = append(clauseAlignments, patent.Alignment{
				TargetClaimID:        target.ID,
				TargetClauseIndex:    clauseIdx,
				TargetClauseText:     clauseText,
				ReferencePatentID:    ref.patentID,
				ReferenceClaimID:     ref.claimID,
				ReferenceClauseIndex: best.ClauseIndex,
				ReferenceClauseText:  best.ClauseText,
				SimilarityScore:      best.Combined,
				AlignmentType:        best.Type,
				OverlapDetails:       best.Overlap,
			})
		}

		sort.SliceStable(clauseAlignments, func(i, j int) bool {
			return clauseAlignments[i].SimilarityScore > clauseAlignments[j].SimilarityScore
		})
		alignments = append(alignments, clauseAlignments...)
	}

	if err := s.deps.Store.ReplaceAlignments(ctx, patentID, claimNumber, alignments); err != nil {
		s.deps.Metrics.ObserveAlignment("error", time.Since(start).Seconds())
		return nil, apperrors.Wrap(err, apperrors.CodeAlignmentFailed, "failed to persist alignments")
	}

	s.deps.Metrics.ObserveAlignment("ok", time.Since(start).Seconds())
	s.deps.Logger.Info("claim aligned",
		logging.String("patent_id", string(patentID)),
		logging.Int("claim_number", claimNumber),
		logging.Int("clauses", len(targetClauses)),
		logging.Int("alignments", len(alignments)),
	)
	return alignments, nil
}

// referenceClaim is a pre-segmented reference claim.
type referenceClaim struct {
	patentID patent.ID
	claimID  patent.ID
	clauses  []patent.Clause
}

func (s *service) loadReferences(ctx context.Context, patentIDs []patent.ID) ([]referenceClaim, error) {
	var references []referenceClaim
	for _, refID := range patentIDs {
		claims, err := s.deps.Corpus.GetClaimsByPatent(ctx, refID)
		if err != nil {
			return nil, err
		}
		for _, c := range claims {
			segments := claim.Segment(c.Text)
			clauses := make([]patent.Clause, len(segments))
			for i, text := range segments {
				clauses[i] = patent.Clause{ClaimID: c.ID, Index: i, Text: text}
			}
			references = append(references, referenceClaim{
				patentID: refID,
				claimID:  c.ID,
				clauses:  clauses,
			})
		}
	}
	return references, nil
}

// embedOrNil embeds text, returning nil on provider failure so that every
// dense comparison against this vector degrades to 0.
func (s *service) embedOrNil(ctx context.Context, text string) []float32 {
	vec, err := s.deps.Provider.Embed(ctx, text)
	if err != nil {
		s.deps.Metrics.ObserveProviderFailure("embed")
		s.deps.Logger.Warn("target clause embedding failed", logging.Err(err))
		return nil
	}
	return vec
}

func (s *service) denseSimilarity(ctx context.Context, targetVec []float32, candidateText string) float64 {
	if targetVec == nil {
		return 0
	}
	vec, err := s.deps.Provider.Embed(ctx, candidateText)
	if err != nil {
		s.deps.Metrics.ObserveProviderFailure("embed")
		return 0
	}
	return claim.CosineSimilarity(targetVec, vec)
}

func (s *service) lexicalSimilarity(ctx context.Context, a, b string) float64 {
	sim, err := s.deps.Provider.LexicalSimilarity(ctx, a, b)
	if err != nil {
		s.deps.Metrics.ObserveProviderFailure("lexical")
		return 0
	}
	return sim
}
