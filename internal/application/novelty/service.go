// Package novelty turns a claim's alignment records into a calibrated
// novelty/obviousness score with a confidence band.
package novelty

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/derril-tech/ai-patent-explorer/internal/domain/claim"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

const (
	// Obviousness factor weights.
	multiDocWeight       = 0.30
	cocitationWeight     = 0.25
	topicCoherenceWeight = 0.25
	temporalWeight       = 0.20

	multiDocPenaltyPerRef = 0.1
	multiDocPenaltyCap    = 0.5

	// Reference priority dates further apart than this contribute zero
	// temporal proximity.
	temporalHorizonDays = 3650

	minSharedCPCForRelation = 2

	defaultMaxPairwiseComparisons = 200
	defaultTopAlignmentsPerClause = 3
)

// CorpusStore loads the target claim and patent metadata for calibration
// and obviousness factors.
type CorpusStore interface {
	GetClaim(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error)
	GetPatent(ctx context.Context, patentID patent.ID) (*patent.PatentDocument, error)
}

// AlignmentSource supplies the alignment records produced for a claim.
type AlignmentSource interface {
	GetAlignments(ctx context.Context, patentID patent.ID, claimNumber int) ([]patent.Alignment, error)
}

// NoveltyStore persists scores.  UpsertScore overwrites any previous score
// for the same (patent, claim) pair.
type NoveltyStore interface {
	UpsertScore(ctx context.Context, score *patent.NoveltyScore) error
	GetScore(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error)
}

// Embedder computes dense vectors for topic-coherence estimation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service scores claims.
type Service interface {
	// ScoreNovelty loads the claim and its alignments, computes and
	// persists a calibrated score, and returns it.
	ScoreNovelty(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error)

	// GetScore returns the stored score for a claim.
	GetScore(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error)
}

// Deps carries the service's collaborators.
type Deps struct {
	Corpus     CorpusStore
	Alignments AlignmentSource
	Store      NoveltyStore
	Embedder   Embedder
	Logger     logging.Logger
	Metrics    *prometheus.PipelineMetrics

	// MaxPairwiseComparisons bounds the O(n²) cocitation and
	// topic-coherence loops.  Zero means the default.
	MaxPairwiseComparisons int
	// TopAlignmentsPerClause bounds the per-clause alignment detail.
	// Zero means the default.
	TopAlignmentsPerClause int
}

type service struct {
	deps Deps
}

// NewService wires a novelty scoring service.
func NewService(deps Deps) Service {
	deps.Logger = deps.Logger.Named("novelty")
	if deps.MaxPairwiseComparisons <= 0 {
		deps.MaxPairwiseComparisons = defaultMaxPairwiseComparisons
	}
	if deps.TopAlignmentsPerClause <= 0 {
		deps.TopAlignmentsPerClause = defaultTopAlignmentsPerClause
	}
	return &service{deps: deps}
}

func (s *service) ScoreNovelty(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	start := time.Now()

	target, err := s.deps.Corpus.GetClaim(ctx, patentID, claimNumber)
	if err != nil {
		s.deps.Metrics.ObserveNovelty("error", time.Since(start).Seconds())
		return nil, err
	}

	alignments, err := s.deps.Alignments.GetAlignments(ctx, patentID, claimNumber)
	if err != nil {
		s.deps.Metrics.ObserveNovelty("error", time.Since(start).Seconds())
		return nil, apperrors.Wrap(err, apperrors.CodeNoveltyScoringFailed, "failed to load alignments")
	}

	details := s.clauseDetails(target, alignments)
	claimNovelty := ClaimNovelty(details)

	targetDoc := s.patentOrNil(ctx, patentID)
	obviousness := s.obviousness(ctx, targetDoc, alignments)

	factors := patent.CalibrationFactors{CPCFactor: 1.0, DecadeFactor: 1.0}
	if targetDoc != nil {
		factors.CPCFactor = CPCFactor(targetDoc.CPCCodes)
		factors.DecadeFactor = DecadeFactor(targetDoc.PriorityDate)
	}

	score := &patent.NoveltyScore{
		PatentID:           patentID,
		ClaimNumber:        claimNumber,
		NoveltyScore:       claimNovelty * factors.CPCFactor * factors.DecadeFactor,
		ObviousnessScore:   obviousness * factors.CPCFactor * factors.DecadeFactor,
		CalibrationFactors: factors,
		ClauseDetails:      details,
		ComputedAt:         time.Now().UTC(),
	}
	score.ConfidenceBand = BandFor(score.NoveltyScore, score.ObviousnessScore)

	if err := s.deps.Store.UpsertScore(ctx, score); err != nil {
		s.deps.Metrics.ObserveNovelty("error", time.Since(start).Seconds())
		return nil, apperrors.Wrap(err, apperrors.CodeNoveltyScoringFailed, "failed to persist novelty score")
	}

	s.deps.Metrics.ObserveNovelty("ok", time.Since(start).Seconds())
	s.deps.Logger.Info("claim scored",
		logging.String("patent_id", string(patentID)),
		logging.Int("claim_number", claimNumber),
		logging.Float64("novelty", score.NoveltyScore),
		logging.Float64("obviousness", score.ObviousnessScore),
		logging.String("band", string(score.ConfidenceBand)),
	)
	return score, nil
}

func (s *service) GetScore(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.NoveltyScore, error) {
	return s.deps.Store.GetScore(ctx, patentID, claimNumber)
}

// clauseDetails groups alignments by target clause and scores each clause.
// Clauses of the segmented claim with no alignments score 1.0 with high
// confidence: no prior-art evidence means maximal novelty, flagged for
// review through the zero alignment count.
func (s *service) clauseDetails(target *patent.Claim, alignments []patent.Alignment) []patent.ClauseDetail {
	clauses := claim.Segment(target.Text)

	byClause := make(map[int][]patent.Alignment)
	for _, a := range alignments {
		byClause[a.TargetClauseIndex] = append(byClause[a.TargetClauseIndex], a)
	}

	details := make([]patent.ClauseDetail, 0, len(clauses))
	for idx, text := range clauses {
		clauseAligns := byClause[idx]
		if len(clauseAligns) == 0 {
			details = append(details, patent.ClauseDetail{
				ClauseIndex:  idx,
				ClauseText:   text,
				NoveltyScore: 1.0,
				Confidence:   patent.ConfidenceHigh,
			})
			continue
		}

		var maxSim, sumSim float64
		for _, a := range clauseAligns {
			sumSim += a.SimilarityScore
			if a.SimilarityScore > maxSim {
				maxSim = a.SimilarityScore
			}
		}
		meanSim := sumSim / float64(len(clauseAligns))

		top := make([]patent.Alignment, len(clauseAligns))
		copy(top, clauseAligns)
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].SimilarityScore > top[j].SimilarityScore
		})
		if len(top) > s.deps.TopAlignmentsPerClause {
			top = top[:s.deps.TopAlignmentsPerClause]
		}

		details = append(details, patent.ClauseDetail{
			ClauseIndex:    idx,
			ClauseText:     text,
			NoveltyScore:   1.0 - maxSim,
			MaxSimilarity:  maxSim,
			AlignmentCount: len(clauseAligns),
			Confidence:     ClauseConfidence(meanSim, len(clauseAligns)),
			TopAlignments:  top,
		})
	}
	return details
}

// ClauseConfidence labels a clause's score by the quality of its evidence.
func ClauseConfidence(meanSimilarity float64, alignmentCount int) patent.ConfidenceBand {
	switch {
	case meanSimilarity > 0.7 && alignmentCount >= 3:
		return patent.ConfidenceHigh
	case meanSimilarity > 0.5 && alignmentCount >= 2:
		return patent.ConfidenceMedium
	default:
		return patent.ConfidenceLow
	}
}

// ClaimNovelty aggregates clause scores into one claim-level score.  The
// preamble (clause 0) weighs double; each clause's weight is scaled by its
// confidence multiplier.  An empty detail list scores 1.0.
func ClaimNovelty(details []patent.ClauseDetail) float64 {
	if len(details) == 0 {
		return 1.0
	}

	var weightedSum, totalWeight float64
	for _, d := range details {
		weight := 1.0
		if d.ClauseIndex == 0 {
			weight = 2.0
		}
		weight *= d.Confidence.Multiplier()
		weightedSum += d.NoveltyScore * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 1.0
	}
	return weightedSum / totalWeight
}

// BandFor labels the result by the consistency of the two calibrated
// scores: a novel claim should not also look obvious.
func BandFor(noveltyScore, obviousnessScore float64) patent.ConfidenceBand {
	diff := math.Abs(noveltyScore - (1.0 - obviousnessScore))
	switch {
	case diff < 0.1:
		return patent.ConfidenceHigh
	case diff < 0.2:
		return patent.ConfidenceMedium
	default:
		return patent.ConfidenceLow
	}
}

// obviousness estimates how obvious the claim is from the structure of its
// prior-art evidence.  Factor computation failures degrade to their neutral
// value instead of failing the request.
func (s *service) obviousness(ctx context.Context, target *patent.PatentDocument, alignments []patent.Alignment) float64 {
	if target == nil {
		return 0.5
	}

	refIDs := uniqueReferenceIDs(alignments)
	refDocs := s.loadReferenceDocs(ctx, refIDs)

	multiDoc := math.Min(float64(len(refIDs))*multiDocPenaltyPerRef, multiDocPenaltyCap)
	cocitation := s.cocitation(refIDs, refDocs)
	coherence := s.topicCoherence(ctx, alignments)
	temporal := s.temporalProximity(target, refIDs, refDocs)

	score := multiDocWeight*multiDoc +
		cocitationWeight*cocitation +
		topicCoherenceWeight*coherence +
		temporalWeight*temporal
	return math.Min(math.Max(score, 0.0), 1.0)
}

// cocitation is the fraction of reference-patent pairs that look related:
// same family, overlapping assignees, or at least two shared CPC codes.
func (s *service) cocitation(refIDs []patent.ID, docs map[patent.ID]*patent.PatentDocument) float64 {
	if len(refIDs) < 2 {
		return 0.0
	}

	var related, pairs int
	for i := 0; i < len(refIDs) && pairs < s.deps.MaxPairwiseComparisons; i++ {
		for j := i + 1; j < len(refIDs) && pairs < s.deps.MaxPairwiseComparisons; j++ {
			pairs++
			if patentsRelated(docs[refIDs[i]], docs[refIDs[j]]) {
				related++
			}
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return float64(related) / float64(pairs)
}

func patentsRelated(a, b *patent.PatentDocument) bool {
	if a == nil || b == nil {
		return false
	}
	if a.FamilyID != "" && a.FamilyID == b.FamilyID {
		return true
	}
	if stringSetIntersection(a.Assignees, b.Assignees) > 0 {
		return true
	}
	return stringSetIntersection(a.CPCCodes, b.CPCCodes) >= minSharedCPCForRelation
}

func stringSetIntersection(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	var n int
	seen := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

// topicCoherence is the mean pairwise embedding similarity over the aligned
// reference clause texts.  High coherence means the prior art clusters
// around one topic, which supports an obviousness combination.
func (s *service) topicCoherence(ctx context.Context, alignments []patent.Alignment) float64 {
	if len(alignments) < 2 {
		return 0.0
	}

	texts := make([]string, len(alignments))
	for i, a := range alignments {
		texts[i] = a.ReferenceClauseText
	}

	// Embed each distinct text once; a failed embed zeroes every pair
	// that touches it.
	vectors := make(map[string][]float32, len(texts))
	for _, text := range texts {
		if _, done := vectors[text]; done {
			continue
		}
		vec, err := s.deps.Embedder.Embed(ctx, text)
		if err != nil {
			s.deps.Metrics.ObserveProviderFailure("embed")
			s.deps.Logger.Warn("reference clause embedding failed", logging.Err(err))
			vec = nil
		}
		vectors[text] = vec
	}

	var sum float64
	var pairs int
	for i := 0; i < len(texts) && pairs < s.deps.MaxPairwiseComparisons; i++ {
		for j := i + 1; j < len(texts) && pairs < s.deps.MaxPairwiseComparisons; j++ {
			pairs++
			sum += claim.CosineSimilarity(vectors[texts[i]], vectors[texts[j]])
		}
	}
	if pairs == 0 {
		return 0.0
	}
	return sum / float64(pairs)
}

// temporalProximity maps the mean date gap between the target and its
// references onto [0,1]: references filed close in time score high.
func (s *service) temporalProximity(target *patent.PatentDocument, refIDs []patent.ID, docs map[patent.ID]*patent.PatentDocument) float64 {
	if target.PriorityDate == nil {
		return 0.5
	}

	var sumDays float64
	var dated int
	for _, id := range refIDs {
		doc := docs[id]
		if doc == nil || doc.PriorityDate == nil {
			continue
		}
		diff := target.PriorityDate.Sub(*doc.PriorityDate).Hours() / 24
		sumDays += math.Abs(diff)
		dated++
	}
	if dated == 0 {
		return 0.5
	}
	meanDays := sumDays / float64(dated)
	return math.Max(0.0, 1.0-meanDays/temporalHorizonDays)
}

func (s *service) loadReferenceDocs(ctx context.Context, refIDs []patent.ID) map[patent.ID]*patent.PatentDocument {
	docs := make(map[patent.ID]*patent.PatentDocument, len(refIDs))
	for _, id := range refIDs {
		doc, err := s.deps.Corpus.GetPatent(ctx, id)
		if err != nil {
			s.deps.Logger.Warn("reference patent lookup failed",
				logging.String("patent_id", string(id)), logging.Err(err))
			continue
		}
		docs[id] = doc
	}
	return docs
}

func (s *service) patentOrNil(ctx context.Context, patentID patent.ID) *patent.PatentDocument {
	doc, err := s.deps.Corpus.GetPatent(ctx, patentID)
	if err != nil {
		s.deps.Logger.Warn("target patent lookup failed",
			logging.String("patent_id", string(patentID)), logging.Err(err))
		return nil
	}
	return doc
}

// uniqueReferenceIDs returns the distinct reference patent IDs in first-seen
// order, which keeps the pairwise loops deterministic.
func uniqueReferenceIDs(alignments []patent.Alignment) []patent.ID {
	seen := make(map[patent.ID]struct{}, len(alignments))
	var ids []patent.ID
	for _, a := range alignments {
		if _, ok := seen[a.ReferencePatentID]; ok {
			continue
		}
		seen[a.ReferencePatentID] = struct{}{}
		ids = append(ids, a.ReferencePatentID)
	}
	return ids
}
