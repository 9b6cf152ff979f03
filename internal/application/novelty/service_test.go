package novelty

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derril-tech/ai-patent-explorer/internal/testutil"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

type mockCorpus struct {
	getClaimFn  func(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error)
	getPatentFn func(ctx context.Context, patentID patent.ID) (*patent.PatentDocument, error)
}

func (m *mockCorpus) GetClaim(ctx context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error) {
	return m.getClaimFn(ctx, patentID, claimNumber)
}

func (m *mockCorpus) GetPatent(ctx context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
	return m.getPatentFn(ctx, patentID)
}

type mockAlignments struct {
	alignments []patent.Alignment
	err        error
}

func (m *mockAlignments) GetAlignments(context.Context, patent.ID, int) ([]patent.Alignment, error) {
	return m.alignments, m.err
}

type mockNoveltyStore struct {
	upserted  *patent.NoveltyScore
	upsertErr error
}

func (m *mockNoveltyStore) UpsertScore(_ context.Context, score *patent.NoveltyScore) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = score
	return nil
}

func (m *mockNoveltyStore) GetScore(context.Context, patent.ID, int) (*patent.NoveltyScore, error) {
	if m.upserted == nil {
		return nil, apperrors.New(apperrors.CodeScoreNotFound, "novelty score not found")
	}
	return m.upserted, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFn(ctx, text)
}

// constantEmbedder gives every text the same vector, so all pairwise
// similarities are 1.0.
func constantEmbedder() *mockEmbedder {
	return &mockEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}}
}

// orthogonalEmbedder gives every distinct text an orthogonal vector, so all
// pairwise similarities are 0.0.
func orthogonalEmbedder() *mockEmbedder {
	known := map[string][]float32{}
	next := 0
	return &mockEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		if vec, ok := known[text]; ok {
			return vec, nil
		}
		vec := make([]float32, 64)
		vec[next%64] = 1
		next++
		known[text] = vec
		return vec, nil
	}}
}

func singleClauseCorpus(doc *patent.PatentDocument) *mockCorpus {
	return &mockCorpus{
		getClaimFn: func(_ context.Context, patentID patent.ID, claimNumber int) (*patent.Claim, error) {
			return &patent.Claim{ID: "claim-t", PatentID: patentID, Number: claimNumber,
				Text: "receiving sensor data from a network"}, nil
		},
		getPatentFn: func(_ context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
			if doc != nil && patentID == doc.ID {
				return doc, nil
			}
			return nil, apperrors.New(apperrors.CodePatentNotFound, "patent not found")
		},
	}
}

func alignment(refPatent patent.ID, clauseIdx int, score float64, refText string) patent.Alignment {
	return patent.Alignment{
		TargetClaimID:       "claim-t",
		TargetClauseIndex:   clauseIdx,
		ReferencePatentID:   refPatent,
		ReferenceClaimID:    refPatent + "-c1",
		ReferenceClauseText: refText,
		SimilarityScore:     score,
	}
}

func newTestService(corpus CorpusStore, aligns AlignmentSource, store NoveltyStore, embedder Embedder) Service {
	return NewService(Deps{
		Corpus:     corpus,
		Alignments: aligns,
		Store:      store,
		Embedder:   embedder,
		Logger:     testutil.NewMockLogger(),
	})
}

func TestClauseConfidence(t *testing.T) {
	tests := []struct {
		name  string
		mean  float64
		count int
		want  patent.ConfidenceBand
	}{
		{"strong evidence", 0.75, 3, patent.ConfidenceHigh},
		{"high mean too few alignments", 0.75, 2, patent.ConfidenceMedium},
		{"moderate evidence", 0.6, 2, patent.ConfidenceMedium},
		{"moderate mean single alignment", 0.6, 1, patent.ConfidenceLow},
		{"weak mean", 0.4, 5, patent.ConfidenceLow},
		{"boundary mean not above threshold", 0.7, 3, patent.ConfidenceMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClauseConfidence(tt.mean, tt.count))
		})
	}
}

func TestClaimNovelty_WeightedMean(t *testing.T) {
	details := []patent.ClauseDetail{
		{ClauseIndex: 0, NoveltyScore: 0.8, Confidence: patent.ConfidenceHigh},
		{ClauseIndex: 1, NoveltyScore: 0.3, Confidence: patent.ConfidenceLow},
	}
	// (0.8*2.0*1.0 + 0.3*1.0*0.6) / (2.0*1.0 + 1.0*0.6)
	assert.InDelta(t, 1.78/2.6, ClaimNovelty(details), 1e-9)
}

func TestClaimNovelty_EmptyDetails(t *testing.T) {
	assert.InDelta(t, 1.0, ClaimNovelty(nil), 1e-9)
}

func TestBandFor(t *testing.T) {
	// novelty 0.7 vs 1-0.32=0.68: consistent scores.
	assert.Equal(t, patent.ConfidenceHigh, BandFor(0.7, 0.32))
	assert.Equal(t, patent.ConfidenceMedium, BandFor(0.7, 0.45))
	assert.Equal(t, patent.ConfidenceLow, BandFor(0.9, 0.9))
}

func TestScoreNovelty_FullFlow(t *testing.T) {
	target := &patent.PatentDocument{
		ID:           "US1",
		CPCCodes:     []string{"H04L12/28"},
		PriorityDate: testutil.Date(2015, 6, 1),
	}
	refDate := testutil.Date(2015, 6, 1)
	corpus := singleClauseCorpus(target)
	corpus.getPatentFn = func(_ context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
		switch patentID {
		case "US1":
			return target, nil
		case "R1", "R2":
			return &patent.PatentDocument{ID: patentID, FamilyID: "fam-1", PriorityDate: refDate}, nil
		}
		return nil, apperrors.New(apperrors.CodePatentNotFound, "patent not found")
	}
	aligns := &mockAlignments{alignments: []patent.Alignment{
		alignment("R1", 0, 0.80, "shared reference clause"),
		alignment("R2", 0, 0.75, "shared reference clause"),
		alignment("R1", 0, 0.72, "shared reference clause"),
	}}
	store := &mockNoveltyStore{}

	svc := newTestService(corpus, aligns, store, constantEmbedder())
	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	// Single clause: max similarity 0.80, mean 0.7567 over 3 alignments.
	require.Len(t, score.ClauseDetails, 1)
	detail := score.ClauseDetails[0]
	assert.InDelta(t, 0.20, detail.NoveltyScore, 1e-9)
	assert.InDelta(t, 0.80, detail.MaxSimilarity, 1e-9)
	assert.Equal(t, 3, detail.AlignmentCount)
	assert.Equal(t, patent.ConfidenceHigh, detail.Confidence)
	require.Len(t, detail.TopAlignments, 3)
	assert.InDelta(t, 0.80, detail.TopAlignments[0].SimilarityScore, 1e-9)

	// multiDoc=0.2 (2 refs), cocitation=1.0 (same family), coherence=1.0
	// (constant embedder), temporal=1.0 (same priority date):
	// 0.3*0.2 + 0.25 + 0.25 + 0.2 = 0.76.  Factors are both 1.0.
	assert.InDelta(t, 0.20, score.NoveltyScore, 1e-9)
	assert.InDelta(t, 0.76, score.ObviousnessScore, 1e-9)
	assert.InDelta(t, 1.0, score.CalibrationFactors.CPCFactor, 1e-9)
	assert.InDelta(t, 1.0, score.CalibrationFactors.DecadeFactor, 1e-9)
	// |0.20 - (1-0.76)| = 0.04
	assert.Equal(t, patent.ConfidenceHigh, score.ConfidenceBand)
	assert.False(t, score.ComputedAt.IsZero())

	// Persisted.
	assert.Equal(t, score, store.upserted)
}

func TestScoreNovelty_NoAlignments(t *testing.T) {
	target := &patent.PatentDocument{ID: "US1", PriorityDate: testutil.Date(2015, 6, 1)}
	store := &mockNoveltyStore{}
	svc := newTestService(singleClauseCorpus(target), &mockAlignments{}, store, constantEmbedder())

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	require.Len(t, score.ClauseDetails, 1)
	assert.InDelta(t, 1.0, score.ClauseDetails[0].NoveltyScore, 1e-9)
	assert.Equal(t, patent.ConfidenceHigh, score.ClauseDetails[0].Confidence)
	assert.Zero(t, score.ClauseDetails[0].AlignmentCount)

	assert.InDelta(t, 1.0, score.NoveltyScore, 1e-9)
	// All factors zero except temporal's no-dates fallback: 0.2*0.5.
	assert.InDelta(t, 0.10, score.ObviousnessScore, 1e-9)
	// |1.0 - 0.9| = 0.1, just outside the high band.
	assert.Equal(t, patent.ConfidenceMedium, score.ConfidenceBand)
}

func TestScoreNovelty_MultiDocPenaltyCapped(t *testing.T) {
	// Six unrelated, undated references: multiDoc caps at 0.5 instead of
	// 0.6, cocitation and coherence stay 0, temporal falls back to 0.5.
	refs := []patent.ID{"R1", "R2", "R3", "R4", "R5", "R6"}
	target := &patent.PatentDocument{ID: "US1", PriorityDate: testutil.Date(2015, 6, 1)}
	corpus := singleClauseCorpus(target)
	corpus.getPatentFn = func(_ context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
		if patentID == "US1" {
			return target, nil
		}
		return &patent.PatentDocument{ID: patentID}, nil
	}
	var alignments []patent.Alignment
	for i, ref := range refs {
		alignments = append(alignments, alignment(ref, 0, 0.3, "reference clause "+string(rune('a'+i))))
	}
	store := &mockNoveltyStore{}
	svc := newTestService(corpus, &mockAlignments{alignments: alignments}, store, orthogonalEmbedder())

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	// 0.3*0.5 + 0.25*0 + 0.25*0 + 0.2*0.5 = 0.25.
	assert.InDelta(t, 0.25, score.ObviousnessScore, 1e-9)
}

func TestScoreNovelty_MissingTargetPatent(t *testing.T) {
	store := &mockNoveltyStore{}
	svc := newTestService(singleClauseCorpus(nil), &mockAlignments{alignments: []patent.Alignment{
		alignment("R1", 0, 0.4, "reference clause"),
	}}, store, constantEmbedder())

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	// No metadata: neutral obviousness and neutral calibration.
	assert.InDelta(t, 0.5, score.ObviousnessScore, 1e-9)
	assert.InDelta(t, 1.0, score.CalibrationFactors.CPCFactor, 1e-9)
	assert.InDelta(t, 1.0, score.CalibrationFactors.DecadeFactor, 1e-9)
}

func TestScoreNovelty_CalibrationApplied(t *testing.T) {
	target := &patent.PatentDocument{
		ID:           "US1",
		CPCCodes:     []string{"G06N20/00"},
		PriorityDate: testutil.Date(2023, 1, 1),
	}
	store := &mockNoveltyStore{}
	svc := newTestService(singleClauseCorpus(target), &mockAlignments{alignments: []patent.Alignment{
		alignment("R1", 0, 0.5, "reference clause"),
	}}, store, constantEmbedder())

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	assert.InDelta(t, 1.2, score.CalibrationFactors.CPCFactor, 1e-9)
	assert.InDelta(t, 0.9, score.CalibrationFactors.DecadeFactor, 1e-9)
	// Raw clause novelty 0.5 scaled by 1.2*0.9.
	assert.InDelta(t, 0.54, score.NoveltyScore, 1e-9)
}

func TestScoreNovelty_TopAlignmentsCapped(t *testing.T) {
	var alignments []patent.Alignment
	scores := []float64{0.1, 0.9, 0.5, 0.7, 0.3}
	for i, s := range scores {
		alignments = append(alignments, alignment(patent.ID("R"+string(rune('1'+i))), 0, s, "reference clause"))
	}
	target := &patent.PatentDocument{ID: "US1"}
	corpus := singleClauseCorpus(target)
	corpus.getPatentFn = func(_ context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
		return &patent.PatentDocument{ID: patentID}, nil
	}
	store := &mockNoveltyStore{}
	svc := newTestService(corpus, &mockAlignments{alignments: alignments}, store, constantEmbedder())

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	require.Len(t, score.ClauseDetails, 1)
	top := score.ClauseDetails[0].TopAlignments
	require.Len(t, top, 3)
	assert.InDelta(t, 0.9, top[0].SimilarityScore, 1e-9)
	assert.InDelta(t, 0.7, top[1].SimilarityScore, 1e-9)
	assert.InDelta(t, 0.5, top[2].SimilarityScore, 1e-9)
}

func TestScoreNovelty_ClaimNotFound(t *testing.T) {
	corpus := &mockCorpus{
		getClaimFn: func(context.Context, patent.ID, int) (*patent.Claim, error) {
			return nil, apperrors.New(apperrors.CodeClaimNotFound, "claim not found")
		},
	}
	svc := newTestService(corpus, &mockAlignments{}, &mockNoveltyStore{}, constantEmbedder())

	_, err := svc.ScoreNovelty(context.Background(), "US1", 99)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeClaimNotFound))
}

func TestScoreNovelty_PersistFailure(t *testing.T) {
	target := &patent.PatentDocument{ID: "US1"}
	store := &mockNoveltyStore{upsertErr: errors.New("db down")}
	svc := newTestService(singleClauseCorpus(target), &mockAlignments{}, store, constantEmbedder())

	_, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNoveltyScoringFailed))
}

func TestScoreNovelty_EmbedFailureDegradesCoherence(t *testing.T) {
	target := &patent.PatentDocument{ID: "US1", PriorityDate: testutil.Date(2015, 6, 1)}
	corpus := singleClauseCorpus(target)
	corpus.getPatentFn = func(_ context.Context, patentID patent.ID) (*patent.PatentDocument, error) {
		if patentID == "US1" {
			return target, nil
		}
		return &patent.PatentDocument{ID: patentID}, nil
	}
	embedder := &mockEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("provider down")
	}}
	store := &mockNoveltyStore{}
	svc := newTestService(corpus, &mockAlignments{alignments: []patent.Alignment{
		alignment("R1", 0, 0.4, "first reference clause"),
		alignment("R2", 0, 0.3, "second reference clause"),
	}}, store, embedder)

	score, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	// Coherence degrades to 0: 0.3*0.2 + 0.25*0 + 0.25*0 + 0.2*0.5 = 0.16.
	assert.InDelta(t, 0.16, score.ObviousnessScore, 1e-9)
}

func TestGetScore_RoundTrip(t *testing.T) {
	target := &patent.PatentDocument{ID: "US1"}
	store := &mockNoveltyStore{}
	svc := newTestService(singleClauseCorpus(target), &mockAlignments{}, store, constantEmbedder())

	_, err := svc.GetScore(context.Background(), "US1", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeScoreNotFound))

	scored, err := svc.ScoreNovelty(context.Background(), "US1", 1)
	require.NoError(t, err)

	got, err := svc.GetScore(context.Background(), "US1", 1)
	require.NoError(t, err)
	assert.Equal(t, scored, got)
}
