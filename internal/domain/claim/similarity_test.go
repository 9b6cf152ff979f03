package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func TestLexicalSimilarity_Identical(t *testing.T) {
	text := "receiving a data stream from wireless sensors"
	assert.InDelta(t, 1.0, LexicalSimilarity(text, text), 1e-9)
}

func TestLexicalSimilarity_Disjoint(t *testing.T) {
	assert.Zero(t, LexicalSimilarity("chemical catalyst reaction", "wireless network antenna"))
}

func TestLexicalSimilarity_PartialOverlap(t *testing.T) {
	sim := LexicalSimilarity(
		"receiving a data stream from wireless sensors",
		"transmitting a data stream over wireless channels",
	)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}

func TestLexicalSimilarity_Empty(t *testing.T) {
	assert.Zero(t, LexicalSimilarity("", "anything at all here"))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestCombinedSimilarity(t *testing.T) {
	assert.InDelta(t, 0.6, CombinedSimilarity(1.0, 0.0), 1e-9)
	assert.InDelta(t, 0.4, CombinedSimilarity(0.0, 1.0), 1e-9)
	assert.InDelta(t, 0.52, CombinedSimilarity(0.6, 0.4), 1e-9)
}

func TestAlignmentTypeForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  patent.AlignmentType
	}{
		{0.95, patent.AlignExactMatch},
		{0.8, patent.AlignExactMatch},
		{0.79, patent.AlignHighSimilarity},
		{0.6, patent.AlignHighSimilarity},
		{0.45, patent.AlignModerateSimilarity},
		{0.2, patent.AlignLowSimilarity},
		{0.1, patent.AlignNoMatch},
		{0, patent.AlignNoMatch},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignmentTypeForScore(tt.score), "score %v", tt.score)
	}
}
