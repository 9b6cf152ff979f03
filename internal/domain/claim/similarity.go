package claim

import (
	"math"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// LexicalSimilarity computes the TF-IDF cosine between two texts over their
// shared 1- to 3-gram vocabulary.  Because the vocabulary is fitted on just
// this pair with a minimum document frequency of two, only n-grams present
// in BOTH texts survive, every surviving n-gram has the same document
// frequency, and the score reduces to the cosine of the raw count vectors
// over that shared vocabulary.  Returns 0 when the texts share no n-grams.
func LexicalSimilarity(a, b string) float64 {
	countsA := ngramCounts(a)
	countsB := ngramCounts(b)

	var dot, normA, normB float64
	for gram, ca := range countsA {
		cb, shared := countsB[gram]
		if !shared {
			continue
		}
		dot += float64(ca) * float64(cb)
		normA += float64(ca) * float64(ca)
		normB += float64(cb) * float64(cb)
	}

	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func ngramCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, gram := range NGrams(text, 1, 3) {
		counts[gram]++
	}
	return counts
}

// CosineSimilarity computes the cosine between two dense vectors.  Returns 0
// for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarity weights for combining the dense and lexical channels.
const (
	denseWeight   = 0.6
	lexicalWeight = 0.4
)

// CombinedSimilarity blends a dense embedding cosine with a lexical TF-IDF
// cosine, weighted 0.6/0.4.
func CombinedSimilarity(dense, lexical float64) float64 {
	return denseWeight*dense + lexicalWeight*lexical
}

// AlignmentTypeForScore bands a combined similarity score into an alignment
// type.
func AlignmentTypeForScore(score float64) patent.AlignmentType {
	switch {
	case score >= 0.8:
		return patent.AlignExactMatch
	case score >= 0.6:
		return patent.AlignHighSimilarity
	case score >= 0.4:
		return patent.AlignModerateSimilarity
	case score >= 0.2:
		return patent.AlignLowSimilarity
	default:
		return patent.AlignNoMatch
	}
}
