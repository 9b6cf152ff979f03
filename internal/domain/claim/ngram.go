package claim

import (
	"sort"
	"strings"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// maxOverlappingPhrases caps how many shared phrases AnalyzeOverlap reports.
const maxOverlappingPhrases = 10

// NGrams returns every space-joined n-gram of the text's tokens for n in
// [minN, maxN].
func NGrams(text string, minN, maxN int) []string {
	tokens := Tokenize(text)
	var grams []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// OverlappingPhrases returns the 2- to 4-gram phrases shared by both texts,
// longest first, capped at ten.
func OverlappingPhrases(target, reference string) []string {
	targetGrams := NGrams(target, 2, 4)
	refSet := make(map[string]struct{})
	for _, g := range NGrams(reference, 2, 4) {
		refSet[g] = struct{}{}
	}

	seen := make(map[string]struct{})
	var common []string
	for _, g := range targetGrams {
		if _, ok := refSet[g]; !ok {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		common = append(common, g)
	}

	sort.Slice(common, func(i, j int) bool {
		if len(common[i]) != len(common[j]) {
			return len(common[i]) > len(common[j])
		}
		return common[i] < common[j]
	})

	if len(common) > maxOverlappingPhrases {
		common = common[:maxOverlappingPhrases]
	}
	return common
}

// AnalyzeOverlap computes token-level overlap between a target clause and a
// reference clause: Jaccard similarity over distinct tokens, the shared and
// unique token lists, and the shared phrases.
func AnalyzeOverlap(target, reference string) patent.OverlapDetails {
	targetSet := TokenSet(target)
	refSet := TokenSet(reference)

	var overlapping, targetUnique, refUnique []string
	union := len(refSet)
	for tok := range targetSet {
		if _, ok := refSet[tok]; ok {
			overlapping = append(overlapping, tok)
		} else {
			targetUnique = append(targetUnique, tok)
			union++
		}
	}
	for tok := range refSet {
		if _, ok := targetSet[tok]; !ok {
			refUnique = append(refUnique, tok)
		}
	}

	jaccard := 0.0
	if union > 0 {
		jaccard = float64(len(overlapping)) / float64(union)
	}

	sort.Strings(overlapping)
	sort.Strings(targetUnique)
	sort.Strings(refUnique)

	return patent.OverlapDetails{
		JaccardSimilarity:  jaccard,
		OverlappingTokens:  overlapping,
		OverlappingPhrases: OverlappingPhrases(target, reference),
		TargetUnique:       targetUnique,
		ReferenceUnique:    refUnique,
	}
}
