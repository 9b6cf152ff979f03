// Package claim holds the pure text analysis used across the novelty
// pipeline: clause segmentation, tokenization, n-gram overlap, and lexical
// similarity.  Everything here is deterministic and free of I/O.
package claim

import (
	"regexp"
	"strings"
)

// minClauseLength is the shortest text (exclusive) kept as a standalone
// clause after segmentation.
const minClauseLength = 10

// Clause separators, tried in order.  The first separator that actually
// splits the text wins; later ones are not applied to the parts.
var clauseSeparators = []*regexp.Regexp{
	regexp.MustCompile(`\s*;\s*`),
	regexp.MustCompile(`\s*,\s*(wherein\s)`),
	regexp.MustCompile(`\s*,\s*(and\s+wherein\s)`),
	regexp.MustCompile(`\s*,\s*(further\s+wherein\s)`),
}

var claimNumberPrefix = regexp.MustCompile(`^(\d+\.\s*)?`)

// Segment splits a claim into clauses.  Semicolons are the primary
// separator; failing that, a comma directly before a "wherein" phrase splits
// the claim.  Each clause is stripped of a leading claim number ("1. ") and
// clauses of ten characters or fewer are dropped.  If nothing survives, the
// whole claim text is returned as a single clause.
func Segment(claimText string) []string {
	remaining := strings.TrimSpace(claimText)

	var parts []string
	for _, sep := range clauseSeparators {
		parts = splitKeepingLookahead(sep, remaining)
		if len(parts) > 1 {
			break
		}
	}
	if len(parts) <= 1 {
		parts = []string{remaining}
	}

	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		clause := strings.TrimSpace(claimNumberPrefix.ReplaceAllString(strings.TrimSpace(part), ""))
		if len(clause) > minClauseLength {
			cleaned = append(cleaned, clause)
		}
	}

	if len(cleaned) == 0 {
		return []string{claimText}
	}
	return cleaned
}

// splitKeepingLookahead splits text on sep.  Go's regexp has no lookahead,
// so the "wherein" separators capture the keyword as a group and the split
// re-attaches it to the start of the following part.
func splitKeepingLookahead(sep *regexp.Regexp, text string) []string {
	matches := sep.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	var parts []string
	prev := 0
	for _, m := range matches {
		parts = append(parts, text[prev:m[0]])
		if len(m) > 2 && m[2] >= 0 {
			// Keyword captured: the next part starts at the keyword.
			prev = m[2]
		} else {
			prev = m[1]
		}
	}
	parts = append(parts, text[prev:])

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
