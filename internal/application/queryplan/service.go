// Package queryplan turns free-text prior-art queries into an expanded,
// weighted search plan: cleaned text, technical terms, synonyms, CPC codes
// with expansions, alternative phrasings, and a lexical/dense weighting
// strategy.
package queryplan

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/derril-tech/ai-patent-explorer/internal/domain/claim"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

const (
	// maxAlternativeQueries caps the alternative phrasings in a plan.
	maxAlternativeQueries = 10
	// maxSynonymsPerTerm caps substitutions per term when generating
	// alternatives.
	maxSynonymsPerTerm = 3
	// minTechnicalTermLength is the shortest single word (exclusive) kept
	// as a technical term.
	minTechnicalTermLength = 4
)

var (
	cpcCodePattern   = regexp.MustCompile(`\b[A-H]\d{2}[A-Z]\b`)
	disallowedChars  = regexp.MustCompile(`[^\w\s\-\.\,\;\:\!\?\(\)]`)
	cpcSiblingLetter = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Service plans prior-art search queries.
type Service interface {
	// Plan expands query into a PlannedQuery.  method selects the caller's
	// preferred retrieval channel and only influences the strategy weights.
	Plan(ctx context.Context, workspaceID, query string, method patent.SearchMethod) (*patent.PlannedQuery, error)
}

type service struct {
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewService builds a query planner.  metrics may be nil.
func NewService(logger logging.Logger, metrics *prometheus.PipelineMetrics) Service {
	return &service{
		logger:  logger.Named("queryplan"),
		metrics: metrics,
	}
}

func (s *service) Plan(ctx context.Context, workspaceID, query string, method patent.SearchMethod) (*patent.PlannedQuery, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidWorkspace, "workspace id is required")
	}
	cleaned := CleanQuery(query)
	if cleaned == "" {
		return nil, apperrors.New(apperrors.CodeEmptyQuery, "query must contain searchable text")
	}
	if !method.IsValid() {
		method = patent.MethodHybrid
	}

	terms := ExtractTechnicalTerms(cleaned)
	synonymMap := GenerateSynonyms(terms)
	cpcCodes := ExtractCPCCodes(cleaned)
	expanded := ExpandCPCCodes(cpcCodes)
	alternatives := generateAlternativeQueries(cleaned, synonymMap)
	strategy := determineStrategy(cleaned)

	plan := &patent.PlannedQuery{
		OriginalText:       query,
		CleanedText:        cleaned,
		TechnicalTerms:     terms,
		SynonymMap:         synonymMap,
		CPCCodes:           cpcCodes,
		ExpandedCPCCodes:   expanded,
		AlternativeQueries: alternatives,
		Strategy:           strategy,
	}

	s.metrics.ObservePlan("ok")
	s.logger.Debug("planned query",
		logging.String("workspace_id", workspaceID),
		logging.Int("technical_terms", len(terms)),
		logging.Int("cpc_codes", len(cpcCodes)),
		logging.Int("alternatives", len(alternatives)),
	)

	return plan, nil
}

// CleanQuery lowercases the query, strips characters other than word
// characters, whitespace, and basic punctuation, and collapses whitespace.
func CleanQuery(query string) string {
	q := strings.ToLower(query)
	q = strings.Join(strings.Fields(q), " ")
	q = disallowedChars.ReplaceAllString(q, " ")
	return strings.Join(strings.Fields(q), " ")
}

// ExtractTechnicalTerms returns the technical vocabulary of a cleaned query:
// non-stop-words longer than four characters, plus any adjacent word pair
// that forms a known technical compound.  Order follows first appearance.
func ExtractTechnicalTerms(cleaned string) []string {
	words := strings.Fields(cleaned)

	seen := make(map[string]struct{})
	var terms []string
	add := func(term string) {
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for i, word := range words {
		if claim.IsStopWord(word) {
			continue
		}
		if len(word) > minTechnicalTermLength {
			add(word)
		}
		if i+1 < len(words) {
			compound := word + " " + words[i+1]
			if _, ok := technicalCompounds[compound]; ok {
				add(compound)
			}
		}
	}
	return terms
}

// GenerateSynonyms maps each term to its synonyms.  A term matches a
// dictionary entry exactly or by substring in either direction; the term
// itself is never among its own synonyms.  Terms without synonyms are
// omitted.
func GenerateSynonyms(terms []string) map[string][]string {
	result := make(map[string][]string)

	for _, term := range terms {
		merged := make(map[string]struct{})
		if direct, ok := synonyms[term]; ok {
			for _, syn := range direct {
				merged[syn] = struct{}{}
			}
		}
		for key, values := range synonyms {
			if strings.Contains(key, term) || strings.Contains(term, key) {
				for _, syn := range values {
					merged[syn] = struct{}{}
				}
			}
		}
		delete(merged, term)

		if len(merged) == 0 {
			continue
		}
		list := make([]string, 0, len(merged))
		for syn := range merged {
			list = append(list, syn)
		}
		sort.Strings(list)
		result[term] = list
	}
	return result
}

// ExtractCPCCodes finds CPC subclasses in a cleaned query, both literal
// codes ("A61B") and codes suggested by mapped technical terms.
func ExtractCPCCodes(cleaned string) []string {
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if _, dup := seen[code]; dup {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, match := range cpcCodePattern.FindAllString(strings.ToUpper(cleaned), -1) {
		add(match)
	}
	for _, word := range strings.Fields(cleaned) {
		for _, code := range cpcMappings[word] {
			add(code)
		}
	}
	return codes
}

// ExpandCPCCodes widens each CPC code to its related classifications: the
// code itself, its parent (one character shorter), and for four-character
// subclasses all 25 siblings under the same parent.
func ExpandCPCCodes(codes []string) map[string][]string {
	expanded := make(map[string][]string, len(codes))
	for _, code := range codes {
		related := []string{code}
		if len(code) > 3 {
			related = append(related, code[:len(code)-1])
		}
		if len(code) == 4 {
			parent := code[:3]
			for _, ch := range cpcSiblingLetter {
				sibling := parent + string(ch)
				if sibling != code {
					related = append(related, sibling)
				}
			}
		}
		expanded[code] = related
	}
	return expanded
}

// generateAlternativeQueries builds alternative phrasings by substituting
// synonyms and dropping the trailing word of longer queries.  The cleaned
// query itself is always the first alternative; the list is capped at ten.
func generateAlternativeQueries(cleaned string, synonymMap map[string][]string) []string {
	seen := map[string]struct{}{cleaned: {}}
	alternatives := []string{cleaned}
	add := func(alt string) {
		if _, dup := seen[alt]; dup {
			return
		}
		seen[alt] = struct{}{}
		alternatives = append(alternatives, alt)
	}

	terms := make([]string, 0, len(synonymMap))
	for term := range synonymMap {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		syns := synonymMap[term]
		if len(syns) > maxSynonymsPerTerm {
			syns = syns[:maxSynonymsPerTerm]
		}
		for _, syn := range syns {
			if alt := strings.ReplaceAll(cleaned, term, syn); alt != cleaned {
				add(alt)
			}
		}
	}

	if words := strings.Fields(cleaned); len(words) > 2 {
		add(strings.Join(words[:len(words)-1], " "))
	}

	if len(alternatives) > maxAlternativeQueries {
		alternatives = alternatives[:maxAlternativeQueries]
	}
	return alternatives
}

// determineStrategy picks channel weights from query length: short queries
// lean on dense retrieval, long queries on lexical.
func determineStrategy(cleaned string) patent.SearchStrategy {
	strategy := patent.SearchStrategy{
		LexicalWeight:   0.5,
		DenseWeight:     0.5,
		UseSynonyms:     true,
		UseCPCExpansion: true,
	}

	switch words := len(strings.Fields(cleaned)); {
	case words <= 2:
		strategy.DenseWeight = 0.7
		strategy.LexicalWeight = 0.3
	case words >= 8:
		strategy.LexicalWeight = 0.7
		strategy.DenseWeight = 0.3
	}
	return strategy
}
