// Package bm25 provides the in-process lexical search backend: an immutable
// Okapi BM25 index over workspace documents, wrapped in a versioned snapshot
// that is rebuilt on a schedule or on explicit invalidation and swapped
// atomically under readers.
package bm25

import (
	"math"
	"sort"
	"strings"

	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

// BM25 tuning constants.  Standard values recommended by Robertson et al.
const (
	// k1 controls term frequency saturation.  Range [1.2, 2.0] is typical.
	defaultK1 = 1.5

	// b controls document length normalization.  0.75 is the standard
	// default.
	defaultB = 0.75
)

// Document is one searchable unit of the lexical corpus: a patent's metadata
// plus the text the index scores (title + abstract + concatenated claims).
type Document struct {
	patent.PatentDocument

	SearchText string
}

// Hit is a scored document returned by Index.TopK.
type Hit struct {
	Doc   Document
	Score float64
}

type indexedDoc struct {
	doc Document
	tf  map[string]int
	len int
}

// Index is an immutable BM25 index.  Safe for concurrent use without
// synchronization once built.
type Index struct {
	k1     float64
	b      float64
	docs   []indexedDoc
	idf    map[string]float64
	avgLen float64
}

// Option tunes index construction.
type Option func(*Index)

// WithParams overrides the k1 and b tuning constants.
func WithParams(k1, b float64) Option {
	return func(idx *Index) {
		idx.k1 = k1
		idx.b = b
	}
}

// BuildIndex constructs a BM25 index over docs.  An empty slice yields a
// valid index that scores every query as empty.
//
// IDF uses Lucene-style add-one smoothing, log((N+1)/(df+1)) + 1, so it is
// always positive and never divides by zero.
func BuildIndex(docs []Document, opts ...Option) *Index {
	idx := &Index{
		k1:  defaultK1,
		b:   defaultB,
		idf: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if len(docs) == 0 {
		return idx
	}

	df := make(map[string]int)
	totalLen := 0

	idx.docs = make([]indexedDoc, 0, len(docs))
	for _, doc := range docs {
		tokens := Tokenize(doc.SearchText)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.docs = append(idx.docs, indexedDoc{doc: doc, tf: tf, len: len(tokens)})
		totalLen += len(tokens)
		for term := range tf {
			df[term]++
		}
	}

	n := float64(len(idx.docs))
	idx.avgLen = float64(totalLen) / n
	for term, docFreq := range df {
		idx.idf[term] = math.Log((n+1)/float64(docFreq+1)) + 1.0
	}
	return idx
}

// Size returns the number of indexed documents.
func (idx *Index) Size() int {
	return len(idx.docs)
}

// TopK scores query against every document in workspaceID and returns the k
// best hits, best first.  Scores are normalized to [0, 1] by the maximum raw
// score so they can be averaged against dense cosine scores.  Ties break on
// document id for determinism.
func (idx *Index) TopK(query, workspaceID string, k int) []Hit {
	if k <= 0 || len(idx.docs) == 0 {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	var hits []Hit
	var maxScore float64
	for _, d := range idx.docs {
		if workspaceID != "" && d.doc.WorkspaceID != workspaceID {
			continue
		}
		score := idx.score(queryTokens, d)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Doc: d.doc, Score: score})
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore > 0 {
		for i := range hits {
			hits[i].Score /= maxScore
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Doc.ID < hits[j].Doc.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (idx *Index) score(queryTokens []string, d indexedDoc) float64 {
	dl := float64(d.len)
	var score float64
	for _, term := range queryTokens {
		tf, inDoc := d.tf[term]
		if !inDoc {
			continue
		}
		termIDF := idx.idf[term]

		tfFloat := float64(tf)
		numerator := tfFloat * (idx.k1 + 1)
		denominator := tfFloat + idx.k1*(1.0-idx.b+idx.b*dl/idx.avgLen)
		score += termIDF * (numerator / denominator)
	}
	return score
}

// searchStopWords is the reduced stop-word set used for corpus indexing.
// Deliberately smaller than the clause-analysis set: rare function words
// carry a little signal at corpus scale.
var searchStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// Tokenize lowercases text, splits on whitespace, and drops stop words and
// tokens shorter than three characters.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := searchStopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
