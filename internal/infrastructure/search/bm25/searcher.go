package bm25

import (
	"context"

	"github.com/derril-tech/ai-patent-explorer/internal/application/retrieval"
)

// Searcher adapts the snapshot manager to the retrieval layer's lexical
// port.  A not-yet-built corpus surfaces as CorpusUnavailable, which the
// retrieval layer treats as an empty lexical branch.
type Searcher struct {
	manager *SnapshotManager
}

// NewSearcher wraps a snapshot manager.
func NewSearcher(manager *SnapshotManager) *Searcher {
	return &Searcher{manager: manager}
}

// Search queries the current snapshot.
func (s *Searcher) Search(_ context.Context, query, workspaceID string, k int) ([]retrieval.Candidate, error) {
	snapshot, err := s.manager.Current()
	if err != nil {
		return nil, err
	}

	hits := snapshot.Search(query, workspaceID, k)
	candidates := make([]retrieval.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = retrieval.Candidate{
			Doc:   hit.Doc.PatentDocument,
			Score: hit.Score,
		}
	}
	return candidates, nil
}
