package opensearch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/search/bm25"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

const indexMapping = `{
	"settings": {"number_of_shards": 1, "number_of_replicas": 1},
	"mappings": {
		"properties": {
			"patent_id":     {"type": "keyword"},
			"workspace_id":  {"type": "keyword"},
			"title":         {"type": "text"},
			"abstract":      {"type": "text"},
			"assignees":     {"type": "keyword"},
			"cpc_codes":     {"type": "keyword"},
			"priority_date": {"type": "date"},
			"family_id":     {"type": "keyword"},
			"search_text":   {"type": "text"}
		}
	}
}`

// Indexer writes patent documents into the lexical index.
type Indexer struct {
	client *opensearchapi.Client
	index  string
	logger logging.Logger
}

// NewIndexer builds an indexer over the configured index.
func NewIndexer(client *opensearchapi.Client, indexPrefix string, log logging.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  indexPrefix + "patents",
		logger: log.Named("opensearch_index"),
	}
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	_, err := i.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: i.index,
		Body:  strings.NewReader(indexMapping),
	})
	if err != nil {
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return apperrors.Wrap(err, apperrors.CodeSearchFailed, "failed to create index")
	}

	i.logger.Info("lexical index created", logging.String("index", i.index))
	return nil
}

// IndexDocument stores or replaces one patent document.
func (i *Indexer) IndexDocument(ctx context.Context, doc bm25.Document) error {
	body, err := json.Marshal(indexedDoc{
		PatentID:     doc.ID,
		WorkspaceID:  doc.WorkspaceID,
		Title:        doc.Title,
		Abstract:     doc.Abstract,
		Assignees:    doc.Assignees,
		CPCCodes:     doc.CPCCodes,
		PriorityDate: doc.PriorityDate,
		FamilyID:     doc.FamilyID,
		SearchText:   doc.SearchText,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSerialization, "failed to encode document")
	}

	_, err = i.client.Index(ctx, opensearchapi.IndexReq{
		Index:      i.index,
		DocumentID: string(doc.ID),
		Body:       strings.NewReader(string(body)),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSearchFailed, "failed to index document")
	}
	return nil
}

// DeleteDocument removes one patent from the index.
func (i *Indexer) DeleteDocument(ctx context.Context, patentID patent.ID) error {
	_, err := i.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      i.index,
		DocumentID: string(patentID),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSearchFailed, "failed to delete document")
	}
	return nil
}
