// Package milvus backs the dense retrieval branch with a Milvus collection
// of claim-level embedding vectors.
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

const (
	claimIDField     = "claim_id"
	patentIDField    = "patent_id"
	workspaceIDField = "workspace_id"
	vectorField      = "vector"

	maxClaimIDLength  = 128
	maxPatentIDLength = 64
)

// newMilvusClient is a variable to allow mocking in tests.
var newMilvusClient = client.NewClient

// Client wraps the Milvus connection and the claim-vector collection.
type Client struct {
	milvus     client.Client
	cfg        config.MilvusConfig
	collection string
	logger     logging.Logger
}

// NewClient connects to Milvus and ensures the claim-vector collection and
// its index exist.
func NewClient(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	mc, err := newMilvusClient(ctx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to connect to milvus")
	}

	c := &Client{
		milvus:     mc,
		cfg:        cfg,
		collection: cfg.CollectionPrefix + "claims",
		logger:     log.Named("milvus"),
	}
	if err := c.ensureCollection(ctx); err != nil {
		_ = mc.Close()
		return nil, err
	}

	log.Info("connected to milvus",
		logging.String("addr", cfg.Addr),
		logging.String("collection", c.collection),
	)
	return c, nil
}

// Collection returns the claim-vector collection name.
func (c *Client) Collection() string {
	return c.collection
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.milvus.Close()
}

func (c *Client) ensureCollection(ctx context.Context) error {
	exists, err := c.milvus.HasCollection(ctx, c.collection)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to check collection")
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(c.collection).
			WithField(entity.NewField().WithName(claimIDField).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxClaimIDLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(patentIDField).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxPatentIDLength)).
			WithField(entity.NewField().WithName(workspaceIDField).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxPatentIDLength)).
			WithField(entity.NewField().WithName(vectorField).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.cfg.EmbeddingDim)))
		if err := c.milvus.CreateCollection(ctx, schema, 1); err != nil {
			return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to create collection")
		}

		index, err := entity.NewIndexIvfFlat(entity.MetricType(c.cfg.MetricType), 128)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to build index definition")
		}
		if err := c.milvus.CreateIndex(ctx, c.collection, vectorField, index, false); err != nil {
			return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed, "failed to create index")
		}
	}

	if err := c.milvus.LoadCollection(ctx, c.collection, false); err != nil {
		return apperrors.Wrap(err, apperrors.CodeVectorSearchFailed,
			fmt.Sprintf("failed to load collection %s", c.collection))
	}
	return nil
}
