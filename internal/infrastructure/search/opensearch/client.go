// Package opensearch provides the cluster-backed lexical search branch, used
// instead of the in-process BM25 snapshot for corpora too large to hold in
// memory.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"

	opensearch "github.com/opensearch-project/opensearch-go/v3"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/derril-tech/ai-patent-explorer/internal/config"
	"github.com/derril-tech/ai-patent-explorer/internal/infrastructure/monitoring/logging"
	apperrors "github.com/derril-tech/ai-patent-explorer/pkg/errors"
)

// NewClient connects to the OpenSearch cluster and verifies it responds.
func NewClient(ctx context.Context, cfg config.OpenSearchConfig, log logging.Logger) (*opensearchapi.Client, error) {
	var transport http.RoundTripper
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.User,
			Password:  cfg.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "failed to create opensearch client")
	}

	if _, err := client.Ping(ctx, nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSearchFailed, "opensearch cluster unreachable")
	}

	log.Info("connected to opensearch", logging.Any("addresses", cfg.Addresses))
	return client, nil
}
