// Package storage writes translated STIX objects to OpenSearch so they can be
// searched alongside the rest of the security data.
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/telhawk-systems/stixbridge/internal/config"
	"github.com/telhawk-systems/stixbridge/internal/logging"
	"github.com/telhawk-systems/stixbridge/internal/metrics"
	"github.com/telhawk-systems/stixbridge/pkg/stix"
)

// Indexer stores STIX objects, one document per object, keyed by the object's
// STIX id so re-translating an event overwrites instead of duplicating.
// Objects are spread over per-type indices under a common prefix
// (stixbridge-indicator, stixbridge-observed-data, ...).
type Indexer struct {
	client      *opensearch.Client
	indexPrefix string
	logger      *logging.Logger
}

// NewIndexer builds the OpenSearch client and verifies connectivity.
func NewIndexer(cfg config.OpenSearchConfig, logger *logging.Logger) (*Indexer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &Indexer{
		client:      client,
		indexPrefix: cfg.Index,
		logger:      logger.With(logging.Component("indexer")),
	}, nil
}

// document is the stored shape: the raw object plus the source event uuid for
// filtering.
type document struct {
	EventUUID string          `json:"event_uuid"`
	Type      string          `json:"stix_type"`
	Object    json.RawMessage `json:"object"`
}

// IndexObjects writes every object of one translated event. Indexing stops at
// the first hard failure; the caller decides whether that fails the event.
func (ix *Indexer) IndexObjects(ctx context.Context, eventUUID string, objects []stix.Object) error {
	for _, obj := range objects {
		raw, err := json.Marshal(obj)
		if err != nil {
			return fmt.Errorf("marshal object %s: %w", obj.GetID(), err)
		}
		body, err := json.Marshal(document{
			EventUUID: eventUUID,
			Type:      obj.GetType(),
			Object:    raw,
		})
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", obj.GetID(), err)
		}

		req := opensearchapi.IndexRequest{
			Index:      ix.indexPrefix + "-" + obj.GetType(),
			DocumentID: obj.GetID(),
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, ix.client)
		if err != nil {
			metrics.IndexErrors.Inc()
			return fmt.Errorf("index object %s: %w", obj.GetID(), err)
		}
		if res.IsError() {
			res.Body.Close()
			metrics.IndexErrors.Inc()
			return fmt.Errorf("index object %s: %s", obj.GetID(), res.Status())
		}
		res.Body.Close()
		metrics.IndexedObjects.Inc()
	}

	ix.logger.DebugContext(ctx, "objects indexed",
		logging.EventUUID(eventUUID),
		logging.Objects(len(objects)),
		logging.Index(ix.indexPrefix),
	)
	return nil
}
