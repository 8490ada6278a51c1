package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/model"
)

// Client indexes marketplace entities for discovery queries. Indexing is
// best-effort and never on the write path of a transaction.
type Client interface {
	IndexLoad(ctx context.Context, load *model.Load) error
	IndexTruck(ctx context.Context, posting *model.TruckPosting) error
	SearchLoads(ctx context.Context, query interface{}) ([]json.RawMessage, error)
}

// esClient implements the Client interface
type esClient struct {
	client     *elasticsearch.Client
	loadIndex  string
	truckIndex string
}

// NewClient creates a new Elasticsearch client
func NewClient(cfg *config.ElasticsearchConfig) (Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.URLs,
	}

	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	esCfg.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// Test the connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch error: %s", res.String())
	}

	return &esClient{
		client:     client,
		loadIndex:  cfg.LoadIndex,
		truckIndex: cfg.TruckIndex,
	}, nil
}

// IndexLoad indexes a load document
func (e *esClient) IndexLoad(ctx context.Context, load *model.Load) error {
	doc, err := json.Marshal(load)
	if err != nil {
		return fmt.Errorf("failed to marshal load: %w", err)
	}
	return e.index(ctx, e.loadIndex, load.ID, doc)
}

// IndexTruck indexes a truck posting document
func (e *esClient) IndexTruck(ctx context.Context, posting *model.TruckPosting) error {
	doc, err := json.Marshal(posting)
	if err != nil {
		return fmt.Errorf("failed to marshal truck posting: %w", err)
	}
	return e.index(ctx, e.truckIndex, posting.ID, doc)
}

func (e *esClient) index(ctx context.Context, index, id string, document []byte) error {
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(document),
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index document %s: %s", id, res.String())
	}
	return nil
}

// SearchLoads runs a query against the load index and returns raw hits
func (e *esClient) SearchLoads(ctx context.Context, query interface{}) ([]json.RawMessage, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.loadIndex),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]json.RawMessage, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, h.Source)
	}
	return hits, nil
}
