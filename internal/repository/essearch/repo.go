// Package essearch implements keyword search and document indexing on Elasticsearch.
package essearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	domdoc "github.com/kailas-cloud/callrag/internal/domain/document"
	"github.com/kailas-cloud/callrag/internal/domain/scope"
)

// DefaultIndexPrefix namespaces the per-table indexes.
const DefaultIndexPrefix = "callrag-"

const maxErrorBody = 512

// titleBoost weights title matches over body matches.
const titleBoost = "title^2"

// Config holds connection parameters.
type Config struct {
	Addresses   []string
	Username    string
	Password    string
	IndexPrefix string
}

// Repo implements usecase/search.KeywordSearcher on Elasticsearch.
type Repo struct {
	client *elasticsearch.Client
	prefix string
}

// New connects a client. No request is made until the first call.
func New(cfg Config) (*Repo, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch addresses are required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	prefix := cfg.IndexPrefix
	if prefix == "" {
		prefix = DefaultIndexPrefix
	}
	return &Repo{client: client, prefix: prefix}, nil
}

// IndexName returns the index holding a table.
func (r *Repo) IndexName(table domdoc.Table) string {
	return r.prefix + string(table)
}

type source struct {
	DocID    string            `json:"doc_id"`
	Table    string            `json:"table"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Scopes   []string          `json:"scopes"`
	CardName string            `json:"card_name,omitempty"`
	Category string            `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source source  `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchKeyword matches the query on title and content, boosts expansion phrases
// and filters by the scope tag.
func (r *Repo) SearchKeyword(
	ctx context.Context, sc scope.Scope,
	query string, expansions []string, k int,
) ([]domdoc.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(sc, query, expansions, k)); err != nil {
		return nil, fmt.Errorf("encode es query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.IndexName(sc.Table())),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("keyword search %s: %w", sc, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("keyword search %s: %w", sc, responseError(res))
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode es response: %w", err)
	}

	hits := make([]domdoc.Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		doc := h.Source.document()
		if doc.ID == "" {
			doc.ID = h.ID
		}
		if doc.Table == "" {
			doc.Table = sc.Table()
		}
		if !sc.Matches(doc.ID) {
			continue
		}
		hits = append(hits, domdoc.Hit{Document: doc, Score: h.Score})
	}
	return hits, nil
}

func buildQuery(sc scope.Scope, query string, expansions []string, k int) map[string]any {
	should := make([]map[string]any, 0, len(expansions))
	for _, e := range expansions {
		should = append(should, map[string]any{
			"multi_match": map[string]any{
				"query":  e,
				"type":   "phrase",
				"fields": []string{titleBoost, "content"},
			},
		})
	}
	return map[string]any{
		"size":    k,
		"_source": []string{"doc_id", "table", "title", "content", "metadata"},
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": []string{titleBoost, "content"},
					},
				},
				"should": should,
				"filter": map[string]any{
					"terms": map[string]any{"scopes": []string{string(sc)}},
				},
			},
		},
	}
}

func (s source) document() domdoc.Document {
	return domdoc.Document{
		ID:       s.DocID,
		Table:    domdoc.Table(s.Table),
		Title:    s.Title,
		Content:  s.Content,
		Metadata: s.Metadata,
	}
}

func toSource(d *domdoc.Document) source {
	scopes := scope.ScopesFor(d.Table, d.ID)
	names := make([]string, len(scopes))
	for i, s := range scopes {
		names[i] = string(s)
	}
	return source{
		DocID:    d.ID,
		Table:    string(d.Table),
		Title:    d.Title,
		Content:  d.Content,
		Scopes:   names,
		CardName: d.Metadata[domdoc.MetaCardName],
		Category: d.Metadata[domdoc.MetaCategory],
		Metadata: d.Metadata,
	}
}

const mapping = `{
	"mappings": {
		"properties": {
			"doc_id":    { "type": "keyword" },
			"table":     { "type": "keyword" },
			"title":     { "type": "text" },
			"content":   { "type": "text" },
			"scopes":    { "type": "keyword" },
			"card_name": { "type": "keyword" },
			"category":  { "type": "keyword" },
			"metadata":  { "type": "object", "enabled": false }
		}
	}
}`

// EnsureIndex creates the table's index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context, table domdoc.Table) error {
	name := r.IndexName(table)
	res, err := r.client.Indices.Exists([]string{name}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %s: unexpected status %d", name, res.StatusCode)
	}

	res, err = r.client.Indices.Create(name,
		r.client.Indices.Create.WithContext(ctx),
		r.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %w", name, responseError(res))
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Index upserts documents with one bulk request.
func (r *Repo) Index(ctx context.Context, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i := range docs {
		d := &docs[i]
		if err := d.Validate(0); err != nil {
			return err
		}
		meta := map[string]any{"index": map[string]string{"_index": r.IndexName(d.Table), "_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(toSource(d)); err != nil {
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
	}

	req := esapi.BulkRequest{Body: &body}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index: %w", responseError(res))
	}

	var out bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if !out.Errors {
		return nil
	}
	for _, item := range out.Items {
		for _, op := range item {
			if op.Error != nil {
				return fmt.Errorf("bulk index %s: %s: %s", op.ID, op.Error.Type, op.Error.Reason)
			}
		}
	}
	return errors.New("bulk index reported errors")
}

// HealthCheck pings the cluster.
func (r *Repo) HealthCheck(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %w", responseError(res))
	}
	return nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return fmt.Errorf("elasticsearch %s: %s", res.Status(), strings.TrimSpace(string(body)))
}
