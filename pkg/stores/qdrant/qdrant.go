package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps an endpoint + collection.
type Client struct {
	Endpoint   string // e.g. http://localhost:6333
	Collection string // e.g. "research_papers"
	httpClient *http.Client
}

// New returns a Client with sane defaults.
func New(endpoint, collection string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

/*
EnsureCollection creates the collection with cosine distance when it does not
exist yet. The vector size is only known once the first embedding is made.
*/
func (client *Client) EnsureCollection(ctx context.Context, size int) error {
	resp, err := client.do(ctx, http.MethodGet, client.collectionURL(""), nil)

	if err != nil {
		return err
	}

	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("qdrant: collection status %s", resp.Status)
	}

	resp, err = client.do(ctx, http.MethodPut, client.collectionURL(""), map[string]any{
		"vectors": map[string]any{"size": size, "distance": "Cosine"},
	})

	if err != nil {
		return err
	}

	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: create collection status %s", resp.Status)
	}

	return nil
}

// Get retrieves a document by chunk id including its payload.
func (client *Client) Get(ctx context.Context, id string) (*Document, error) {
	resp, err := client.do(ctx, http.MethodGet, client.collectionURL("/points/"+PointID(id)), nil)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant: get status %s", resp.Status)
	}

	var out struct {
		Result point `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	doc := out.Result.document()
	return &doc, nil
}

// Delete removes a document by chunk id.
func (client *Client) Delete(ctx context.Context, id string) error {
	resp, err := client.do(ctx, http.MethodPost, client.collectionURL("/points/delete?wait=true"), map[string]any{
		"points": []string{PointID(id)},
	})

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: delete status %s", resp.Status)
	}

	return nil
}

// Put upserts a batch of documents as points.
func (client *Client) Put(ctx context.Context, docs []Document) error {
	points := make([]map[string]any, 0, len(docs))

	for _, d := range docs {
		points = append(points, map[string]any{
			"id":      PointID(d.ID),
			"payload": d.Metadata,
			"vector":  d.Vector,
		})
	}

	resp, err := client.do(ctx, http.MethodPut, client.collectionURL("/points?wait=true"), map[string]any{
		"points": points,
	})

	if err != nil {
		return err
	}

	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: unexpected status %s", resp.Status)
	}

	return nil
}

// Search returns the limit nearest documents to queryVec, best first.
func (client *Client) Search(ctx context.Context, queryVec []float32, limit int) ([]Document, error) {
	resp, err := client.do(ctx, http.MethodPost, client.collectionURL("/points/search"), map[string]any{
		"vector":       queryVec,
		"limit":        limit,
		"with_payload": true,
	})

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant: search status %s", resp.Status)
	}

	var out struct {
		Result []point `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(out.Result))

	for _, r := range out.Result {
		docs = append(docs, r.document())
	}

	return docs, nil
}

type point struct {
	ID      any            `json:"id"`
	Payload map[string]any `json:"payload"`
}

func (p point) document() Document {
	id := fmt.Sprintf("%v", p.ID)

	if original, ok := p.Payload["id"].(string); ok {
		id = original
	}

	content, _ := p.Payload["content"].(string)

	return Document{
		ID:       id,
		Content:  content,
		Metadata: p.Payload,
	}
}

func (client *Client) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", client.Endpoint, client.Collection, suffix)
}

func (client *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)

		if err != nil {
			return nil, err
		}

		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)

	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return client.httpClient.Do(req)
}
