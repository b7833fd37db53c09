package qdrant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/theapemachine/hivemind/pkg/vector"
)

/*
Store adapts a Client to vector.Store. Embeddings come from the configured
embedder; the collection is created lazily on the first insert.
*/
type Store struct {
	client   *Client
	embedder vector.Embedder
	mu       sync.Mutex
	created  bool
}

func NewStore(client *Client, embedder vector.Embedder) *Store {
	return &Store{client: client, embedder: embedder}
}

func (store *Store) Insert(
	ctx context.Context, id, text string, metadata map[string]any,
) error {
	embedding, err := store.embedder.Embed(ctx, text)

	if err != nil {
		return fmt.Errorf("qdrant: embed %s: %w", id, err)
	}

	if len(embedding) == 0 {
		return errors.New("qdrant: empty embedding")
	}

	if err := store.ensure(ctx, len(embedding)); err != nil {
		return err
	}

	return store.client.Put(ctx, []Document{*NewDocument(id, text, embedding, metadata)})
}

func (store *Store) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	embedding, err := store.embedder.Embed(ctx, text)

	if err != nil {
		return nil, fmt.Errorf("qdrant: embed query: %w", err)
	}

	docs, err := store.client.Search(ctx, embedding, k)

	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(docs))

	for _, doc := range docs {
		out = append(out, doc.Content)
	}

	return out, nil
}

func (store *Store) ensure(ctx context.Context, size int) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.created {
		return nil
	}

	if err := store.client.EnsureCollection(ctx, size); err != nil {
		return err
	}

	store.created = true
	return nil
}
