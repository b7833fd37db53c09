package vector

import (
	"context"
)

/*
Store is the text-in, text-out similarity index used for chunks. Query returns
at most k chunk texts, most similar first.
*/
type Store interface {
	Insert(ctx context.Context, id, text string, metadata map[string]any) error
	Query(ctx context.Context, text string, k int) ([]string, error)
}

/*
Embedder turns text into a dense vector. Stores that need embeddings take one
as a collaborator rather than computing them themselves.
*/
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
