package vector

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

type entry struct {
	id        string
	text      string
	metadata  map[string]any
	embedding []float32
	tokens    map[string]struct{}
}

/*
MemoryStore is a brute-force, process-local index. Without an embedder it ranks
by token overlap (Ochiai coefficient); with one it ranks by cosine similarity.
Inserting an existing id replaces the entry in place.
*/
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []*entry
	index    map[string]int
	embedder Embedder
}

type MemoryStoreOption func(*MemoryStore)

func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{index: make(map[string]int)}

	for _, option := range options {
		option(store)
	}

	return store
}

func (store *MemoryStore) Insert(
	ctx context.Context, id, text string, metadata map[string]any,
) error {
	doc := &entry{
		id:       id,
		text:     text,
		metadata: metadata,
		tokens:   tokenSet(text),
	}

	if store.embedder != nil {
		embedding, err := store.embedder.Embed(ctx, text)

		if err != nil {
			return fmt.Errorf("vector: embed %s: %w", id, err)
		}

		doc.embedding = embedding
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if idx, ok := store.index[id]; ok {
		store.entries[idx] = doc
		return nil
	}

	store.index[id] = len(store.entries)
	store.entries = append(store.entries, doc)

	return nil
}

func (store *MemoryStore) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	var (
		query []float32
		err   error
	)

	if store.embedder != nil {
		if query, err = store.embedder.Embed(ctx, text); err != nil {
			return nil, fmt.Errorf("vector: embed query: %w", err)
		}
	}

	qset := tokenSet(text)

	store.mu.RLock()
	defer store.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}

	scores := make([]scored, len(store.entries))

	for i, doc := range store.entries {
		if query != nil {
			scores[i] = scored{i, cosine(query, doc.embedding)}
			continue
		}

		scores[i] = scored{i, ochiai(qset, doc.tokens)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	out := make([]string, 0, k)

	for _, s := range scores[:k] {
		out = append(out, store.entries[s.idx].text)
	}

	return out, nil
}

// Len reports the number of stored chunks.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.entries)
}

func tokenSet(text string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))

	for _, token := range tokens {
		set[token] = struct{}{}
	}

	return set
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}

	inter := 0

	for token := range query {
		if _, ok := doc[token]; ok {
			inter++
		}
	}

	return float64(inter) / math.Sqrt(float64(len(query))*float64(len(doc)))
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, na, nb float64

	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func WithEmbedder(embedder Embedder) MemoryStoreOption {
	return func(store *MemoryStore) {
		store.embedder = embedder
	}
}
