package graph

import (
	"context"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

/*
Edge is a directed, labelled connection between two entities. Only one
relation is kept per ordered (Subject, Object) pair.
*/
type Edge struct {
	Subject  string `json:"subject"`
	Object   string `json:"object"`
	Relation string `json:"relation"`
}

/*
Neighbor is an outgoing connection as seen from the source entity.
*/
type Neighbor struct {
	Entity   string `json:"entity"`
	Relation string `json:"relation"`
}

/*
Mirror receives a copy of every mutation on the store. It is used to keep an
external graph database in step with the in-process graph, and is never on
the read path.
*/
type Mirror interface {
	MirrorEdge(ctx context.Context, edge Edge) error
	Reset(ctx context.Context) error
}

/*
MatchMode selects how entity labels are located inside a query string.
*/
type MatchMode string

const (
	MatchSubstring MatchMode = "substring"
	MatchWord      MatchMode = "word"
)

/*
Store is an in-memory directed entity graph. Entities are created implicitly
by inserting an edge, and a second insert for the same ordered pair replaces
the relation label while keeping the neighbor's original position.

All reads and writes go through a single reader/writer lock, so ingestion can
add edges while queries walk the graph.
*/
type Store struct {
	mu       sync.RWMutex
	entities []string
	seen     map[string]struct{}
	order    map[string][]string
	relation map[string]map[string]string
	mirror   Mirror

	// mirrorMu is taken before mu is released, so the mirror sees mutations
	// in the same order as the store.
	mirrorMu sync.Mutex
}

type StoreOption func(*Store)

func NewStore(options ...StoreOption) *Store {
	store := &Store{}
	store.clear()

	for _, option := range options {
		option(store)
	}

	return store
}

/*
AddEdge inserts or overwrites the edge subject -> object. It never fails;
labels are used exactly as given.
*/
func (store *Store) AddEdge(subject, object, relation string) {
	store.mu.Lock()

	store.addEntity(subject)
	store.addEntity(object)

	targets, ok := store.relation[subject]

	if !ok {
		targets = make(map[string]string)
		store.relation[subject] = targets
	}

	if _, exists := targets[object]; !exists {
		store.order[subject] = append(store.order[subject], object)
	}

	targets[object] = relation
	mirror := store.mirror

	if mirror == nil {
		store.mu.Unlock()
		return
	}

	store.mirrorMu.Lock()
	store.mu.Unlock()
	defer store.mirrorMu.Unlock()

	if err := mirror.MirrorEdge(context.Background(), Edge{
		Subject:  subject,
		Object:   object,
		Relation: relation,
	}); err != nil {
		log.Warn("failed to mirror edge", "subject", subject, "object", object, "error", err)
	}
}

/*
Neighbors returns the outgoing edges of entity in the order their targets were
first connected. Unknown entities have no neighbors.
*/
func (store *Store) Neighbors(entity string) []Neighbor {
	store.mu.RLock()
	defer store.mu.RUnlock()

	targets := store.order[entity]
	out := make([]Neighbor, 0, len(targets))

	for _, target := range targets {
		out = append(out, Neighbor{
			Entity:   target,
			Relation: store.relation[entity][target],
		})
	}

	return out
}

/*
ContainsEntityMatching returns every entity for which predicate holds, in the
order the entities were first seen.
*/
func (store *Store) ContainsEntityMatching(predicate func(string) bool) []string {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var out []string

	for _, entity := range store.entities {
		if predicate(entity) {
			out = append(out, entity)
		}
	}

	return out
}

/*
MatchQuery finds the entities whose label occurs in query, case-insensitively.
*/
func (store *Store) MatchQuery(query string, mode MatchMode) []string {
	lowered := strings.ToLower(query)

	return store.ContainsEntityMatching(func(entity string) bool {
		label := strings.ToLower(entity)

		if mode == MatchWord {
			return containsWord(lowered, label)
		}

		return strings.Contains(lowered, label)
	})
}

// Entities returns a copy of all entity labels in insertion order.
func (store *Store) Entities() []string {
	store.mu.RLock()
	defer store.mu.RUnlock()

	out := make([]string, len(store.entities))
	copy(out, store.entities)

	return out
}

// Edges returns every edge, grouped by subject in entity order.
func (store *Store) Edges() []Edge {
	store.mu.RLock()
	defer store.mu.RUnlock()

	var out []Edge

	for _, subject := range store.entities {
		for _, object := range store.order[subject] {
			out = append(out, Edge{
				Subject:  subject,
				Object:   object,
				Relation: store.relation[subject][object],
			})
		}
	}

	return out
}

// Len reports the number of entities and edges.
func (store *Store) Len() (entities, edges int) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, targets := range store.order {
		edges += len(targets)
	}

	return len(store.entities), edges
}

/*
Reset discards every entity and edge. A configured mirror is cleared as well.
*/
func (store *Store) Reset() {
	store.mu.Lock()
	store.clear()
	mirror := store.mirror

	if mirror == nil {
		store.mu.Unlock()
		return
	}

	store.mirrorMu.Lock()
	store.mu.Unlock()
	defer store.mirrorMu.Unlock()

	if err := mirror.Reset(context.Background()); err != nil {
		log.Warn("failed to reset graph mirror", "error", err)
	}
}

func (store *Store) clear() {
	store.entities = nil
	store.seen = make(map[string]struct{})
	store.order = make(map[string][]string)
	store.relation = make(map[string]map[string]string)
}

func (store *Store) addEntity(entity string) {
	if _, ok := store.seen[entity]; ok {
		return
	}

	store.seen[entity] = struct{}{}
	store.entities = append(store.entities, entity)
}

/*
containsWord reports whether needle occurs in haystack with no letter or digit
directly before or after it.
*/
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return true
	}

	offset := 0

	for {
		idx := strings.Index(haystack[offset:], needle)

		if idx < 0 {
			return false
		}

		start := offset + idx
		end := start + len(needle)

		before, _ := utf8.DecodeLastRuneInString(haystack[:start])
		after, _ := utf8.DecodeRuneInString(haystack[end:])

		if !isWordRune(before) && !isWordRune(after) {
			return true
		}

		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func WithMirror(mirror Mirror) StoreOption {
	return func(store *Store) {
		store.mirror = mirror
	}
}
