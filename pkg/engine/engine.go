package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/errors"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/metrics"
	"github.com/theapemachine/hivemind/pkg/session"
	"github.com/theapemachine/hivemind/pkg/vector"
)

const (
	DefaultHistoryLimit = 6
	DefaultNeighborK    = 1
	DefaultDirectK      = 2
)

const (
	StepNeighbors = "neighbors"
	StepVector    = "vector"
	StepHistory   = "history"
	StepGenerate  = "generate"
	StepPersist   = "persist"
)

// ErrGeneration wraps a hard failure of the configured generator.
var ErrGeneration = errors.New("generation failed")

/*
Generator produces the final answer from the assembled prompt. A nil
Generator on the Engine means no model is configured.
*/
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

/*
History is the durable session log the engine reads recent turns from and
records each exchange into. *session.Store satisfies it.
*/
type History interface {
	AddMessage(ctx context.Context, sessionID string, role session.Role, content string, retrieved *string) error
	RecentContext(ctx context.Context, sessionID string, limit int) (string, error)
	ListSessions(ctx context.Context, limit int) ([]session.Summary, error)
	Messages(ctx context.Context, sessionID string) ([]session.Message, error)
}

/*
Engine answers questions by fusing graph neighbourhood facts, vector search
hits and recent conversation into one prompt. It owns none of its
collaborators and is safe for concurrent use as long as they are.
*/
type Engine struct {
	graph        *graph.Store
	vectors      vector.Store
	history      History
	generator    Generator
	metrics      *metrics.Retrieval
	historyLimit int
	neighborK    int
	directK      int
	fusion       FusionMode
	match        graph.MatchMode
}

type EngineOption func(*Engine)

func NewEngine(
	entities *graph.Store, vectors vector.Store, options ...EngineOption,
) *Engine {
	engine := &Engine{
		graph:        entities,
		vectors:      vectors,
		historyLimit: DefaultHistoryLimit,
		neighborK:    DefaultNeighborK,
		directK:      DefaultDirectK,
		fusion:       FusionOrdered,
		match:        graph.MatchSubstring,
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

/*
Query answers query within sessionID. An empty sessionID means the query has
no history and nothing is recorded.

Retrieval never fails the query: vector and history lookups degrade to empty
results and are recorded on the Answer's Steps. The only error returned wraps
ErrGeneration, when the configured generator itself fails. Without a
generator the answer is NoModelAnswer and the session is left untouched.
*/
func (engine *Engine) Query(ctx context.Context, query, sessionID string) (*Answer, error) {
	var (
		started        = time.Now()
		answer         = &Answer{}
		extended       []string
		vectorFailures int
		neighborErrs   = errors.NewError()
	)

	for _, entity := range engine.graph.MatchQuery(query, engine.match) {
		for _, neighbor := range engine.graph.Neighbors(entity) {
			answer.Connections = append(answer.Connections, fmt.Sprintf(
				"(%s --%s--> %s)", entity, neighbor.Relation, neighbor.Entity,
			))

			extended = append(extended, fmt.Sprintf(
				"Related: %s %s %s", entity, neighbor.Relation, neighbor.Entity,
			))

			docs, err := engine.vectors.Query(ctx, neighbor.Entity, engine.neighborK)

			if err != nil {
				vectorFailures++
				neighborErrs.Add(fmt.Errorf("neighbor %s: %w", neighbor.Entity, err))
				continue
			}

			extended = append(extended, docs...)
		}
	}

	answer.record(StepNeighbors, neighborErrs.ErrOrNil(), Degraded)

	direct, err := engine.vectors.Query(ctx, query, engine.directK)

	if err != nil {
		vectorFailures++
		log.Warn("vector search failed", "error", err)
		direct = nil
	}

	answer.record(StepVector, err, Degraded)
	answer.Context = fuse(engine.fusion, extended, direct)
	combined := strings.Join(answer.Context, "\n")

	if sessionID != "" && engine.history != nil {
		answer.History, err = engine.history.RecentContext(ctx, sessionID, engine.historyLimit)

		if err != nil {
			log.Warn("failed to load history", "session", sessionID, "error", err)
			answer.History = ""
		}

		answer.record(StepHistory, err, Degraded)
	}

	connections := connectionsText(answer.Connections)
	answer.Prompt = buildPrompt(answer.History, connections, combined, query)

	if engine.generator == nil {
		answer.Text = NoModelAnswer
		engine.metrics.RecordQuery(vectorFailures, false, false, time.Since(started))
		return answer, nil
	}

	if answer.Text, err = engine.generator.Generate(ctx, answer.Prompt); err != nil {
		answer.record(StepGenerate, err, Failed)
		engine.metrics.RecordQuery(vectorFailures, true, false, time.Since(started))
		return answer, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	answer.record(StepGenerate, nil, Failed)

	persistFailed := false

	if sessionID != "" && engine.history != nil {
		err = engine.persist(ctx, sessionID, query, combined, answer.Text, connections)
		answer.record(StepPersist, err, Failed)
		persistFailed = err != nil
	}

	engine.metrics.RecordQuery(vectorFailures, false, persistFailed, time.Since(started))
	return answer, nil
}

func (engine *Engine) persist(
	ctx context.Context, sessionID, query, combined, reply, connections string,
) error {
	if err := engine.history.AddMessage(ctx, sessionID, session.RoleUser, query, &combined); err != nil {
		log.Error("failed to record question", "session", sessionID, "error", err)
		return err
	}

	if err := engine.history.AddMessage(ctx, sessionID, session.RoleAssistant, reply, &connections); err != nil {
		log.Error("failed to record answer", "session", sessionID, "error", err)
		return err
	}

	return nil
}

// ResetGraph discards every entity and edge.
func (engine *Engine) ResetGraph() {
	engine.graph.Reset()
}

// Graph returns the entity graph the engine reads from.
func (engine *Engine) Graph() *graph.Store {
	return engine.graph
}

// HasModel reports whether a generator is configured.
func (engine *Engine) HasModel() bool {
	return engine.generator != nil
}

func (engine *Engine) ListSessions(ctx context.Context, limit int) ([]session.Summary, error) {
	if engine.history == nil {
		return nil, nil
	}

	return engine.history.ListSessions(ctx, limit)
}

func (engine *Engine) SessionMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	if engine.history == nil {
		return nil, nil
	}

	return engine.history.Messages(ctx, sessionID)
}

func WithGenerator(generator Generator) EngineOption {
	return func(engine *Engine) {
		engine.generator = generator
	}
}

func WithHistory(history History) EngineOption {
	return func(engine *Engine) {
		engine.history = history
	}
}

func WithMetrics(m *metrics.Retrieval) EngineOption {
	return func(engine *Engine) {
		engine.metrics = m
	}
}

func WithHistoryLimit(limit int) EngineOption {
	return func(engine *Engine) {
		if limit > 0 {
			engine.historyLimit = limit
		}
	}
}

func WithNeighborK(k int) EngineOption {
	return func(engine *Engine) {
		if k > 0 {
			engine.neighborK = k
		}
	}
}

func WithDirectK(k int) EngineOption {
	return func(engine *Engine) {
		if k > 0 {
			engine.directK = k
		}
	}
}

func WithFusion(mode FusionMode) EngineOption {
	return func(engine *Engine) {
		if mode != "" {
			engine.fusion = mode
		}
	}
}

func WithMatch(mode graph.MatchMode) EngineOption {
	return func(engine *Engine) {
		if mode != "" {
			engine.match = mode
		}
	}
}
