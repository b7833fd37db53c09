package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/config"
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/extract"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/ingest"
	"github.com/theapemachine/hivemind/pkg/metrics"
	"github.com/theapemachine/hivemind/pkg/provider"
	"github.com/theapemachine/hivemind/pkg/session"
	"github.com/theapemachine/hivemind/pkg/stores/neo4j"
	"github.com/theapemachine/hivemind/pkg/stores/qdrant"
	"github.com/theapemachine/hivemind/pkg/stores/s3"
	"github.com/theapemachine/hivemind/pkg/vector"
)

var errNoObjectStore = errors.New("objects.endpoint is not configured")

/*
stack holds everything a command needs, built once from the config. The
graph and the memory vector index live only as long as the process, so the
one-shot commands index their documents before they use them.
*/
type stack struct {
	sessions  *session.Store
	entities  *graph.Store
	vectors   vector.Store
	engine    *engine.Engine
	pipeline  *ingest.Pipeline
	worker    *ingest.Worker
	metrics   *metrics.Retrieval
	objects   *s3.Conn
	mirror    *neo4j.Client
	extractor extract.Extractor
}

func buildStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	var err error

	st := &stack{metrics: metrics.NewRetrieval()}

	if st.sessions, err = session.Open(cfg.SessionDB()); err != nil {
		return nil, err
	}

	var graphOptions []graph.StoreOption

	if cfg.Graph.Neo4j.URL != "" {
		if st.mirror, err = neo4j.New(
			cfg.Graph.Neo4j.URL, cfg.Graph.Neo4j.User, cfg.Graph.Neo4j.Password,
		); err != nil {
			st.Close()
			return nil, err
		}

		if err = st.mirror.Verify(ctx); err != nil {
			log.Warn("neo4j is unreachable, mirroring will be retried per edge", "error", err)
		}

		graphOptions = append(graphOptions, graph.WithMirror(st.mirror))
	}

	st.entities = graph.NewStore(graphOptions...)

	generator, embedder, err := provider.New(ctx, provider.Settings{
		Kind:       provider.Kind(cfg.Provider.Kind),
		Model:      cfg.Provider.Model,
		EmbedModel: cfg.Provider.EmbedModel,
		BaseURL:    cfg.Provider.BaseURL,
		Retry:      cfg.RetryConfig(),
	})

	if err != nil {
		st.Close()
		return nil, err
	}

	if st.vectors, err = buildVectors(cfg, embedder); err != nil {
		st.Close()
		return nil, err
	}

	if cfg.Objects.Endpoint != "" {
		if st.objects, err = s3.NewConn(
			cfg.Objects.Endpoint, cfg.Objects.AccessKey, cfg.Objects.SecretKey, cfg.Objects.Secure,
		); err != nil {
			st.Close()
			return nil, err
		}
	}

	engineOptions := []engine.EngineOption{
		engine.WithHistory(st.sessions),
		engine.WithMetrics(st.metrics),
		engine.WithHistoryLimit(cfg.Retrieval.HistoryLimit),
		engine.WithNeighborK(cfg.Retrieval.NeighborK),
		engine.WithDirectK(cfg.Retrieval.DirectK),
		engine.WithFusion(engine.FusionMode(cfg.Retrieval.Fusion)),
		engine.WithMatch(graph.MatchMode(cfg.Retrieval.Match)),
	}

	st.extractor = extract.Fallback{}

	if generator != nil {
		engineOptions = append(engineOptions, engine.WithGenerator(generator))
		st.extractor = extract.NewLLMExtractor(generator)
	}

	st.engine = engine.NewEngine(st.entities, st.vectors, engineOptions...)
	st.pipeline = st.newPipeline(cfg)
	st.worker = ingest.NewWorker(st.pipeline)

	log.Debug(
		"stack ready",
		"provider", cfg.Provider.Kind,
		"model", generator != nil,
		"vector", cfg.Vector.Kind,
		"neo4j", cfg.Graph.Neo4j.URL != "",
	)

	return st, nil
}

func buildVectors(cfg *config.Config, embedder provider.Embedder) (vector.Store, error) {
	switch cfg.Vector.Kind {
	case "qdrant":
		if embedder == nil {
			return nil, fmt.Errorf("vector.kind qdrant needs an embedding model from %s", cfg.Provider.Kind)
		}

		return qdrant.NewStore(
			qdrant.New(cfg.Vector.Qdrant.URL, cfg.Vector.Qdrant.Collection), embedder,
		), nil
	default:
		var options []vector.MemoryStoreOption

		if embedder != nil {
			options = append(options, vector.WithEmbedder(embedder))
		}

		return vector.NewMemoryStore(options...), nil
	}
}

/*
newPipeline builds an ingestion pipeline over the stack's stores. Extra
options are applied last, so a command can swap the text source.
*/
func (st *stack) newPipeline(cfg *config.Config, options ...ingest.PipelineOption) *ingest.Pipeline {
	return ingest.NewPipeline(
		st.vectors, st.entities,
		append([]ingest.PipelineOption{
			ingest.WithExtractor(st.extractor),
			ingest.WithMetrics(st.metrics),
			ingest.WithChunkSize(cfg.Ingest.ChunkSize),
			ingest.WithExtractEvery(cfg.Ingest.ExtractEvery),
		}, options...)...,
	)
}

/*
bucketWorker returns a worker reading documents from the configured object
store, together with every key under prefix.
*/
func (st *stack) bucketWorker(
	ctx context.Context, cfg *config.Config, prefix string,
) (*ingest.Worker, []string, error) {
	if st.objects == nil {
		return nil, nil, errNoObjectStore
	}

	source := ingest.NewBucketSource(st.objects, cfg.Objects.Bucket, prefix)
	keys, err := source.List(ctx)

	if err != nil {
		return nil, nil, err
	}

	return ingest.NewWorker(st.newPipeline(cfg, ingest.WithTextSource(source))), keys, nil
}

/*
preload indexes locations on the stack's worker, logging each failure and
returning the aggregate error.
*/
func (st *stack) preload(ctx context.Context, locations []string) error {
	if len(locations) == 0 {
		return nil
	}

	_, err := st.worker.Run(ctx, locations, func(progress ingest.Progress) {
		log.Debug(progress.String())
	})

	return err
}

func (st *stack) Close() {
	if st.mirror != nil {
		if err := st.mirror.Close(context.Background()); err != nil {
			log.Error("failed to close neo4j driver", "error", err)
		}
	}

	if st.sessions == nil {
		return
	}

	if err := st.sessions.Close(); err != nil {
		log.Error("failed to close session store", "error", err)
	}
}
