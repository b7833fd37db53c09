package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/extract"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/metrics"
	"github.com/theapemachine/hivemind/pkg/vector"
)

// DefaultExtractEvery sends every fifth chunk, starting with the first, to extraction.
const DefaultExtractEvery = 5

/*
Report describes what ingesting one document did.
*/
type Report struct {
	Source    string `json:"source"`
	Chunks    int    `json:"chunks"`
	Extracted int    `json:"extracted"`
	Triples   int    `json:"triples"`
	Discarded int    `json:"discarded"`
}

/*
Pipeline splits documents into chunks, indexes every chunk for similarity
search, and grows the entity graph from a sample of the chunks.
*/
type Pipeline struct {
	vectors      vector.Store
	graph        *graph.Store
	extractor    extract.Extractor
	source       TextSource
	metrics      *metrics.Retrieval
	chunkSize    int
	extractEvery int
}

type PipelineOption func(*Pipeline)

func NewPipeline(
	vectors vector.Store, entities *graph.Store, options ...PipelineOption,
) *Pipeline {
	pipeline := &Pipeline{
		vectors:      vectors,
		graph:        entities,
		extractor:    extract.Fallback{},
		source:       PlainText{},
		chunkSize:    DefaultChunkSize,
		extractEvery: DefaultExtractEvery,
	}

	for _, option := range options {
		option(pipeline)
	}

	return pipeline
}

/*
Ingest processes one document. A vector insert failure aborts the document
and is returned. Extraction failures are logged and skipped, so a flaky model
never loses indexed chunks.
*/
func (pipeline *Pipeline) Ingest(ctx context.Context, source, text string) (Report, error) {
	started := time.Now()
	report := Report{Source: source}
	chunks := Chunks(source, text, pipeline.chunkSize)

	for _, chunk := range chunks {
		if err := pipeline.vectors.Insert(ctx, chunk.ID, chunk.Text, map[string]any{
			"source":   chunk.Source,
			"chunk_id": chunk.Index,
		}); err != nil {
			pipeline.metrics.RecordDocument(false, report.Chunks, time.Since(started))
			return report, fmt.Errorf("ingest: insert chunk %s: %w", chunk.ID, err)
		}

		report.Chunks++

		if chunk.Index%pipeline.extractEvery != 0 {
			continue
		}

		pipeline.extractChunk(ctx, chunk, &report)
	}

	pipeline.metrics.RecordDocument(true, report.Chunks, time.Since(started))

	log.Debug(
		"document ingested",
		"source", source,
		"chunks", report.Chunks,
		"triples", report.Triples,
	)

	return report, nil
}

/*
IngestFile reads location through the configured TextSource and ingests it
with the location as its source id.
*/
func (pipeline *Pipeline) IngestFile(ctx context.Context, location string) (Report, error) {
	text, err := pipeline.source.Read(ctx, location)

	if err != nil {
		return Report{Source: location}, fmt.Errorf("ingest: read %s: %w", location, err)
	}

	return pipeline.Ingest(ctx, location, text)
}

// Source returns the TextSource used by IngestFile.
func (pipeline *Pipeline) Source() TextSource {
	return pipeline.source
}

func (pipeline *Pipeline) extractChunk(ctx context.Context, chunk Chunk, report *Report) {
	out, err := pipeline.extractor.Extract(ctx, chunk.Text)

	if err != nil {
		pipeline.metrics.RecordExtraction(false, 0, 0)
		log.Warn("failed to extract relations", "chunk", chunk.ID, "error", err)
		return
	}

	parsed := extract.Parse(out)

	for _, triple := range parsed.Triples {
		pipeline.graph.AddEdge(triple.Subject, triple.Object, triple.Relation)
	}

	for _, line := range parsed.Discarded {
		log.Debug("discarded extraction line", "chunk", chunk.ID, "line", line)
	}

	report.Extracted++
	report.Triples += len(parsed.Triples)
	report.Discarded += len(parsed.Discarded)

	pipeline.metrics.RecordExtraction(true, len(parsed.Triples), len(parsed.Discarded))
}

func WithExtractor(extractor extract.Extractor) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.extractor = extractor
	}
}

func WithTextSource(source TextSource) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.source = source
	}
}

func WithMetrics(m *metrics.Retrieval) PipelineOption {
	return func(pipeline *Pipeline) {
		pipeline.metrics = m
	}
}

func WithChunkSize(size int) PipelineOption {
	return func(pipeline *Pipeline) {
		if size > 0 {
			pipeline.chunkSize = size
		}
	}
}

func WithExtractEvery(stride int) PipelineOption {
	return func(pipeline *Pipeline) {
		if stride > 0 {
			pipeline.extractEvery = stride
		}
	}
}
