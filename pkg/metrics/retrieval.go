package metrics

import (
	"sync"
	"time"
)

// Retrieval tracks counters for ingestion and query processing.
type Retrieval struct {
	mu sync.RWMutex

	// Ingestion metrics
	Documents       int64
	FailedDocuments int64
	ChunksInserted  int64
	Extractions     int64
	FailedExtracts  int64
	TriplesAccepted int64
	LinesDiscarded  int64
	IngestDuration  time.Duration

	// Query metrics
	Queries            int64
	VectorFailures     int64
	GenerationFailures int64
	PersistFailures    int64
	QueryDuration      time.Duration
}

// NewRetrieval creates a new Retrieval instance
func NewRetrieval() *Retrieval {
	return &Retrieval{}
}

// RecordDocument records the outcome of one ingested document
func (m *Retrieval) RecordDocument(success bool, chunks int, duration time.Duration) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Documents++
	if !success {
		m.FailedDocuments++
	}
	m.ChunksInserted += int64(chunks)
	m.IngestDuration += duration
}

// RecordExtraction records one extractor call and what parsing made of it
func (m *Retrieval) RecordExtraction(success bool, triples, discarded int) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Extractions++
	if !success {
		m.FailedExtracts++
	}
	m.TriplesAccepted += int64(triples)
	m.LinesDiscarded += int64(discarded)
}

// RecordQuery records one query and the steps that degraded or failed
func (m *Retrieval) RecordQuery(vectorFailures int, generationFailed, persistFailed bool, duration time.Duration) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries++
	m.VectorFailures += int64(vectorFailures)
	if generationFailed {
		m.GenerationFailures++
	}
	if persistFailed {
		m.PersistFailures++
	}
	m.QueryDuration += duration
}

// GetMetrics returns a snapshot of the current metrics
func (m *Retrieval) GetMetrics() map[string]any {
	if m == nil {
		return map[string]any{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"documents":           m.Documents,
		"failed_documents":    m.FailedDocuments,
		"chunks_inserted":     m.ChunksInserted,
		"extractions":         m.Extractions,
		"failed_extractions":  m.FailedExtracts,
		"triples_accepted":    m.TriplesAccepted,
		"lines_discarded":     m.LinesDiscarded,
		"ingest_seconds":      m.IngestDuration.Seconds(),
		"queries":             m.Queries,
		"vector_failures":     m.VectorFailures,
		"generation_failures": m.GenerationFailures,
		"persist_failures":    m.PersistFailures,
		"avg_query_seconds":   average(m.QueryDuration, m.Queries),
	}
}

// Reset clears all counters
func (m *Retrieval) Reset() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Documents = 0
	m.FailedDocuments = 0
	m.ChunksInserted = 0
	m.Extractions = 0
	m.FailedExtracts = 0
	m.TriplesAccepted = 0
	m.LinesDiscarded = 0
	m.IngestDuration = 0
	m.Queries = 0
	m.VectorFailures = 0
	m.GenerationFailures = 0
	m.PersistFailures = 0
	m.QueryDuration = 0
}

func average(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}

	return total.Seconds() / float64(count)
}
