package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/metrics"
)

type insert struct {
	id       string
	text     string
	metadata map[string]any
}

type recordingStore struct {
	mu      sync.Mutex
	inserts []insert
	failAt  int
}

func (store *recordingStore) Insert(ctx context.Context, id, text string, metadata map[string]any) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failAt > 0 && len(store.inserts)+1 == store.failAt {
		return errors.New("index unavailable")
	}

	store.inserts = append(store.inserts, insert{id, text, metadata})
	return nil
}

func (store *recordingStore) Query(ctx context.Context, text string, k int) ([]string, error) {
	return nil, nil
}

type scriptedExtractor struct {
	calls   []string
	outputs map[int]string
	fail    map[int]bool
}

func (extractor *scriptedExtractor) Extract(ctx context.Context, chunk string) (string, error) {
	n := len(extractor.calls)
	extractor.calls = append(extractor.calls, chunk)

	if extractor.fail[n] {
		return "", errors.New("model timeout")
	}

	return extractor.outputs[n], nil
}

func TestSplit(t *testing.T) {
	Convey("Given text of 2500 characters", t, func() {
		text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000) + strings.Repeat("c", 500)
		pieces := Split(text, 1000)

		Convey("Then it splits into 1000, 1000 and 500", func() {
			So(pieces, ShouldHaveLength, 3)
			So(len(pieces[0]), ShouldEqual, 1000)
			So(len(pieces[1]), ShouldEqual, 1000)
			So(len(pieces[2]), ShouldEqual, 500)
			So(strings.Join(pieces, ""), ShouldEqual, text)
		})
	})

	Convey("Given empty text", t, func() {
		Convey("Then there are no chunks", func() {
			So(Split("", 1000), ShouldBeEmpty)
		})
	})

	Convey("Given multi-byte text", t, func() {
		pieces := Split("ééé", 2)

		Convey("Then characters are never split", func() {
			So(pieces, ShouldResemble, []string{"éé", "é"})
		})
	})
}

func TestChunks(t *testing.T) {
	chunks := Chunks("paper.pdf", strings.Repeat("x", 2001), 1000)

	assert.Len(t, chunks, 3)
	assert.Equal(t, "paper.pdf_0", chunks[0].ID)
	assert.Equal(t, "paper.pdf_2", chunks[2].ID)
	assert.Equal(t, 2, chunks[2].Index)
	assert.Equal(t, "x", chunks[2].Text)
}

func TestIngest(t *testing.T) {
	Convey("Given a pipeline over an eleven chunk document", t, func() {
		store := &recordingStore{}
		entities := graph.NewStore()
		extractor := &scriptedExtractor{
			outputs: map[int]string{
				0: "(BERT, based_on, Transformer)\nnot a triple",
				1: "(Transformer, uses, Attention)",
				2: "",
			},
		}
		counters := metrics.NewRetrieval()

		pipeline := NewPipeline(store, entities, WithExtractor(extractor), WithMetrics(counters), WithChunkSize(10))
		text := strings.Repeat("0123456789", 11)

		report, err := pipeline.Ingest(context.Background(), "doc", text)

		Convey("Then every chunk is indexed with its id and metadata", func() {
			So(err, ShouldBeNil)
			So(store.inserts, ShouldHaveLength, 11)
			So(store.inserts[3].id, ShouldEqual, "doc_3")
			So(store.inserts[3].metadata, ShouldResemble, map[string]any{"source": "doc", "chunk_id": 3})
		})

		Convey("Then only chunks 0, 5 and 10 go to extraction", func() {
			So(extractor.calls, ShouldHaveLength, 3)
			So(report.Extracted, ShouldEqual, 3)
		})

		Convey("Then accepted triples land in the graph", func() {
			So(entities.Neighbors("BERT"), ShouldResemble, []graph.Neighbor{{Entity: "Transformer", Relation: "based_on"}})
			So(entities.Neighbors("Transformer"), ShouldResemble, []graph.Neighbor{{Entity: "Attention", Relation: "uses"}})
			So(report.Triples, ShouldEqual, 2)
			So(report.Discarded, ShouldEqual, 1)
		})

		Convey("Then metrics reflect the run", func() {
			So(counters.ChunksInserted, ShouldEqual, int64(11))
			So(counters.Extractions, ShouldEqual, int64(3))
			So(counters.LinesDiscarded, ShouldEqual, int64(1))
		})
	})

	Convey("Given an extractor that fails on the first call", t, func() {
		store := &recordingStore{}
		entities := graph.NewStore()
		extractor := &scriptedExtractor{
			fail:    map[int]bool{0: true},
			outputs: map[int]string{1: "(A, r, B)"},
		}

		pipeline := NewPipeline(store, entities, WithExtractor(extractor), WithChunkSize(10))
		report, err := pipeline.Ingest(context.Background(), "doc", strings.Repeat("x", 60))

		Convey("Then ingestion continues and later chunks still extract", func() {
			So(err, ShouldBeNil)
			So(report.Chunks, ShouldEqual, 6)
			So(report.Extracted, ShouldEqual, 1)
			So(entities.Neighbors("A"), ShouldHaveLength, 1)
		})
	})

	Convey("Given a vector store that fails on the third insert", t, func() {
		store := &recordingStore{failAt: 3}
		pipeline := NewPipeline(store, graph.NewStore(), WithChunkSize(10))

		report, err := pipeline.Ingest(context.Background(), "doc", strings.Repeat("x", 50))

		Convey("Then the document is aborted with the failing chunk named", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "doc_2")
			So(report.Chunks, ShouldEqual, 2)
		})
	})

	Convey("Given empty text", t, func() {
		store := &recordingStore{}
		extractor := &scriptedExtractor{}
		pipeline := NewPipeline(store, graph.NewStore(), WithExtractor(extractor))

		report, err := pipeline.Ingest(context.Background(), "empty", "")

		Convey("Then nothing is inserted or extracted", func() {
			So(err, ShouldBeNil)
			So(report.Chunks, ShouldEqual, 0)
			So(store.inserts, ShouldBeEmpty)
			So(extractor.calls, ShouldBeEmpty)
		})
	})

	Convey("Given the default extractor", t, func() {
		entities := graph.NewStore()
		pipeline := NewPipeline(&recordingStore{}, entities)

		_, err := pipeline.Ingest(context.Background(), "doc", "short text")

		Convey("Then the placeholder fact is added", func() {
			So(err, ShouldBeNil)
			So(entities.Neighbors("Paper"), ShouldResemble, []graph.Neighbor{{Entity: "Concept", Relation: "mentions"}})
		})
	})
}

func TestWorker(t *testing.T) {
	Convey("Given a batch with one missing file", t, func() {
		dir := t.TempDir()
		good := filepath.Join(dir, "good.txt")
		missing := filepath.Join(dir, "missing.txt")
		So(os.WriteFile(good, []byte("hello world"), 0o644), ShouldBeNil)

		store := &recordingStore{}
		worker := NewWorker(NewPipeline(store, graph.NewStore()))

		var events []string

		reports, err := worker.Run(context.Background(), []string{missing, good}, func(progress Progress) {
			events = append(events, string(progress.Status)+" "+filepath.Base(progress.Location))
		})

		Convey("Then the good file is still ingested", func() {
			So(reports, ShouldHaveLength, 1)
			So(reports[0].Source, ShouldEqual, good)
			So(store.inserts[0].id, ShouldEqual, good+"_0")
		})

		Convey("Then progress is reported per document", func() {
			So(events, ShouldResemble, []string{
				"indexing missing.txt",
				"failed missing.txt",
				"indexing good.txt",
				"indexed good.txt",
			})
		})

		Convey("Then the failure is aggregated", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing.txt")
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		worker := NewWorker(NewPipeline(&recordingStore{}, graph.NewStore()))
		reports, err := worker.Run(ctx, []string{"a.txt"}, nil)

		Convey("Then nothing runs and the cancellation is reported", func() {
			So(reports, ShouldBeEmpty)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestProgressString(t *testing.T) {
	assert.Equal(t, "Indexing a.pdf...", Progress{Location: "a.pdf", Status: StatusIndexing}.String())
	assert.Equal(t, "Indexed: a.pdf", Progress{Location: "a.pdf", Status: StatusIndexed}.String())
	assert.Equal(t, "Error: a.pdf: boom", Progress{Location: "a.pdf", Status: StatusFailed, Err: errors.New("boom")}.String())
}

func TestDirSource(t *testing.T) {
	Convey("Given a document root and a secret outside it", t, func() {
		ctx := context.Background()
		base := t.TempDir()
		docs := filepath.Join(base, "docs")
		So(os.MkdirAll(filepath.Join(docs, "papers"), 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(docs, "papers", "bert.txt"), []byte("BERT"), 0o644), ShouldBeNil)

		secret := filepath.Join(base, "secret.txt")
		So(os.WriteFile(secret, []byte("api key"), 0o644), ShouldBeNil)

		source := NewDirSource(docs)

		Convey("Then files inside the root are read", func() {
			text, err := source.Read(ctx, filepath.Join("papers", "bert.txt"))
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "BERT")
		})

		Convey("Then absolute and parent paths are refused", func() {
			for _, location := range []string{secret, "../secret.txt", "papers/../../secret.txt", ""} {
				_, err := source.Read(ctx, location)
				So(errors.Is(err, ErrOutsideRoot), ShouldBeTrue)
			}
		})

		Convey("Then a symlink leading out is refused", func() {
			So(os.Symlink(secret, filepath.Join(docs, "link.txt")), ShouldBeNil)

			text, err := source.Read(ctx, "link.txt")
			So(err, ShouldNotBeNil)
			So(text, ShouldBeEmpty)
		})
	})
}
