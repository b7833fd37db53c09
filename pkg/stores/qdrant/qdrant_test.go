package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type constEmbedder []float32

func (embedder constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedder, nil
}

func TestClientGet(t *testing.T) {
	Convey("Given a qdrant client and a test server", t, func() {
		var path string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			fmt.Fprint(w, `{"result":{"id":"5f0c6c1e-0000-5000-8000-000000000000","payload":{"id":"paper.pdf_3","content":"hello"}}}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "mem")
		doc, err := client.Get(context.Background(), "paper.pdf_3")

		Convey("Then the document should be parsed correctly", func() {
			So(err, ShouldBeNil)
			So(doc.ID, ShouldEqual, "paper.pdf_3")
			So(doc.Content, ShouldEqual, "hello")
			So(path, ShouldEqual, "/collections/mem/points/"+PointID("paper.pdf_3"))
		})
	})
}

func TestClientSearch(t *testing.T) {
	Convey("Given a qdrant client and a test server for search", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":[{"id":1,"payload":{"content":"a"}},{"id":"x","payload":{"content":"b"}}]}`)
		}))
		defer ts.Close()

		client := New(ts.URL, "mem")
		docs, err := client.Search(context.Background(), []float32{0.1}, 2)

		Convey("Then the search results should be returned", func() {
			So(err, ShouldBeNil)
			So(len(docs), ShouldEqual, 2)
			So(docs[0].Content, ShouldEqual, "a")
			So(docs[0].ID, ShouldEqual, "1")
			So(docs[1].Content, ShouldEqual, "b")
		})
	})
}

func TestPointID(t *testing.T) {
	Convey("Given the same chunk id twice", t, func() {
		Convey("Then the point id is stable and distinct per chunk", func() {
			So(PointID("a_0"), ShouldEqual, PointID("a_0"))
			So(PointID("a_0"), ShouldNotEqual, PointID("a_1"))
			So(len(PointID("a_0")), ShouldEqual, 36)
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a qdrant store backed by a test server", t, func() {
		var (
			mu       sync.Mutex
			calls    []string
			upserted map[string]any
		)

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()

			calls = append(calls, r.Method+" "+r.URL.Path)

			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/collections/papers":
				w.WriteHeader(http.StatusNotFound)
			case r.Method == http.MethodPut && r.URL.Path == "/collections/papers":
				fmt.Fprint(w, `{"result":true}`)
			case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
				_ = json.NewDecoder(r.Body).Decode(&upserted)
				fmt.Fprint(w, `{"result":{"status":"completed"}}`)
			case strings.HasSuffix(r.URL.Path, "/points/search"):
				fmt.Fprint(w, `{"result":[{"id":"u","payload":{"id":"p_0","content":"chunk text"}}]}`)
			}
		}))
		defer ts.Close()

		store := NewStore(New(ts.URL, "papers"), constEmbedder{0.1, 0.2, 0.3})
		ctx := context.Background()

		Convey("When two chunks are inserted", func() {
			So(store.Insert(ctx, "p_0", "chunk text", map[string]any{"source": "p", "chunk_id": 0}), ShouldBeNil)
			So(store.Insert(ctx, "p_1", "more text", nil), ShouldBeNil)

			Convey("Then the collection is created once", func() {
				So(calls, ShouldResemble, []string{
					"GET /collections/papers",
					"PUT /collections/papers",
					"PUT /collections/papers/points",
					"PUT /collections/papers/points",
				})
			})

			Convey("Then the payload carries the chunk id and metadata", func() {
				points := upserted["points"].([]any)
				payload := points[0].(map[string]any)["payload"].(map[string]any)

				So(payload["id"], ShouldEqual, "p_1")
				So(payload["content"], ShouldEqual, "more text")
			})
		})

		Convey("When querying", func() {
			out, err := store.Query(ctx, "chunk", 2)

			Convey("Then chunk texts are returned", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []string{"chunk text"})
			})
		})
	})
}
