package vector

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fixedEmbedder map[string][]float32

func (embedder fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := embedder[text]; ok {
		return vec, nil
	}

	return nil, errors.New("no embedding")
}

func TestMemoryStoreLexical(t *testing.T) {
	Convey("Given a lexical memory store with a few chunks", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()

		So(store.Insert(ctx, "a_0", "Transformers rely on attention layers.", nil), ShouldBeNil)
		So(store.Insert(ctx, "a_1", "Backpropagation computes gradients.", nil), ShouldBeNil)
		So(store.Insert(ctx, "a_2", "Gradients flow through neural networks during backpropagation.", nil), ShouldBeNil)

		Convey("When querying with overlapping terms", func() {
			out, err := store.Query(ctx, "backpropagation gradients", 2)

			Convey("Then the best matches come first", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []string{
					"Backpropagation computes gradients.",
					"Gradients flow through neural networks during backpropagation.",
				})
			})
		})

		Convey("When k exceeds the number of chunks", func() {
			out, err := store.Query(ctx, "attention", 10)

			Convey("Then every chunk is returned", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 3)
				So(out[0], ShouldEqual, "Transformers rely on attention layers.")
			})
		})

		Convey("When an id is inserted again", func() {
			So(store.Insert(ctx, "a_0", "Replaced text.", nil), ShouldBeNil)

			Convey("Then the entry is replaced, not duplicated", func() {
				So(store.Len(), ShouldEqual, 3)

				out, _ := store.Query(ctx, "replaced", 1)
				So(out, ShouldResemble, []string{"Replaced text."})
			})
		})

		Convey("When k is zero", func() {
			out, err := store.Query(ctx, "attention", 0)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})
	})
}

func TestMemoryStoreEmbedded(t *testing.T) {
	Convey("Given a memory store with an embedder", t, func() {
		ctx := context.Background()
		store := NewMemoryStore(WithEmbedder(fixedEmbedder{
			"north": {0, 1},
			"east":  {1, 0},
			"up":    {0.1, 0.9},
		}))

		So(store.Insert(ctx, "n", "north", nil), ShouldBeNil)
		So(store.Insert(ctx, "e", "east", nil), ShouldBeNil)

		Convey("Then ranking follows cosine similarity", func() {
			out, err := store.Query(ctx, "up", 1)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, []string{"north"})
		})

		Convey("Then embedding failures are returned", func() {
			So(store.Insert(ctx, "x", "unknown", nil), ShouldNotBeNil)

			_, err := store.Query(ctx, "unknown", 1)
			So(err, ShouldNotBeNil)
		})
	})
}
