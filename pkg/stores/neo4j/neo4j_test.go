package neo4j

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/hivemind/pkg/graph"
)

type statement struct {
	cypher string
	params map[string]any
}

func newRecordingClient(t *testing.T, err error) (*Client, *[]statement) {
	t.Helper()

	client, newErr := New("bolt://localhost:7687", "neo4j", "secret")

	if newErr != nil {
		t.Fatalf("unexpected error: %v", newErr)
	}

	t.Cleanup(func() { client.Close(context.Background()) })

	var statements []statement

	client.run = func(ctx context.Context, cypher string, params map[string]any) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("write without a deadline: %s", cypher)
		}

		statements = append(statements, statement{cypher: cypher, params: params})
		return err
	}

	return client, &statements
}

func TestNew(t *testing.T) {
	Convey("Given a Bolt uri", t, func() {
		client, err := New("neo4j://localhost:7687", "", "")

		Convey("Then a driver is created without contacting the server", func() {
			So(err, ShouldBeNil)
			So(client.database, ShouldEqual, "neo4j")
			So(client.Close(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given an http uri", t, func() {
		_, err := New("http://localhost:7474", "neo4j", "secret")

		Convey("Then it is rejected", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "http://localhost:7474")
		})
	})
}

func TestMirrorEdge(t *testing.T) {
	Convey("Given a client", t, func() {
		client, statements := newRecordingClient(t, nil)

		err := client.MirrorEdge(context.Background(), graph.Edge{
			Subject: "BERT", Object: "Transformer", Relation: "based_on",
		})

		Convey("Then the edge is merged with its relation as a property", func() {
			So(err, ShouldBeNil)
			So(*statements, ShouldHaveLength, 1)
			So((*statements)[0].cypher, ShouldEqual, mergeEdge)
			So((*statements)[0].params, ShouldResemble, map[string]any{
				"subject":  "BERT",
				"object":   "Transformer",
				"relation": "based_on",
			})
		})

		Convey("When the graph is reset", func() {
			So(client.Reset(context.Background()), ShouldBeNil)

			Convey("Then every entity is detached and deleted", func() {
				So((*statements)[1].cypher, ShouldEqual, deleteAll)
			})
		})
	})
}

func TestWriteErrors(t *testing.T) {
	Convey("Given a database that refuses writes", t, func() {
		client, _ := newRecordingClient(t, errors.New("Neo.ClientError.Security.Unauthorized"))

		err := client.Reset(context.Background())

		Convey("Then the error surfaces", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Unauthorized")
		})
	})
}

func TestAsMirror(t *testing.T) {
	Convey("Given a graph mirrored into the client", t, func() {
		client, statements := newRecordingClient(t, nil)
		store := graph.NewStore(graph.WithMirror(client))

		store.AddEdge("BERT", "Transformer", "based_on")
		store.Reset()

		Convey("Then every mutation reaches the database in order", func() {
			So(*statements, ShouldHaveLength, 2)
			So((*statements)[0].cypher, ShouldEqual, mergeEdge)
			So((*statements)[1].cypher, ShouldEqual, deleteAll)
		})
	})
}
