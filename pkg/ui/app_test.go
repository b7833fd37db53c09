package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/ingest"
	"github.com/theapemachine/hivemind/pkg/vector"
)

type staticExtractor struct{}

func (staticExtractor) Extract(ctx context.Context, chunk string) (string, error) {
	return "(Paper, introduces, Idea)", nil
}

type staticGenerator struct {
	reply string
	err   error
}

func (generator staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return generator.reply, generator.err
}

func newModel(generator engine.Generator) (model, *graph.Store) {
	entities := graph.NewStore()
	vectors := vector.NewMemoryStore()
	pipeline := ingest.NewPipeline(vectors, entities, ingest.WithExtractor(staticExtractor{}))

	m := New(
		context.Background(),
		engine.NewEngine(entities, vectors, engine.WithGenerator(generator)),
		ingest.NewWorker(pipeline),
	).(model)

	return m, entities
}

func update(m model, msg tea.Msg) model {
	next, _ := m.Update(msg)
	return next.(model)
}

func TestQuestion(t *testing.T) {
	Convey("Given a chat backed by a model", t, func() {
		m, entities := newModel(staticGenerator{reply: "Paper introduces Idea."})
		entities.AddEdge("Paper", "Idea", "introduces")

		Convey("When a question is submitted", func() {
			cmd := m.submit("What does Paper introduce?")

			Convey("Then the question is echoed and the answer arrives", func() {
				So(m.pending, ShouldBeTrue)
				So(m.messages, ShouldHaveLength, 1)
				So(m.messages[0], ShouldContainSubstring, "What does Paper introduce?")

				msg := cmd()
				So(msg, ShouldHaveSameTypeAs, answerMsg{})

				m = update(m, msg)
				So(m.pending, ShouldBeFalse)
				So(m.messages, ShouldHaveLength, 3)
				So(m.messages[1], ShouldContainSubstring, "Paper introduces Idea.")
				So(m.messages[2], ShouldContainSubstring, "(Paper --introduces--> Idea)")
			})
		})
	})

	Convey("Given a chat whose model fails", t, func() {
		m, _ := newModel(staticGenerator{err: errors.New("offline")})

		msg := m.submit("hello")()

		Convey("Then the failure is shown", func() {
			So(msg, ShouldHaveSameTypeAs, errorMsg{})

			m = update(m, msg)
			So(m.messages[len(m.messages)-1], ShouldContainSubstring, "offline")
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a chat with a populated graph", t, func() {
		m, entities := newModel(staticGenerator{reply: "ok"})
		entities.AddEdge("A", "B", "causes")
		first := m.sessionID

		Convey("When the graph is shown", func() {
			So(m.submit("/graph"), ShouldBeNil)

			Convey("Then every edge is listed", func() {
				So(m.messages, ShouldHaveLength, 1)
				So(m.messages[0], ShouldContainSubstring, "(A --causes--> B)")
			})
		})

		Convey("When a new session is started", func() {
			So(m.submit("/new"), ShouldBeNil)

			Convey("Then the id changes and the graph is cleared", func() {
				So(m.sessionID, ShouldNotEqual, first)
				So(entities.Neighbors("A"), ShouldBeEmpty)
			})
		})

		Convey("When sessions are listed without a history store", func() {
			m.submit("/sessions")

			Convey("Then nothing is listed", func() {
				So(m.messages[0], ShouldEqual, "No sessions yet.")
			})
		})

		Convey("When an unknown command is given", func() {
			m.submit("/bogus")

			Convey("Then it is reported", func() {
				So(m.messages[0], ShouldContainSubstring, "/bogus")
			})
		})
	})
}

func TestIngestCommand(t *testing.T) {
	Convey("Given a file on disk", t, func() {
		m, entities := newModel(staticGenerator{reply: "ok"})
		path := filepath.Join(t.TempDir(), "paper.txt")
		So(os.WriteFile(path, []byte("A paper about an idea."), 0o644), ShouldBeNil)

		Convey("When it is ingested", func() {
			cmd := m.submit("/ingest " + path)
			So(cmd, ShouldNotBeNil)
			So(m.progress, ShouldNotBeNil)

			Convey("Then progress streams until the batch is done", func() {
				var statuses []ingest.Status

				for msg := cmd(); ; msg = cmd() {
					if progress, ok := msg.(progressMsg); ok {
						statuses = append(statuses, progress.progress.Status)
						m = update(m, msg)
						cmd = waitForProgress(m.progress)
						continue
					}

					So(msg, ShouldHaveSameTypeAs, ingestDoneMsg{})
					m = update(m, msg)
					break
				}

				So(statuses, ShouldResemble, []ingest.Status{ingest.StatusIndexing, ingest.StatusIndexed})
				So(m.progress, ShouldBeNil)
				So(entities.Neighbors("Paper"), ShouldHaveLength, 1)
				So(m.messages[len(m.messages)-1], ShouldContainSubstring, "2 entities, 1 relations")
			})
		})

		Convey("When no path is given", func() {
			So(m.submit("/ingest"), ShouldBeNil)

			Convey("Then usage is shown", func() {
				So(m.messages[0], ShouldContainSubstring, "usage")
			})
		})
	})
}

func TestKeys(t *testing.T) {
	Convey("Given a fresh chat", t, func() {
		m, _ := newModel(staticGenerator{reply: "ok"})

		Convey("Then an empty Enter does nothing", func() {
			m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
			So(m.messages, ShouldBeEmpty)
			So(m.pending, ShouldBeFalse)
		})

		Convey("Then Enter sends the typed question", func() {
			m.textarea.SetValue("hello")
			m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
			So(m.pending, ShouldBeTrue)
			So(m.textarea.Value(), ShouldBeEmpty)
		})

		Convey("Then the view shows the session", func() {
			So(m.View(), ShouldContainSubstring, m.sessionID)
		})
	})
}
