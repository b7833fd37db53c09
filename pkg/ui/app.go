package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/ingest"
)

const (
	gap          = "\n\n"
	sessionLimit = 100
)

const welcome = `Welcome to HiveMind!
Ask a question about your documents and press Enter.

Commands:
  /ingest <path>...  index documents in the background
  /new               start a new session and clear the graph
  /sessions          list recent sessions
  /graph             show the knowledge graph
Press Ctrl+C or Esc to quit.`

type model struct {
	ctx       context.Context
	viewport  viewport.Model
	messages  []string
	textarea  textarea.Model
	engine    *engine.Engine
	worker    *ingest.Worker
	progress  <-chan ingest.Progress
	sessionID string
	pending   bool
}

/*
New builds the chat model. Questions go to eng on a tea.Cmd so the screen
stays responsive, and /ingest batches run on worker in the background.
*/
func New(ctx context.Context, eng *engine.Engine, worker *ingest.Worker) tea.Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 2000

	ta.SetWidth(80)
	ta.SetHeight(3)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent(welcome)

	return model{
		ctx:       ctx,
		textarea:  ta,
		messages:  []string{},
		viewport:  vp,
		engine:    eng,
		worker:    worker,
		sessionID: uuid.NewString(),
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		cmd   tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.textarea.SetWidth(msg.Width)
		m.viewport.Height = msg.Height - m.textarea.Height() - lipgloss.Height(gap) - 2
		m.render()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, defaultKeymap.quit):
			return m, tea.Quit
		case key.Matches(msg, defaultKeymap.send):
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()

			if input != "" {
				cmd = m.submit(input)
			}
		}

	case answerMsg:
		m.pending = false
		m.push(agentStyle.Render("HiveMind: ") + msg.answer.Text)

		for _, connection := range msg.answer.Connections {
			m.push(graphStyle.Render("  " + connection))
		}

	case errorMsg:
		m.pending = false
		m.push(errorStyle.Render("Error: ") + msg.err.Error())

	case progressMsg:
		style := progressStyle

		if msg.progress.Status == ingest.StatusFailed {
			style = errorStyle
		}

		m.push(style.Render(msg.progress.String()))
		cmd = waitForProgress(m.progress)

	case ingestDoneMsg:
		m.progress = nil
		entities, edges := m.engine.Graph().Len()
		m.push(progressStyle.Render(fmt.Sprintf("Indexing finished: %d entities, %d relations", entities, edges)))
	}

	return m, tea.Batch(tiCmd, vpCmd, cmd)
}

func (m model) View() string {
	status := fmt.Sprintf("session %s", m.sessionID)

	if m.pending {
		status += " · thinking..."
	}

	if m.progress != nil {
		status += " · indexing..."
	}

	return fmt.Sprintf(
		"%s%s%s\n%s",
		m.viewport.View(),
		gap,
		m.textarea.View(),
		statusBarStyle.Render(status),
	)
}

/*
submit handles a line of input. Slash commands act immediately; anything else
is a question.
*/
func (m *model) submit(input string) tea.Cmd {
	if !strings.HasPrefix(input, "/") {
		m.push(senderStyle.Render("You: ") + input)
		m.pending = true
		return ask(m.ctx, m.engine, input, m.sessionID)
	}

	fields := strings.Fields(input)

	switch fields[0] {
	case "/new":
		m.sessionID = uuid.NewString()
		m.engine.ResetGraph()
		m.messages = nil
		m.push(progressStyle.Render("Started session " + m.sessionID))
	case "/ingest":
		if len(fields) < 2 {
			m.push(errorStyle.Render("Error: ") + "usage: /ingest <path>...")
			return nil
		}

		if m.progress != nil {
			m.push(errorStyle.Render("Error: ") + "a batch is already being indexed")
			return nil
		}

		m.progress = m.worker.Start(m.ctx, fields[1:])
		return waitForProgress(m.progress)
	case "/sessions":
		m.listSessions()
	case "/graph":
		m.showGraph()
	default:
		m.push(errorStyle.Render("Error: ") + "unknown command " + fields[0])
	}

	return nil
}

func (m *model) listSessions() {
	summaries, err := m.engine.ListSessions(m.ctx, sessionLimit)

	if err != nil {
		m.push(errorStyle.Render("Error: ") + err.Error())
		return
	}

	if len(summaries) == 0 {
		m.push("No sessions yet.")
		return
	}

	for _, summary := range summaries {
		m.push(fmt.Sprintf(
			"%s  %s → %s  (%d messages)",
			summary.SessionID,
			summary.StartAt.Local().Format("2006-01-02 15:04"),
			summary.EndAt.Local().Format("15:04"),
			summary.MessageCount,
		))
	}
}

func (m *model) showGraph() {
	edges := m.engine.Graph().Edges()

	if len(edges) == 0 {
		m.push("The knowledge graph is empty.")
		return
	}

	for _, edge := range edges {
		m.push(graphStyle.Render(fmt.Sprintf("(%s --%s--> %s)", edge.Subject, edge.Relation, edge.Object)))
	}
}

func (m *model) push(line string) {
	m.messages = append(m.messages, line)
	m.render()
}

func (m *model) render() {
	if len(m.messages) == 0 {
		return
	}

	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(strings.Join(m.messages, "\n")))
	m.viewport.GotoBottom()
}

func ask(ctx context.Context, eng *engine.Engine, question, sessionID string) tea.Cmd {
	return func() tea.Msg {
		answer, err := eng.Query(ctx, question, sessionID)

		if err != nil {
			return errorMsg{err: err}
		}

		return answerMsg{answer: answer}
	}
}

func waitForProgress(progress <-chan ingest.Progress) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progress

		if !ok {
			return ingestDoneMsg{}
		}

		return progressMsg{progress: update}
	}
}
