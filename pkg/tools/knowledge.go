package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/errors"
	"github.com/theapemachine/hivemind/pkg/ingest"
)

/*
Toolset exposes the engine and ingestion pipeline as MCP tools, so an agent
can feed documents in and ask grounded questions.
*/
type Toolset struct {
	engine   *engine.Engine
	pipeline *ingest.Pipeline
}

func NewToolset(eng *engine.Engine, pipeline *ingest.Pipeline) *Toolset {
	return &Toolset{engine: eng, pipeline: pipeline}
}

// NewMCPServer returns a server with every tool in the set registered.
func (toolset *Toolset) NewMCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("hivemind", version, server.WithToolCapabilities(true))
	toolset.Register(srv)
	return srv
}

func (toolset *Toolset) Register(srv *server.MCPServer) {
	srv.AddTool(buildIngestTextTool(), toolset.handleIngestText)
	srv.AddTool(buildQueryTool(), toolset.handleQuery)
	srv.AddTool(buildNeighborsTool(), toolset.handleNeighbors)
	srv.AddTool(buildListSessionsTool(), toolset.handleListSessions)
	srv.AddTool(buildSessionMessagesTool(), toolset.handleSessionMessages)
	srv.AddTool(buildResetGraphTool(), toolset.handleResetGraph)
}

func buildIngestTextTool() mcp.Tool {
	return mcp.NewTool(
		"ingest_text",
		mcp.WithDescription("Chunks a document, indexes every chunk for similarity search and extracts entity relations into the knowledge graph."),
		mcp.WithString("source",
			mcp.Description("Identifier of the document, e.g. its file name"),
			mcp.Required(),
		),
		mcp.WithString("text",
			mcp.Description("Full text of the document"),
			mcp.Required(),
		),
	)
}

func buildQueryTool() mcp.Tool {
	return mcp.NewTool(
		"query",
		mcp.WithDescription("Answers a question using knowledge graph connections, similar document chunks and the session's recent history."),
		mcp.WithString("question",
			mcp.Description("The question to answer"),
			mcp.Required(),
		),
		mcp.WithString("session_id",
			mcp.Description("Conversation to read history from and record the exchange in; omit for a one-off question"),
		),
	)
}

func buildNeighborsTool() mcp.Tool {
	return mcp.NewTool(
		"graph_neighbors",
		mcp.WithDescription("Lists the outgoing relations of an entity in the knowledge graph."),
		mcp.WithString("entity",
			mcp.Description("Exact, case-sensitive entity label"),
			mcp.Required(),
		),
	)
}

func buildListSessionsTool() mcp.Tool {
	return mcp.NewTool(
		"list_sessions",
		mcp.WithDescription("Lists past sessions, most recently active first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of sessions to return (0 = no limit, default 100)"),
		),
	)
}

func buildSessionMessagesTool() mcp.Tool {
	return mcp.NewTool(
		"session_messages",
		mcp.WithDescription("Returns the full transcript of a session in order."),
		mcp.WithString("session_id",
			mcp.Description("Session to read"),
			mcp.Required(),
		),
	)
}

func buildResetGraphTool() mcp.Tool {
	return mcp.NewTool(
		"reset_graph",
		mcp.WithDescription("Discards every entity and relation in the knowledge graph. Indexed chunks and sessions are kept."),
	)
}

func (toolset *Toolset) handleIngestText(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := req.RequireString("text")

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := toolset.pipeline.Ingest(ctx, source, text)

	if err != nil {
		log.Error("ingest_text failed", "source", source, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(report)
}

func (toolset *Toolset) handleQuery(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := toolset.engine.Query(ctx, question, req.GetString("session_id", ""))

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out strings.Builder
	out.WriteString(answer.Text)

	if len(answer.Connections) > 0 {
		out.WriteString("\n\nGraph connections:\n")
		out.WriteString(strings.Join(answer.Connections, "\n"))
	}

	return mcp.NewToolResultText(out.String()), nil
}

func (toolset *Toolset) handleNeighbors(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	entity, err := req.RequireString("entity")

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(toolset.engine.Graph().Neighbors(entity))
}

func (toolset *Toolset) handleListSessions(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	summaries, err := toolset.engine.ListSessions(ctx, req.GetInt("limit", 100))

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(summaries)
}

func (toolset *Toolset) handleSessionMessages(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	messages, err := toolset.engine.SessionMessages(ctx, id)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(messages) == 0 {
		return mcp.NewToolResultError(errors.ErrNotFound.WithMessagef("session %s not found", id).Error()), nil
	}

	return jsonResult(messages)
}

func (toolset *Toolset) handleResetGraph(
	ctx context.Context, req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	toolset.engine.ResetGraph()
	return mcp.NewToolResultText("graph reset"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)

	if err != nil {
		return nil, fmt.Errorf("tools: encode result: %w", err)
	}

	return mcp.NewToolResultText(string(raw)), nil
}
