package service

import (
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/google/uuid"
	"github.com/theapemachine/hivemind/pkg/engine"
	"github.com/theapemachine/hivemind/pkg/errors"
	"github.com/theapemachine/hivemind/pkg/graph"
	"github.com/theapemachine/hivemind/pkg/ingest"
	"github.com/theapemachine/hivemind/pkg/metrics"
)

const defaultSessionLimit = 100

/*
Server exposes ingestion, querying and the session history over HTTP.
*/
type Server struct {
	app      *fiber.App
	engine   *engine.Engine
	pipeline *ingest.Pipeline
	files    *ingest.Worker
	metrics  *metrics.Retrieval
}

type ServerOption func(*Server)

func NewServer(
	eng *engine.Engine, pipeline *ingest.Pipeline, options ...ServerOption,
) *Server {
	srv := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "HiveMind",
			ServerHeader: "HiveMind",
		}),
		engine:   eng,
		pipeline: pipeline,
	}

	for _, option := range options {
		option(srv)
	}

	srv.routes()
	return srv
}

func (srv *Server) routes() {
	srv.app.Use(logger.New())

	srv.app.Get("/", srv.handleRoot)
	srv.app.Post("/documents", srv.handleIngest)
	srv.app.Post("/documents/files", srv.handleIngestFiles)
	srv.app.Post("/query", srv.handleQuery)
	srv.app.Get("/sessions", srv.handleListSessions)
	srv.app.Post("/sessions", srv.handleNewSession)
	srv.app.Get("/sessions/:id", srv.handleSessionMessages)
	srv.app.Get("/graph", srv.handleGraph)
	srv.app.Delete("/graph", srv.handleResetGraph)
	srv.app.Get("/stats", srv.handleStats)
}

// App returns the underlying fiber app, mostly for tests.
func (srv *Server) App() *fiber.App {
	return srv.app
}

func (srv *Server) Start(addr string) error {
	log.Info("serving http", "addr", addr)
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *Server) Shutdown() error {
	return srv.app.Shutdown()
}

func (srv *Server) handleRoot(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

type ingestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

func (srv *Server) handleIngest(ctx fiber.Ctx) error {
	var request ingestRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("invalid document: %v", err))
	}

	if request.Source == "" {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("source is required"))
	}

	report, err := srv.pipeline.Ingest(ctx.RequestCtx(), request.Source, request.Text)

	if err != nil {
		log.Error("failed to ingest document", "source", request.Source, "error", err)
		return fail(ctx, errors.ErrInternal.WithMessagef("%v", err))
	}

	return ctx.Status(fiber.StatusCreated).JSON(report)
}

type ingestFilesRequest struct {
	Locations []string `json:"locations"`
}

type ingestFilesResponse struct {
	Reports []ingest.Report `json:"reports"`
	Errors  []string        `json:"errors,omitempty"`
}

/*
handleIngestFiles runs a batch through the document worker and reports every
document, so one unreadable file does not hide the others. Locations must be
relative to the document root; without one the endpoint is disabled.
*/
func (srv *Server) handleIngestFiles(ctx fiber.Ctx) error {
	var request ingestFilesRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("invalid batch: %v", err))
	}

	if len(request.Locations) == 0 {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("locations are required"))
	}

	for _, location := range request.Locations {
		if !filepath.IsLocal(location) {
			return fail(ctx, errors.ErrBadRequest.WithMessagef(
				"location %q must be relative to the document root", location,
			))
		}
	}

	if srv.files == nil {
		return fail(ctx, errors.ErrForbidden.WithMessagef("no document root is configured"))
	}

	response := ingestFilesResponse{Reports: []ingest.Report{}}

	reports, _ := srv.files.Run(
		ctx.RequestCtx(), request.Locations, func(progress ingest.Progress) {
			if progress.Status == ingest.StatusFailed {
				response.Errors = append(response.Errors, progress.String())
			}
		},
	)

	response.Reports = append(response.Reports, reports...)

	status := fiber.StatusOK

	if len(response.Errors) > 0 {
		status = fiber.StatusMultiStatus
	}

	return ctx.Status(status).JSON(response)
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

func (srv *Server) handleQuery(ctx fiber.Ctx) error {
	var request queryRequest

	if err := ctx.Bind().Body(&request); err != nil {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("invalid query: %v", err))
	}

	if request.Query == "" {
		return fail(ctx, errors.ErrBadRequest.WithMessagef("query is required"))
	}

	answer, err := srv.engine.Query(ctx.RequestCtx(), request.Query, request.SessionID)

	if errors.Is(err, engine.ErrGeneration) {
		return fail(ctx, errors.ErrUpstream.WithMessagef("%v", err))
	}

	if err != nil {
		return fail(ctx, errors.ErrInternal.WithMessagef("%v", err))
	}

	return ctx.Status(fiber.StatusOK).JSON(answer)
}

func (srv *Server) handleListSessions(ctx fiber.Ctx) error {
	limit := defaultSessionLimit

	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)

		if err != nil {
			return fail(ctx, errors.ErrBadRequest.WithMessagef("invalid limit %q", raw))
		}

		limit = parsed
	}

	summaries, err := srv.engine.ListSessions(ctx.RequestCtx(), limit)

	if err != nil {
		return fail(ctx, errors.ErrInternal.WithMessagef("%v", err))
	}

	return ctx.Status(fiber.StatusOK).JSON(summaries)
}

/*
handleNewSession starts a fresh conversation. As in the chat client, this
also clears the entity graph.
*/
func (srv *Server) handleNewSession(ctx fiber.Ctx) error {
	srv.engine.ResetGraph()

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": uuid.NewString(),
	})
}

func (srv *Server) handleSessionMessages(ctx fiber.Ctx) error {
	id := ctx.Params("id")
	messages, err := srv.engine.SessionMessages(ctx.RequestCtx(), id)

	if err != nil {
		return fail(ctx, errors.ErrInternal.WithMessagef("%v", err))
	}

	if len(messages) == 0 {
		return fail(ctx, errors.ErrNotFound.WithMessagef("session %s not found", id))
	}

	return ctx.Status(fiber.StatusOK).JSON(messages)
}

type graphResponse struct {
	Entities []string     `json:"entities"`
	Edges    []graph.Edge `json:"edges"`
}

func (srv *Server) handleGraph(ctx fiber.Ctx) error {
	entities := srv.engine.Graph()

	return ctx.Status(fiber.StatusOK).JSON(graphResponse{
		Entities: entities.Entities(),
		Edges:    entities.Edges(),
	})
}

func (srv *Server) handleResetGraph(ctx fiber.Ctx) error {
	srv.engine.ResetGraph()
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (srv *Server) handleStats(ctx fiber.Ctx) error {
	stats := fiber.Map{}

	if srv.metrics != nil {
		for key, value := range srv.metrics.GetMetrics() {
			stats[key] = value
		}
	}

	entities, edges := srv.engine.Graph().Len()
	stats["entities"] = entities
	stats["edges"] = edges
	stats["model"] = srv.engine.HasModel()

	return ctx.Status(fiber.StatusOK).JSON(stats)
}

func fail(ctx fiber.Ctx, err *errors.APIError) error {
	return ctx.Status(err.Code).JSON(err)
}

func WithMetrics(m *metrics.Retrieval) ServerOption {
	return func(srv *Server) {
		srv.metrics = m
	}
}

/*
WithDocuments enables POST /documents/files. The worker's pipeline should
read through an ingest.DirSource so locations stay inside its root.
*/
func WithDocuments(worker *ingest.Worker) ServerOption {
	return func(srv *Server) {
		srv.files = worker
	}
}
