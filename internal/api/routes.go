package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/runboard/internal/config"
	"github.com/yegors/runboard/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	gatherer   prometheus.Gatherer
	logger     *logger.Logger
}

// NewRouter creates a new API router. A nil gatherer disables /metrics.
func NewRouter(session Session, journal JournalReader, config *config.Config, gatherer prometheus.Gatherer, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(session, journal, config, logger),
		middleware: NewMiddleware(session, logger),
		config:     config,
		gatherer:   gatherer,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Board
		router.Get("/board", r.handler.GetBoard)
		router.Post("/board/load", r.handler.LoadBoard)
		router.Get("/session", r.handler.GetSession)

		// Assignment
		router.Post("/runs/{runId}/flights", r.handler.AssignFlight)
		router.Post("/auto-assign", r.handler.AutoAssign)

		// Local layout edits
		router.Route("/layout", func(router chi.Router) {
			router.Get("/", r.handler.GetLayout)
			router.Post("/reorder", r.handler.ReorderEntry)
			router.Post("/move", r.handler.MoveEntry)
			router.Post("/insert", r.handler.InsertUnassigned)
			router.Post("/discard", r.handler.DiscardEdits)
			router.Post("/save", r.handler.SaveLayout)
		})

		// Mutation journal
		router.Get("/journal", r.handler.GetJournal)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	if r.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	return router
}
