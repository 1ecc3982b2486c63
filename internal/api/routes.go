package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maumercado/flowcore/internal/api/handlers"
	apiMiddleware "github.com/maumercado/flowcore/internal/api/middleware"
	"github.com/maumercado/flowcore/internal/api/websocket"
	"github.com/maumercado/flowcore/internal/config"
	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/runner"
)

// Server is the admin/control HTTP surface: runner health and status,
// manual flow-run submission, a live event stream, and the metrics
// passthrough. It is an operational API, not a UI.
type Server struct {
	router        *chi.Mux
	config        *config.Config
	runnerHandler *handlers.RunnerHandler
	wsHub         *websocket.Hub
	wsHandler     *websocket.Handler
	publisher     *events.RedisPubSub
}

// NewServer creates a new HTTP server fronting r.
func NewServer(cfg *config.Config, r *runner.Runner, publisher *events.RedisPubSub) *Server {
	wsHub := websocket.NewHub(publisher)

	s := &Server{
		router:        chi.NewRouter(),
		config:        cfg,
		runnerHandler: handlers.NewRunnerHandler(r),
		wsHub:         wsHub,
		wsHandler:     websocket.NewHandler(wsHub),
		publisher:     publisher,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(apiMiddleware.RequestLogger())
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Heartbeat("/health"))
}

func (s *Server) setupRoutes() {
	authCfg := &apiMiddleware.AuthConfig{
		Enabled:   s.config.Auth.Enabled,
		JWTSecret: s.config.Auth.JWTSecret,
		APIKeys:   apiKeySet(s.config.Auth.APIKeys),
	}

	s.router.Route("/runner", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		if s.config.Queue.RateLimitRPS > 0 {
			r.Use(apiMiddleware.ClientRateLimit(s.config.Queue.RateLimitRPS))
		}

		r.Get("/health", s.runnerHandler.HealthCheck)
		r.Get("/status", s.runnerHandler.GetStatus)

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.Auth(authCfg))
			r.Post("/flow-runs/{flowRunID}/submit", s.runnerHandler.SubmitFlowRun)
		})
	})

	s.router.Get("/ws", s.wsHandler.ServeWS)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

func apiKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Start starts the WebSocket hub.
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the WebSocket hub.
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publisher returns the event publisher.
func (s *Server) Publisher() *events.RedisPubSub {
	return s.publisher
}
