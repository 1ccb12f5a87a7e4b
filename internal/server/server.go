// Package server provides the HTTP API for the feedback service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Nikhil-Zer0/PublicService-backend/internal/auth"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/config"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/keyword"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/models"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/storage"
	"github.com/Nikhil-Zer0/PublicService-backend/internal/vector"
)

// Feedback runs the submission and summary flows. Implemented by retrieval.Orchestrator.
type Feedback interface {
	Submit(ctx context.Context, in models.FeedbackInput) (*models.SubmitResult, error)
	Summarize(ctx context.Context, district, service string) (*models.SummaryResult, error)
}

// Server is the HTTP server for the feedback API.
type Server struct {
	feedback       Feedback
	storage        storage.Storage
	index          vector.VectorIndex
	keyword        keyword.KeywordIndex
	verifier       auth.Verifier
	summaryAuth    bool
	dataPaths      *storage.DataPaths
	requestTimeout time.Duration
	config         *config.ServerConfig
	logger         *zap.Logger
	server         *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithKeywordIndex enables the feedback search endpoint.
func WithKeywordIndex(k keyword.KeywordIndex) Option {
	return func(s *Server) { s.keyword = k }
}

// WithVerifier requires bearer tokens accepted by v on feedback submission. When summaryAuth is
// set the summary endpoint requires them too.
func WithVerifier(v auth.Verifier, summaryAuth bool) Option {
	return func(s *Server) {
		s.verifier = v
		s.summaryAuth = summaryAuth
	}
}

// WithDataPaths sets the stores whose size the status endpoint reports.
func WithDataPaths(p storage.DataPaths) Option {
	return func(s *Server) { s.dataPaths = &p }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	feedback Feedback,
	store storage.Storage,
	index vector.VectorIndex,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		feedback:       feedback,
		storage:        store,
		index:          index,
		config:         cfg,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}
	if s.requestTimeout <= 0 {
		s.requestTimeout = 2 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// corsOptions allows any origin and header. Preflight requests are answered before auth.
var corsOptions = cors.Options{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	},
	AllowedHeaders: []string{"*"},
	MaxAge:         600,
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions))
	r.Use(middleware.Timeout(s.requestTimeout))

	requireToken := auth.Middleware(s.verifier, s.authError)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Post("/submit_feedback", s.handleSubmit)
		r.Post("/submit_feedback/", s.handleSubmit)
	})
	r.Group(func(r chi.Router) {
		if s.summaryAuth {
			r.Use(requireToken)
		}
		r.Get("/summary/{district_name}/{service_type}", s.handleSummary)
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireToken)
		r.Get("/feedback", s.handleListFeedback)
		r.Get("/feedback/search", s.handleSearch)
		r.Get("/feedback/{id}", s.handleGetFeedback)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
