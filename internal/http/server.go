// Package http serves the dashboard: HTML pages, a JSON API over sessions
// and a WebSocket that pushes changed sinks after every action.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"gnucashboard/internal/dashboard"
	"gnucashboard/internal/log"
	appweb "gnucashboard/web"
)

const requestIDHeader = "X-Request-ID"

type Options struct {
	Addr           string
	AllowedOrigins []string
	// RequestsPerMinute limits POST and DELETE requests per client.
	RequestsPerMinute int
	Logger            *log.Logger
}

type Server struct {
	http.Server
	sessions  *dashboard.Sessions
	source    *dashboard.Source
	templates *template.Template
	limiter   *rateLimiter
	metrics   *securityMetrics
	origins   []string
	upgrader  websocket.Upgrader
	logger    *log.Logger

	closing      chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(sessions *dashboard.Sessions, source *dashboard.Source, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static files: %w", err)
	}

	s := &Server{
		sessions:  sessions,
		source:    source,
		templates: t,
		limiter:   newRateLimiter(opts.RequestsPerMinute),
		metrics:   &securityMetrics{},
		origins:   opts.AllowedOrigins,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		closing:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(http.FS(static)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(static http.FileSystem) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withRequestID)
	r.Use(log.Middleware(s.logger, func(r *http.Request) string { return r.Header.Get(requestIDHeader) }))
	r.Use(securityHeaders)
	r.Use(s.detectSuspicious)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}).Handler)
	r.Use(s.limitWrites)

	files := http.StripPrefix("/static/", http.FileServer(static))
	r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/", s.handleIndex)
	r.Get("/views/{view}", s.handleViewPage)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Get("/settings", s.handleSettings)
			r.Get("/views/{view}", s.handleRenderView)
			r.Post("/views/{view}/actions", s.handleAction)
		})
	})
	r.Get("/ws/sessions/{id}/views/{view}", s.handleWebSocket)
	return r
}

// withRequestID keeps the caller's request id or assigns one, and echoes it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = generateRequestID()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown closes open WebSockets, stops the rate limiter and shuts the
// server down gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.closing)
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.Info("HTTP server stopped",
			"rate_limit_hits", s.metrics.rateLimitHits.Load(),
			"suspicious_requests", s.metrics.suspiciousRequests.Load())
	})
	return shutdownErr
}
