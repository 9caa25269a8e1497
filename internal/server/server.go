package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/generator"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/provider"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/storage"
	"github.com/flamemarketdc-cyber/SErver-Builder/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port              int
	EnableCORS        bool
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:              8080,
		EnableCORS:        true,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // No write timeout for SSE
		HeartbeatInterval: SSEHeartbeatInterval,
	}
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	appConfig *types.Config
	providers *provider.Registry
	bus       *event.Bus
	genOpts   []generator.Option
	history   *storage.Store

	runs  *runRegistry
	chats *chatRegistry
}

// Option configures a Server.
type Option func(*Server)

// WithBus publishes and streams events on bus instead of the global bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Server) {
		s.bus = bus
	}
}

// WithGeneratorOptions adds options to every generator the server creates.
func WithGeneratorOptions(opts ...generator.Option) Option {
	return func(s *Server) {
		s.genOpts = append(s.genOpts, opts...)
	}
}

// WithHistory saves finished generations to store and serves them under
// /history.
func WithHistory(store *storage.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, providers *provider.Registry, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = SSEHeartbeatInterval
	}
	if appConfig == nil {
		appConfig = &types.Config{}
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		appConfig: appConfig,
		providers: providers,
		bus:       event.Default(),
		runs:      newRunRegistry(),
		chats:     newChatRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Run-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// requestLogger logs each request through zerolog once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Component("http").Debug().
				Str("requestID", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// generator returns a generator for model, or the configured model when
// model is empty.
func (s *Server) generator(model string) *generator.Generator {
	if model == "" {
		model = s.appConfig.Model
	}
	opts := []generator.Option{
		generator.WithBus(s.bus),
		generator.WithGeneration(s.appConfig.Generation),
	}
	opts = append(opts, s.genOpts...)
	opts = append(opts, generator.WithModel(model))
	return generator.New(s.providers, opts...)
}

// resolveSmall resolves the model for toolkit and chat requests: the
// explicit one, then the configured small model, then the default.
func (s *Server) resolveSmall(model string) (provider.Provider, *types.Model, error) {
	if model == "" {
		model = s.appConfig.SmallModel
	}
	if model == "" {
		model = s.appConfig.Model
	}
	return s.providers.Resolve(model)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown aborts active runs and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.runs.abortAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
