// Package server exposes the Journey Builder lifecycle and execute
// endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/example/journey-sms-activity/internal/activity"
	"github.com/example/journey-sms-activity/internal/events"
	"github.com/example/journey-sms-activity/internal/provider"
)

// Options bundles the collaborators the server orchestrates.
type Options struct {
	Logger  zerolog.Logger
	Client  *provider.Client
	Builder *activity.Builder
	Store   ConfigStore
	// Publisher emits delivery status events; nil disables publishing.
	Publisher *events.Publisher
	// BaseURL is echoed into the activity manifest.
	BaseURL string
	// StaticTestData force-enables static regression arguments for every
	// request, equivalent to the per-request opt-in flags.
	StaticTestData bool
}

// Server handles Journey Builder lifecycle and execute calls.
type Server struct {
	logger    zerolog.Logger
	client    *provider.Client
	builder   *activity.Builder
	store     ConfigStore
	publisher *events.Publisher
	baseURL   string
	staticAll bool
	engine    *gin.Engine
}

// New constructs the server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, errors.New("server: provider client dependency is required")
	}
	if opts.Builder == nil {
		return nil, errors.New("server: payload builder dependency is required")
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	logger := opts.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	s := &Server{
		logger:    logger,
		client:    opts.Client,
		builder:   opts.Builder,
		store:     opts.Store,
		publisher: opts.Publisher,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		staticAll: opts.StaticTestData,
	}
	s.engine = s.buildEngine()
	return s, nil
}

// Handler returns the http.Handler for the server, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(correlationMiddleware(s.logger))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"POST", "GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", correlationHeader},
		ExposeHeaders: []string{correlationHeader},
	}))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "Server is up and running")
	})
	engine.GET("/config.json", s.handleManifest)

	for _, route := range []string{"/save", "/publish", "/validate", "/stop"} {
		engine.GET(route, s.handleLifecycleProbe(route))
		engine.HEAD(route, s.handleLifecycleProbe(route))
	}

	engine.POST("/save", s.handleSave)
	engine.POST("/validate", s.handleValidate)
	engine.POST("/publish", s.handlePublish)
	engine.POST("/stop", s.handleStop)
	engine.POST("/execute", s.handleExecute)
	engine.POST("/executeV2", s.handleExecute)

	return engine
}
