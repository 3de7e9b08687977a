package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/crack-kitty/claudememkeep/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP front door.
type Options struct {
	Port int
	// AuthToken guards /mcp. Empty disables auth.
	AuthToken string
	// HealthTimeout bounds the store probe behind /healthz.
	HealthTimeout time.Duration
}

type HTTPServer struct {
	router *gin.Engine
	opts   Options
	health Pinger
	mcp    http.Handler
}

// New builds the router: /healthz (also served at /health), /metrics, and the stateless streamable
// MCP endpoint at /mcp.
func New(srv *mcp.Server, health Pinger, opts Options) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(MetricsRecorder())

	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 5 * time.Second
	}

	s := &HTTPServer{
		router: router,
		opts:   opts,
		health: health,
		mcp: mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
			return srv
		}, &mcp.StreamableHTTPOptions{Stateless: true}),
	}
	s.setupRoutes()
	return s
}

func (s *HTTPServer) setupRoutes() {
	s.router.GET("/healthz", s.healthz)
	s.router.GET("/health", s.healthz)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	mcpGroup := s.router.Group("/mcp", BearerAuth(s.opts.AuthToken))
	mcpGroup.POST("", s.serveMCP)
	mcpGroup.GET("", s.serveMCP)
	mcpGroup.DELETE("", s.serveMCP)
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.HealthTimeout)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *HTTPServer) serveMCP(c *gin.Context) {
	// The streamable handler rejects POSTs that do not accept both encodings.
	if c.Request.Method == http.MethodPost {
		c.Request.Header.Set("Accept", "application/json, text/event-stream")
	}
	s.mcp.ServeHTTP(c.Writer, c.Request)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
