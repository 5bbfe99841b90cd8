package http_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/rota/internal/models"
	"github.com/core-coin/rota/pkg/logger"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	// simulations of up to a million draws run inside a request
	writeTimeout   = 60 * time.Second
	idleTimeout    = 2 * time.Minute
	maxHeaderBytes = 64 << 10
)

// HTTPServer serves the public spin endpoint and the operator API.
type HTTPServer struct {
	logger *logger.Logger

	router *gin.Engine
	// server is built once in NewHTTPServer and never replaced, so Start and
	// Shutdown may run on different goroutines
	server *http.Server
	// adminToken guards the operator routes; empty disables them
	adminToken string

	rota models.RotaI
}

// corsMiddleware lets browser dashboards call the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With, "+AdminTokenHeader)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// NewHTTPServer creates the API server listening on port. Nothing is bound
// until Start.
func NewHTTPServer(rota models.RotaI, port int, adminToken string, logger *logger.Logger) *HTTPServer {
	router := gin.Default()
	router.Use(corsMiddleware())

	s := &HTTPServer{
		logger:     logger.With("component", "http"),
		router:     router,
		adminToken: adminToken,
		rota:       rota,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	s.routes()

	return s
}

// Start serves until Shutdown. It blocks.
func (s *HTTPServer) Start() {
	s.logger.Infow("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Fatal("Failed to start the HTTP server: ", err)
	}
}

// Shutdown stops accepting connections and waits for active requests,
// at most ShutdownTimeout. It is safe to call before or without Start.
func (s *HTTPServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	s.logger.Info("HTTP server shut down")
	return nil
}

var _ models.APIServer = (*HTTPServer)(nil)
