// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package server exposes a catalog over HTTP with gin.
//
// Routes:
//
//	GET  /health          liveness, {"ok": true}
//	GET  /search?q=...    suggestions, candidates and up to 10 contexts
//	POST /ask             {"query": "..."} answered from retrieved contexts
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	grocery "github.com/allanbutler/kg-rag-grocery"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// ErrCatalogRequired is returned by New without a catalog.
var ErrCatalogRequired = errors.New("catalog is required")

// Catalog is the query surface the server needs. *grocery.Catalog
// satisfies it.
type Catalog interface {
	Suggest(ctx context.Context, text string) (*grocery.SuggestResult, error)
	Ask(ctx context.Context, question string) (*grocery.AskResult, error)
}

// Server serves catalog queries over HTTP.
type Server struct {
	catalog Catalog
	router  *gin.Engine
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server and registers its routes.
func New(catalog Catalog, opts ...Option) (*Server, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	s := &Server{
		catalog: catalog,
		logger:  slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = gin.New()
	s.router.Use(s.recovery(), requestID(), s.accessLog())
	s.router.GET("/health", s.health)
	s.router.GET("/search", s.search)
	s.router.POST("/ask", s.ask)
	return s, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) search(c *gin.Context) {
	text := strings.TrimSpace(c.Query("q"))
	if text == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "query parameter q is required"})
		return
	}
	res, err := s.catalog.Suggest(c.Request.Context(), text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSearchResponse(res))
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "body must be JSON with a query field"})
		return
	}
	text := strings.TrimSpace(req.Query)
	if text == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	res, err := s.catalog.Ask(c.Request.Context(), text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAskResponse(res))
}

// fail maps catalog errors to status codes. A store that cannot be loaded
// makes the service unavailable.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, grocery.ErrStoreLoad):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	s.logger.Error("request failed", "path", c.FullPath(), "status", status,
		"request_id", c.GetString("request_id"), "err", err)
	c.JSON(status, errorResponse{Error: err.Error()})
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic recovered", "panic", r,
					"path", c.Request.URL.Path, "stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			}
		}()
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"),
			"elapsed", time.Since(start))
	}
}
