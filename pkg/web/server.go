// Package web serves the roadmap state of a running sync engine as a JSON API.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/harrisonrobin/roadmap/pkg/model"
	"github.com/harrisonrobin/roadmap/pkg/syncer"
	"github.com/harrisonrobin/roadmap/pkg/timeline"
)

// Engine is the part of syncer.Engine the server uses.
type Engine interface {
	Snapshot() syncer.Snapshot
	Toggle(key string, m model.Milestone) (model.Ticks, error)
	Set(key string, ticks model.Ticks) error
	Save(ctx context.Context) error
	Refresh(ctx context.Context) error
}

type Options struct {
	Window   timeline.Window
	Lanes    []string
	Geometry timeline.Geometry
	Logger   hclog.Logger
	Now      func() time.Time
}

// Server is the roadmap web server
type Server struct {
	engine Engine
	opts   Options
	log    hclog.Logger
	router *gin.Engine
}

// NewServer creates a new web server
func NewServer(e Engine, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	s := &Server{
		engine: e,
		opts:   opts,
		log:    opts.Logger.Named("web"),
		router: router,
	}
	router.Use(gin.Recovery(), s.logRequests)

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/chart", s.handleChart)
		api.GET("/progress", s.handleProgress)
		api.GET("/overdue", s.handleOverdue)
		api.POST("/ticks", s.handleTicks)
		api.POST("/save", s.handleSave)
		api.POST("/refresh", s.handleRefresh)
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start))
}
