// Package api exposes the routing core over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartquery/qrouter/pkg/cache"
	"github.com/smartquery/qrouter/pkg/config"
	"github.com/smartquery/qrouter/pkg/database"
	"github.com/smartquery/qrouter/pkg/pipeline"
	"github.com/smartquery/qrouter/pkg/router"
)

// Server wires the router, cache, and pipeline behind the HTTP API.
type Server struct {
	cfg      *config.Config
	db       *database.Client
	router   *router.Router
	cache    *cache.RoutingCache
	pipeline *pipeline.Orchestrator
	httpSrv  *http.Server
}

// NewServer creates the API server. db may be nil (health reports the
// database as disabled) and orch may be nil (the answer endpoint returns
// 503 until retriever and generator collaborators are configured).
func NewServer(cfg *config.Config, db *database.Client, rtr *router.Router, routingCache *cache.RoutingCache, orch *pipeline.Orchestrator) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		router:   rtr,
		cache:    routingCache,
		pipeline: orch,
	}
}

// Engine builds the gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/v1")
	v1.POST("/route", s.routeHandler)
	v1.POST("/route/batch", s.routeBatchHandler)
	v1.POST("/classify", s.classifyHandler)
	v1.POST("/answer", s.answerHandler)
	v1.POST("/feedback", s.feedbackHandler)
	v1.GET("/health", s.healthHandler)

	admin := v1.Group("/admin")
	admin.POST("/cache/prune", s.cachePruneHandler)
	admin.GET("/cache/stats", s.cacheStatsHandler)
	admin.GET("/analytics", s.analyticsHandler)

	engine.GET("/health", s.healthHandler)
	return engine
}

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
