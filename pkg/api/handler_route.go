package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartquery/qrouter/pkg/router"
)

// routeHandler handles POST /api/v1/route.
func (s *Server) routeHandler(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := s.router.Route(c.Request.Context(), req.Query, router.RouteOptions{
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		ForceBackend:     req.ForceBackend,
		IncludeReasoning: req.IncludeReasoning,
		UseLLM:           req.UseLLM,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// routeBatchHandler handles POST /api/v1/route/batch.
func (s *Server) routeBatchHandler(c *gin.Context) {
	var req BatchRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Queries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "queries must not be empty"})
		return
	}

	result := s.router.RouteBatch(c.Request.Context(), req.Queries, router.RouteOptions{
		UserID:           req.UserID,
		SessionID:        req.SessionID,
		ForceBackend:     req.ForceBackend,
		IncludeReasoning: req.IncludeReasoning,
		UseLLM:           req.UseLLM,
	})

	c.JSON(http.StatusOK, result)
}

// classifyHandler handles POST /api/v1/classify. It runs the deterministic
// classifier only; no cache lookup and no decision-log write.
func (s *Server) classifyHandler(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := s.router.Classify(req.Query)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
