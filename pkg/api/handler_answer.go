package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// answerHandler handles POST /api/v1/answer by running the full quality
// pipeline for the query.
func (s *Server) answerHandler(c *gin.Context) {
	if s.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "retriever and generator collaborators are not configured"})
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		return
	}

	result := s.pipeline.Run(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, result)
}
