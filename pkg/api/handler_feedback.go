package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartquery/qrouter/pkg/models"
)

// feedbackHandler handles POST /api/v1/feedback.
func (s *Server) feedbackHandler(c *gin.Context) {
	var fb models.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.router.Feedback(c.Request.Context(), fb)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
