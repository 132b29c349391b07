package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartquery/qrouter/pkg/router"
)

// abortWithError maps core errors to HTTP error responses.
func abortWithError(c *gin.Context, err error) {
	var validErr *router.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validErr.Error()})
		return
	}

	slog.Error("Unexpected handler error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
