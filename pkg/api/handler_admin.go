package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// cachePruneHandler handles POST /api/v1/admin/cache/prune.
// expired_only defaults to true; pass expired_only=false to clear everything.
func (s *Server) cachePruneHandler(c *gin.Context) {
	expiredOnly := true
	if v := c.Query("expired_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expired_only: must be a boolean"})
			return
		}
		expiredOnly = parsed
	}

	removed, err := s.cache.Prune(c.Request.Context(), expiredOnly)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed_count": removed})
}

// cacheStatsHandler handles GET /api/v1/admin/cache/stats.
func (s *Server) cacheStatsHandler(c *gin.Context) {
	stats, err := s.cache.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// analyticsHandler handles GET /api/v1/admin/analytics.
func (s *Server) analyticsHandler(c *gin.Context) {
	period := c.DefaultQuery("period", "24h")

	report, err := s.router.Analytics(c.Request.Context(), period)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
