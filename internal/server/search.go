package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clinical-backend/internal/search"
	"clinical-backend/internal/shared/server/respond"
)

// searchHandler answers GET /search?q=...&limit=...&analyzed_only=true.
func searchHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			respond.Error(c, http.StatusBadRequest, "missing_query", "q parameter is required", nil)
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				respond.Error(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}
		analyzedOnly := c.Query("analyzed_only") == "true"

		results, err := deps.Search.Search(c.Request.Context(), search.Query{Text: q, Limit: limit}, analyzedOnly)
		if err != nil {
			respond.Error(c, http.StatusServiceUnavailable, "search_unavailable", "All search backends failed", nil)
			return
		}
		respond.OK(c, gin.H{"query": q, "count": len(results), "results": results})
	}
}
