package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clinical-backend/internal/shared/server/respond"
)

// listPatientsHandler returns a small sample of records with note previews.
func listPatientsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 100 {
				respond.Error(c, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100", nil)
				return
			}
			limit = parsed
		}

		ctx := c.Request.Context()
		sample, err := deps.Patients.ListSample(ctx, limit)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal", "Failed to list patients", nil)
			return
		}
		total, err := deps.Patients.Count(ctx)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal", "Failed to count patients", nil)
			return
		}

		respond.OK(c, gin.H{"total": total, "patients": sample})
	}
}
