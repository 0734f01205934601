package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/patients"
	"clinical-backend/internal/shared/server/respond"
)

type analyzeRequest struct {
	Model string `json:"model,omitempty"`
}

// analyzePatientHandler runs the pipeline for one record synchronously.
func analyzePatientHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseRecordID(c)
		if !ok {
			return
		}
		var body analyzeRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				respond.Error(c, http.StatusBadRequest, "invalid_body", "Malformed analyze request", err.Error())
				return
			}
		}

		out, err := deps.Analysis.AnalyzeRecord(c.Request.Context(), id, body.Model)
		if errors.Is(err, patients.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "patient_not_found", "No such patient", nil)
			return
		}
		if !out.Succeeded {
			writeOutcomeError(c, out)
			return
		}
		respond.OK(c, out)
	}
}

func getAnalysisHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseRecordID(c)
		if !ok {
			return
		}
		out, err := deps.AnalysisRepo.Get(c.Request.Context(), id)
		if errors.Is(err, analysis.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "analysis_not_found", "No stored analysis for patient", nil)
			return
		}
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load analysis", nil)
			return
		}
		respond.OK(c, out)
	}
}

func writeOutcomeError(c *gin.Context, out analysis.Outcome) {
	switch out.ErrorKind {
	case analysis.ErrKindTransientAPI:
		respond.Error(c, http.StatusServiceUnavailable, "upstream_unavailable", "Completion service is temporarily unavailable", nil)
	case analysis.ErrKindPermanentAPI:
		respond.Error(c, http.StatusBadGateway, "upstream_rejected", "Completion service rejected the request", nil)
	case analysis.ErrKindParseFailure:
		respond.Error(c, http.StatusBadGateway, "unparseable_response", "Completion returned no usable output", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Analysis failed", nil)
	}
}

func parseRecordID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_patient_id", "Patient id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
