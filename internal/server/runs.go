package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"clinical-backend/internal/batch"
	"clinical-backend/internal/shared/server/middleware"
	"clinical-backend/internal/shared/server/respond"
	"clinical-backend/internal/shared/telemetry"
)

type startRunRequest struct {
	TargetID *int64 `json:"target_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Force    bool   `json:"force,omitempty"`
	Model    string `json:"model,omitempty"`
}

// startRunHandler kicks off a batch run in the background and returns its id.
func startRunHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body startRunRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				respond.Error(c, http.StatusBadRequest, "invalid_body", "Malformed run request", err.Error())
				return
			}
		}
		if body.Limit < 0 {
			respond.Error(c, http.StatusBadRequest, "invalid_limit", "limit must not be negative", nil)
			return
		}

		// The run row is written before responding so the returned id is
		// immediately pollable.
		req, err := deps.Orchestrator.StartRun(c.Request.Context(), batch.Request{
			TargetID: body.TargetID,
			Limit:    body.Limit,
			Force:    body.Force,
			Model:    body.Model,
		})
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "run_create_failed", "Failed to create run", nil)
			return
		}
		c.Set("runId", req.RunID.String())
		requestID := middleware.RequestIDFromContext(c)
		go func() {
			if _, err := deps.Orchestrator.Execute(context.Background(), req); err != nil {
				telemetry.Error("batch.run_failed", map[string]any{
					"run_id":     req.RunID.String(),
					"request_id": requestID,
					"error":      err.Error(),
				})
			}
		}()

		respond.Accepted(c, gin.H{"run_id": req.RunID.String(), "status": batch.StatusRunning})
	}
}

func getRunHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_run_id", "Run id must be a UUID", nil)
			return
		}
		run, err := deps.Runs.Get(c.Request.Context(), runID)
		if errors.Is(err, batch.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "run_not_found", "No such run", nil)
			return
		}
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load run", nil)
			return
		}
		respond.OK(c, run)
	}
}
