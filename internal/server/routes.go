package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinical-backend/internal/shared/metrics"
)

func registerRoutes(r *gin.Engine, deps Deps) {
	r.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if ok, _ := status["ok"].(bool); !ok {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.POST("/runs", startRunHandler(deps))
	api.GET("/runs/:id", getRunHandler(deps))
	api.POST("/patients/:id/analysis", analyzePatientHandler(deps))
	api.GET("/patients/:id/analysis", getAnalysisHandler(deps))
	api.GET("/patients", listPatientsHandler(deps))
	api.GET("/search", searchHandler(deps))
}
