package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/batch"
	"clinical-backend/internal/config"
	"clinical-backend/internal/patients"
	"clinical-backend/internal/search"
	"clinical-backend/internal/services/health"
	"clinical-backend/internal/shared/server/middleware"
)

// Deps carries the services the HTTP layer exposes.
type Deps struct {
	Health       *health.Service
	Orchestrator *batch.Orchestrator
	Runs         batch.Repo
	Analysis     *analysis.Service
	AnalysisRepo analysis.Repo
	Search       *search.Service
	Patients     patients.Repo
}

// NewEngine builds the gin engine with routes registered.
func NewEngine(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Logging(), middleware.Recovery())

	registerRoutes(engine, deps)
	return engine
}

// Addr returns a normalized listen address for the given port.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
