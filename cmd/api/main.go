package main

import (
	"context"
	"log"

	"clinical-backend/internal/bootstrap"
	"clinical-backend/internal/config"
	"clinical-backend/internal/server"
	"clinical-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	app, err := bootstrap.New(ctx, cfg, db.DefaultServerOptions())
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	engine := server.NewEngine(cfg, server.Deps{
		Health:       app.Health,
		Orchestrator: app.Orchestrator,
		Runs:         app.Runs,
		Analysis:     app.Analysis,
		AnalysisRepo: app.AnalysisRepo,
		Search:       app.Search,
		Patients:     app.Patients,
	})

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := engine.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
