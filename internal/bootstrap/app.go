// Package bootstrap wires configuration, storage, completion and search into
// runnable services. Construction is explicit so each binary assembles only
// what it needs.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/auditlog"
	"clinical-backend/internal/batch"
	"clinical-backend/internal/config"
	"clinical-backend/internal/llm/cortex"
	"clinical-backend/internal/patients"
	"clinical-backend/internal/search"
	"clinical-backend/internal/services/health"
	"clinical-backend/internal/shared/storage/db"
	"clinical-backend/internal/shared/storage/object"
	"clinical-backend/internal/shared/storage/object/local"
	"clinical-backend/internal/shared/storage/object/s3"
	"clinical-backend/internal/shared/telemetry"
)

// App bundles the constructed services shared by the binaries.
type App struct {
	Cfg          config.Config
	DB           *sql.DB
	Patients     patients.Repo
	AnalysisRepo analysis.Repo
	Runs         batch.Repo
	Audit        *auditlog.Writer
	Pipeline     *analysis.Pipeline
	Analysis     *analysis.Service
	Orchestrator *batch.Orchestrator
	Search       *search.Service
	Health       *health.Service
}

// New builds the full application graph. A missing DATABASE_URL falls back
// to in-memory stores, which is only useful for local experiments.
func New(ctx context.Context, cfg config.Config, dbOpts db.Options) (*App, error) {
	app := &App{Cfg: cfg}

	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(dbOpts))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = sqlDB
		app.Patients = &patients.PGRepo{DB: sqlDB}
		app.AnalysisRepo = &analysis.PGRepo{DB: sqlDB}
		app.Runs = batch.NewPGRepo(sqlDB)
		app.Audit = auditlog.NewWriter(auditlog.NewPGRepo(sqlDB))
	} else {
		telemetry.Warn("bootstrap.memory_stores", map[string]any{
			"reason": "DATABASE_URL is not set",
		})
		app.Patients = patients.NewMemoryRepo()
		app.AnalysisRepo = analysis.NewMemoryRepo()
		app.Runs = batch.NewMemoryRepo()
		app.Audit = auditlog.NewWriter(auditlog.NewMemoryRepo())
	}

	archive, err := newArchiveStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	client, err := cortex.NewClient(cfg.CompletionURL, cfg.CompletionToken, cfg.CompletionTimeout)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Pipeline, err = analysis.NewPipeline(client, "", cfg.PrimaryModel, cfg.FallbackModel, cfg.MaxPromptChars, archive)
	if err != nil {
		app.Close()
		return nil, err
	}

	notes := patients.NotesSource{Repo: app.Patients}
	app.Analysis = analysis.NewService(app.Pipeline, notes, app.AnalysisRepo, app.Audit)
	app.Orchestrator = batch.NewOrchestrator(app.Pipeline, notes, app.AnalysisRepo, app.Runs, batch.Config{
		BatchSize:     cfg.BatchSize,
		MaxParallel:   cfg.MaxParallel,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		ProgressEvery: cfg.ProgressEvery,
	})

	app.Search = &search.Service{
		Fallback: newPreviewBackend(app.DB),
		Analyzed: app.AnalysisRepo,
	}
	if cfg.SearchURL != "" {
		native, err := search.NewNativeBackend(cfg.SearchURL, cfg.SearchService, cfg.CompletionToken, 30*time.Second)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Search.Native = native
	}

	app.Health = health.NewService(app.DB)
	return app, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func newArchiveStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	if cfg.ArchiveStore == "s3" {
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when ARCHIVE_STORE=s3")
		}
		return s3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	}
	return local.New(cfg.LocalStoreDir), nil
}

func newPreviewBackend(sqlDB *sql.DB) search.Backend {
	if sqlDB == nil {
		return nil
	}
	return search.NewPreviewBackend(sqlDB)
}
