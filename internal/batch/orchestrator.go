package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/shared/metrics"
	"clinical-backend/internal/shared/telemetry"
)

// Analyzer runs the analysis pipeline for a single record.
type Analyzer interface {
	Analyze(ctx context.Context, recordID int64, sourceText, model string) analysis.Outcome
	PrimaryModel() string
}

// RecordSource supplies candidate records for a run.
type RecordSource interface {
	GetNotes(ctx context.Context, recordID int64) (string, error)
	ListIDs(ctx context.Context, limit int) ([]int64, error)
}

// ResultSink persists outcomes and reports which records already have one.
type ResultSink interface {
	Upsert(ctx context.Context, out analysis.Outcome) error
	ListAnalyzedIDs(ctx context.Context) ([]int64, error)
}

// Request describes one batch execution.
type Request struct {
	// RunID names the run. A zero value generates one.
	RunID uuid.UUID
	// TargetID restricts the run to a single record when set.
	TargetID *int64
	// Limit caps the candidate set. Zero means all candidates.
	Limit int
	// Force reprocesses records that already have a stored result.
	Force bool
	// Model overrides the pipeline's primary model when non-empty.
	Model string

	// preCreated records that StartRun already persisted the run row.
	preCreated bool
}

// Orchestrator fans candidate records out over a bounded worker pool and
// aggregates per-record outcomes into a run summary.
type Orchestrator struct {
	analyzer Analyzer
	source   RecordSource
	sink     ResultSink
	runs     Repo
	cfg      Config

	// OnProgress, when set, is called from the collector goroutine every
	// ProgressEvery processed records and once at completion.
	OnProgress func(Progress)
}

func NewOrchestrator(analyzer Analyzer, source RecordSource, sink ResultSink, runs Repo, cfg Config) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		source:   source,
		sink:     sink,
		runs:     runs,
		cfg:      cfg.Normalize(),
	}
}

// StartRun persists the initial run row and stamps the request with its id.
// Callers that execute asynchronously use it to make the run pollable before
// candidates are resolved; the returned request must be passed to Execute.
func (o *Orchestrator) StartRun(ctx context.Context, req Request) (Request, error) {
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	run := Run{
		RunID:     req.RunID,
		Config:    o.cfg,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := o.runs.Create(ctx, run); err != nil {
		return req, fmt.Errorf("create run: %w", err)
	}
	req.preCreated = true
	return req, nil
}

// Execute runs one batch. Cancelling ctx stops new dispatch and further
// retries; the attempt already in flight finishes so its result is not lost.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (Summary, error) {
	runID := req.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	run := Run{
		RunID:     runID,
		Config:    o.cfg,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if !req.preCreated {
		if err := o.runs.Create(ctx, run); err != nil {
			return Summary{}, fmt.Errorf("create run: %w", err)
		}
	}

	candidates, err := o.candidates(ctx, req)
	if err != nil {
		now := time.Now().UTC()
		run.Status = StatusCompletedWithErrors
		run.FinishedAt = &now
		if uerr := o.runs.Update(ctx, run); uerr != nil {
			telemetry.Warn("batch.run_update_failed", map[string]any{
				"run_id": run.RunID.String(),
				"error":  uerr.Error(),
			})
		}
		return Summary{Run: run}, err
	}
	run.TotalRecords = len(candidates)
	if err := o.runs.Update(ctx, run); err != nil {
		telemetry.Warn("batch.run_update_failed", map[string]any{
			"run_id": run.RunID.String(),
			"error":  err.Error(),
		})
	}
	telemetry.Info("batch.run_started", map[string]any{
		"run_id":       run.RunID.String(),
		"total":        run.TotalRecords,
		"max_parallel": o.cfg.MaxParallel,
	})

	model := req.Model
	if model == "" {
		model = o.analyzer.PrimaryModel()
	}

	queue := make(chan int64)
	// One entry per processed record; nil marks success.
	results := make(chan *FailedItem)

	// Feeder stops handing out work the moment ctx is cancelled, and logs
	// once per BatchSize records enqueued.
	go func() {
		defer close(queue)
		for i, id := range candidates {
			select {
			case queue <- id:
			case <-ctx.Done():
				return
			}
			if (i+1)%o.cfg.BatchSize == 0 {
				telemetry.Info("batch.chunk_dispatched", map[string]any{
					"run_id":    run.RunID.String(),
					"enqueued":  i + 1,
					"remaining": len(candidates) - i - 1,
				})
			}
		}
	}()

	// In-flight records finish even after cancellation.
	workCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxParallel)
	go func() {
		for id := range queue {
			id := id
			g.Go(func() error {
				results <- o.processRecord(ctx, workCtx, id, model)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	// The collector is the only goroutine touching run counters.
	var failedItems []FailedItem
	for failure := range results {
		run.Processed++
		if failure != nil {
			run.Failed++
			failedItems = append(failedItems, *failure)
			metrics.IncRecordFailed()
		} else {
			run.Succeeded++
			metrics.IncRecordSucceeded()
		}
		metrics.IncRecordProcessed()
		if run.Processed%o.cfg.ProgressEvery == 0 {
			o.emitProgress(workCtx, run)
		}
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	if run.Failed > 0 {
		run.Status = StatusCompletedWithErrors
	} else {
		run.Status = StatusCompleted
	}
	o.emitProgress(workCtx, run)
	if err := o.runs.Update(workCtx, run); err != nil {
		telemetry.Error("batch.run_update_failed", map[string]any{
			"run_id": run.RunID.String(),
			"error":  err.Error(),
		})
	}
	telemetry.Info("batch.run_finished", map[string]any{
		"run_id":    run.RunID.String(),
		"processed": run.Processed,
		"succeeded": run.Succeeded,
		"failed":    run.Failed,
		"status":    run.Status,
	})
	return Summary{Run: run, FailedItems: failedItems}, ctx.Err()
}

// candidates resolves the record set for the run: a single target, or all
// records without a stored result (unless Force).
func (o *Orchestrator) candidates(ctx context.Context, req Request) ([]int64, error) {
	if req.TargetID != nil {
		return []int64{*req.TargetID}, nil
	}
	ids, err := o.source.ListIDs(ctx, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if req.Force {
		return ids, nil
	}
	done, err := o.sink.ListAnalyzedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list analyzed records: %w", err)
	}
	doneSet := make(map[int64]struct{}, len(done))
	for _, id := range done {
		doneSet[id] = struct{}{}
	}
	remaining := ids[:0]
	for _, id := range ids {
		if _, ok := doneSet[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining, nil
}

// processRecord runs the retry loop for one record and persists its outcome.
// The attempt and persist calls run on workCtx so an in-flight record
// finishes after cancellation; ctx only gates whether another attempt may
// start. The return value is nil on success.
func (o *Orchestrator) processRecord(ctx, workCtx context.Context, id int64, model string) *FailedItem {
	notes, err := o.source.GetNotes(workCtx, id)
	if err != nil {
		return &FailedItem{
			RecordID:  id,
			ErrorKind: string(analysis.ErrKindSourceRead),
			Message:   fmt.Sprintf("load record: %v", err),
		}
	}

	var out analysis.Outcome
	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		out = o.analyzer.Analyze(workCtx, id, notes, model)
		if out.Succeeded || out.ErrorKind != analysis.ErrKindTransientAPI {
			break
		}
		if attempt == o.cfg.MaxRetries || ctx.Err() != nil {
			break
		}
		telemetry.Warn("batch.record_retry", map[string]any{
			"record_id": id,
			"attempt":   attempt,
		})
		select {
		case <-time.After(o.cfg.RetryDelay):
		case <-ctx.Done():
			attempt = o.cfg.MaxRetries
		}
	}

	if !out.Succeeded {
		return &FailedItem{
			RecordID:  id,
			ErrorKind: string(out.ErrorKind),
			Message:   errMessage(out.Err),
		}
	}

	if err := o.persist(workCtx, out); err != nil {
		telemetry.Error("batch.persist_failed", map[string]any{
			"record_id": id,
			"error":     err.Error(),
		})
		return &FailedItem{
			RecordID:  id,
			ErrorKind: string(analysis.ErrKindPersistence),
			Message:   err.Error(),
		}
	}
	return nil
}

// persist writes the outcome, retrying once on failure.
func (o *Orchestrator) persist(ctx context.Context, out analysis.Outcome) error {
	if err := o.sink.Upsert(ctx, out); err == nil {
		return nil
	}
	return o.sink.Upsert(ctx, out)
}

func (o *Orchestrator) emitProgress(ctx context.Context, run Run) {
	if o.OnProgress != nil {
		o.OnProgress(Progress{
			RunID:     run.RunID,
			Processed: run.Processed,
			Total:     run.TotalRecords,
			Succeeded: run.Succeeded,
			Failed:    run.Failed,
		})
	}
	if err := o.runs.Update(ctx, run); err != nil {
		telemetry.Warn("batch.progress_update_failed", map[string]any{
			"run_id": run.RunID.String(),
			"error":  err.Error(),
		})
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
