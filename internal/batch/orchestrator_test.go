package batch_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/batch"
	"clinical-backend/internal/shared/telemetry"
)

// fakeAnalyzer scripts per-record outcomes and records call pressure.
type fakeAnalyzer struct {
	mu             sync.Mutex
	attempts       map[int64]int
	transientFirst int            // fail this many attempts per record transiently
	permanentIDs   map[int64]bool // these records always fail permanently
	delay          time.Duration
	onAttempt      func(id int64, attempt int)

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{attempts: map[int64]int{}, permanentIDs: map[int64]bool{}}
}

func (f *fakeAnalyzer) PrimaryModel() string { return "claude-4-sonnet" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, id int64, text, model string) analysis.Outcome {
	cur := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if cur <= max || f.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.attempts[id]++
	attempt := f.attempts[id]
	f.mu.Unlock()
	if f.onAttempt != nil {
		f.onAttempt(id, attempt)
	}

	now := time.Now().UTC()
	if f.permanentIDs[id] {
		return analysis.Outcome{
			RecordID:    id,
			ModelUsed:   model,
			ErrorKind:   analysis.ErrKindPermanentAPI,
			ProcessedAt: now,
			Err:         fmt.Errorf("model rejected record %d", id),
		}
	}
	if attempt <= f.transientFirst {
		return analysis.Outcome{
			RecordID:    id,
			ModelUsed:   model,
			ErrorKind:   analysis.ErrKindTransientAPI,
			ProcessedAt: now,
			Err:         fmt.Errorf("upstream busy"),
		}
	}
	return analysis.Outcome{
		RecordID:    id,
		ModelUsed:   model,
		Succeeded:   true,
		ProcessedAt: now,
	}
}

func (f *fakeAnalyzer) attemptCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

// fakeSource serves n sequential record ids with canned notes.
type fakeSource struct {
	n int
}

func (s fakeSource) GetNotes(ctx context.Context, id int64) (string, error) {
	if id < 1 || id > int64(s.n) {
		return "", fmt.Errorf("record %d not found", id)
	}
	return fmt.Sprintf("notes for %d", id), nil
}

func (s fakeSource) ListIDs(ctx context.Context, limit int) ([]int64, error) {
	ids := make([]int64, 0, s.n)
	for i := 1; i <= s.n; i++ {
		ids = append(ids, int64(i))
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func quickConfig() batch.Config {
	return batch.Config{
		BatchSize:     10,
		MaxParallel:   5,
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		ProgressEvery: 10,
	}
}

func TestExecuteCountsFailures(t *testing.T) {
	az := newFakeAnalyzer()
	az.permanentIDs[4] = true
	az.permanentIDs[17] = true
	sink := analysis.NewMemoryRepo()
	runs := batch.NewMemoryRepo()
	o := batch.NewOrchestrator(az, fakeSource{n: 25}, sink, runs, quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	run := summary.Run
	if run.Processed != 25 || run.Succeeded != 23 || run.Failed != 2 {
		t.Fatalf("unexpected counters: processed=%d succeeded=%d failed=%d", run.Processed, run.Succeeded, run.Failed)
	}
	if run.Status != batch.StatusCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", run.Status)
	}
	if len(summary.FailedItems) != 2 {
		t.Fatalf("expected 2 failed items, got %d", len(summary.FailedItems))
	}
	for _, item := range summary.FailedItems {
		if !az.permanentIDs[item.RecordID] {
			t.Fatalf("unexpected failed record %d", item.RecordID)
		}
		if item.ErrorKind != string(analysis.ErrKindPermanentAPI) {
			t.Fatalf("expected permanent kind, got %s", item.ErrorKind)
		}
	}

	stored, err := runs.Get(context.Background(), run.RunID)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	if stored.Status != batch.StatusCompletedWithErrors || stored.Processed != 25 {
		t.Fatalf("persisted run out of date: %+v", stored)
	}
	if stored.FinishedAt == nil {
		t.Fatalf("expected finished_at on persisted run")
	}
}

func TestExecuteRetriesTransient(t *testing.T) {
	az := newFakeAnalyzer()
	az.transientFirst = 2
	sink := analysis.NewMemoryRepo()
	o := batch.NewOrchestrator(az, fakeSource{n: 10}, sink, batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.Succeeded != 10 || summary.Run.Failed != 0 {
		t.Fatalf("expected every record to recover, got succeeded=%d failed=%d", summary.Run.Succeeded, summary.Run.Failed)
	}
	for id := int64(1); id <= 10; id++ {
		if got := az.attemptCount(id); got != 3 {
			t.Fatalf("record %d: expected 3 attempts, got %d", id, got)
		}
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	az := newFakeAnalyzer()
	az.transientFirst = 10 // never recovers within the allowed attempts
	o := batch.NewOrchestrator(az, fakeSource{n: 3}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.Failed != 3 {
		t.Fatalf("expected 3 failures, got %d", summary.Run.Failed)
	}
	for _, item := range summary.FailedItems {
		if item.ErrorKind != string(analysis.ErrKindTransientAPI) {
			t.Fatalf("expected transient kind after exhaustion, got %s", item.ErrorKind)
		}
	}
	for id := int64(1); id <= 3; id++ {
		if got := az.attemptCount(id); got != 3 {
			t.Fatalf("record %d: expected exactly 3 attempts, got %d", id, got)
		}
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	az := newFakeAnalyzer()
	az.delay = 2 * time.Millisecond
	o := batch.NewOrchestrator(az, fakeSource{n: 50}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	if _, err := o.Execute(context.Background(), batch.Request{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if max := az.maxInFlight.Load(); max > 5 {
		t.Fatalf("worker pool exceeded limit: %d in flight", max)
	}
}

func TestExecuteSkipsAnalyzedRecords(t *testing.T) {
	az := newFakeAnalyzer()
	sink := analysis.NewMemoryRepo()
	for id := int64(1); id <= 5; id++ {
		if err := sink.Upsert(context.Background(), analysis.Outcome{
			RecordID:    id,
			Succeeded:   true,
			ProcessedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed sink: %v", err)
		}
	}
	o := batch.NewOrchestrator(az, fakeSource{n: 8}, sink, batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.TotalRecords != 3 || summary.Run.Processed != 3 {
		t.Fatalf("expected only the 3 unanalyzed records, got total=%d processed=%d", summary.Run.TotalRecords, summary.Run.Processed)
	}
	for id := int64(1); id <= 5; id++ {
		if az.attemptCount(id) != 0 {
			t.Fatalf("record %d should have been skipped", id)
		}
	}
}

func TestExecuteForceReprocessesEverything(t *testing.T) {
	az := newFakeAnalyzer()
	sink := analysis.NewMemoryRepo()
	for id := int64(1); id <= 5; id++ {
		if err := sink.Upsert(context.Background(), analysis.Outcome{
			RecordID:    id,
			Succeeded:   true,
			ProcessedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed sink: %v", err)
		}
	}
	o := batch.NewOrchestrator(az, fakeSource{n: 5}, sink, batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{Force: true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.Processed != 5 {
		t.Fatalf("expected 5 records under force, got %d", summary.Run.Processed)
	}
}

func TestExecuteSingleTarget(t *testing.T) {
	az := newFakeAnalyzer()
	target := int64(4)
	o := batch.NewOrchestrator(az, fakeSource{n: 10}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{TargetID: &target})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.TotalRecords != 1 || summary.Run.Succeeded != 1 {
		t.Fatalf("expected single-record run, got %+v", summary.Run)
	}
	if az.attemptCount(4) != 1 {
		t.Fatalf("expected one attempt on target")
	}
}

func TestExecuteEmitsProgress(t *testing.T) {
	az := newFakeAnalyzer()
	o := batch.NewOrchestrator(az, fakeSource{n: 25}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	var mu sync.Mutex
	var events []batch.Progress
	o.OnProgress = func(p batch.Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	}

	if _, err := o.Execute(context.Background(), batch.Request{}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// Ticks at 10 and 20 plus the final emit.
	if len(events) != 3 {
		t.Fatalf("expected 3 progress events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Processed != 25 || last.Total != 25 {
		t.Fatalf("final progress out of sync: %+v", last)
	}
}

// failingSink refuses every write so persistence failures surface as
// per-record failed items.
type failingSink struct{}

func (failingSink) Upsert(ctx context.Context, out analysis.Outcome) error {
	return fmt.Errorf("disk full")
}

func (failingSink) ListAnalyzedIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func TestExecutePersistenceFailure(t *testing.T) {
	az := newFakeAnalyzer()
	o := batch.NewOrchestrator(az, fakeSource{n: 2}, failingSink{}, batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.Failed != 2 {
		t.Fatalf("expected both records to fail on persistence, got %d", summary.Run.Failed)
	}
	for _, item := range summary.FailedItems {
		if item.ErrorKind != string(analysis.ErrKindPersistence) {
			t.Fatalf("expected persistence kind, got %s", item.ErrorKind)
		}
	}
}

func TestExecuteCancellationStopsDispatch(t *testing.T) {
	az := newFakeAnalyzer()
	az.delay = 5 * time.Millisecond
	o := batch.NewOrchestrator(az, fakeSource{n: 200}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	summary, err := o.Execute(ctx, batch.Request{})
	if err == nil {
		t.Fatalf("expected context error from cancelled run")
	}
	if summary.Run.Processed >= 200 {
		t.Fatalf("expected dispatch to stop early, processed %d", summary.Run.Processed)
	}
	// Every record that was dispatched must still be accounted for.
	if summary.Run.Processed != summary.Run.Succeeded+summary.Run.Failed {
		t.Fatalf("counter mismatch after cancellation: %+v", summary.Run)
	}
}

func TestExecuteCancellationStopsRetries(t *testing.T) {
	az := newFakeAnalyzer()
	az.transientFirst = 10
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	az.onAttempt = func(id int64, attempt int) {
		if attempt == 1 {
			cancel()
		}
	}
	cfg := quickConfig()
	cfg.RetryDelay = 50 * time.Millisecond
	o := batch.NewOrchestrator(az, fakeSource{n: 1}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), cfg)

	summary, err := o.Execute(ctx, batch.Request{})
	if err == nil {
		t.Fatalf("expected context error from cancelled run")
	}
	// The attempt in flight when the run was cancelled finishes; no further
	// attempts may start.
	if got := az.attemptCount(1); got != 1 {
		t.Fatalf("expected 1 attempt after cancellation, got %d", got)
	}
	if summary.Run.Failed != 1 {
		t.Fatalf("expected the record to fail, got %+v", summary.Run)
	}
}

// failingSource lists ids whose rows can no longer be loaded.
type failingSource struct {
	fakeSource
}

func (failingSource) GetNotes(ctx context.Context, id int64) (string, error) {
	return "", fmt.Errorf("row vanished")
}

func TestExecuteSourceReadFailure(t *testing.T) {
	az := newFakeAnalyzer()
	o := batch.NewOrchestrator(az, failingSource{fakeSource{n: 2}}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	summary, err := o.Execute(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.Failed != 2 {
		t.Fatalf("expected both records to fail, got %d", summary.Run.Failed)
	}
	for _, item := range summary.FailedItems {
		if item.ErrorKind != string(analysis.ErrKindSourceRead) {
			t.Fatalf("expected source_read kind, got %s", item.ErrorKind)
		}
	}
	if az.attemptCount(1) != 0 {
		t.Fatalf("analyzer should not run for unloadable records")
	}
}

func TestExecuteLogsChunkDispatch(t *testing.T) {
	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	defer telemetry.SetOutput(os.Stdout)

	az := newFakeAnalyzer()
	o := batch.NewOrchestrator(az, fakeSource{n: 25}, analysis.NewMemoryRepo(), batch.NewMemoryRepo(), quickConfig())

	if _, err := o.Execute(context.Background(), batch.Request{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// 25 records in batches of 10 complete two full chunks.
	if got := strings.Count(buf.String(), "batch.chunk_dispatched"); got != 2 {
		t.Fatalf("expected 2 chunk logs, got %d", got)
	}
}

func TestStartRunMakesRunPollable(t *testing.T) {
	az := newFakeAnalyzer()
	runs := batch.NewMemoryRepo()
	o := batch.NewOrchestrator(az, fakeSource{n: 3}, analysis.NewMemoryRepo(), runs, quickConfig())

	req, err := o.StartRun(context.Background(), batch.Request{})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	stored, err := runs.Get(context.Background(), req.RunID)
	if err != nil {
		t.Fatalf("run not pollable after start: %v", err)
	}
	if stored.Status != batch.StatusRunning {
		t.Fatalf("expected running status before execution, got %s", stored.Status)
	}

	summary, err := o.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if summary.Run.RunID != req.RunID {
		t.Fatalf("execute changed the run id: %s != %s", summary.Run.RunID, req.RunID)
	}
	stored, err = runs.Get(context.Background(), req.RunID)
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	if stored.Status != batch.StatusCompleted || stored.Processed != 3 {
		t.Fatalf("persisted run out of date: %+v", stored)
	}
}
