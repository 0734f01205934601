package batch

import (
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusPending             = "pending"
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
)

// Config holds the tunables for one batch run. The zero value is not
// usable; call Normalize or start from Defaults.
type Config struct {
	BatchSize     int
	MaxParallel   int
	MaxRetries    int
	RetryDelay    time.Duration
	ProgressEvery int
}

// Defaults returns the stock batch configuration.
func Defaults() Config {
	return Config{
		BatchSize:     10,
		MaxParallel:   5,
		MaxRetries:    3,
		RetryDelay:    2 * time.Second,
		ProgressEvery: 10,
	}
}

// Normalize clamps out-of-range values back to the defaults.
func (c Config) Normalize() Config {
	d := Defaults()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = d.MaxParallel
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = d.ProgressEvery
	}
	return c
}

// Run is the persisted record of one batch execution.
type Run struct {
	RunID        uuid.UUID  `json:"run_id"`
	TotalRecords int        `json:"total_records"`
	Config       Config     `json:"config"`
	Processed    int        `json:"processed"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// FailedItem describes one record that could not be analyzed after all
// retries were spent.
type FailedItem struct {
	RecordID  int64  `json:"record_id"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message,omitempty"`
}

// Summary is the terminal report of a run.
type Summary struct {
	Run         Run          `json:"run"`
	FailedItems []FailedItem `json:"failed_items,omitempty"`
}

// Progress is emitted periodically while a run executes.
type Progress struct {
	RunID     uuid.UUID `json:"run_id"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}
