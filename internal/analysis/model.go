package analysis

import "time"

// ErrorKind classifies how an analysis outcome deviated from the happy path.
type ErrorKind string

const (
	ErrKindNone          ErrorKind = ""
	ErrKindTransientAPI  ErrorKind = "transient_api"
	ErrKindPermanentAPI  ErrorKind = "permanent_api"
	ErrKindParseFailure  ErrorKind = "parse_failure"
	ErrKindDegradedParse ErrorKind = "degraded_parse"
	ErrKindPersistence   ErrorKind = "persistence"
	ErrKindSourceRead    ErrorKind = "source_read"
)

// Request is one record's analysis input. Immutable once created.
type Request struct {
	RecordID       int64
	SourceText     string
	PromptTemplate string
	PrimaryModel   string
	FallbackModel  string
}

// RawCompletion is the transient result of one completion call.
type RawCompletion struct {
	ModelUsed     string
	Text          string
	LatencyMs     int64
	AttemptNumber int
}

// Outcome is the terminal per-record result handed to the result store.
type Outcome struct {
	RecordID    int64     `json:"record_id"`
	Document    Document  `json:"document"`
	ModelUsed   string    `json:"model_used"`
	Succeeded   bool      `json:"succeeded"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`

	// Err carries the underlying failure for retry decisions; it is not
	// persisted.
	Err error `json:"-"`
}
