package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clinical-backend/internal/llm"
	"clinical-backend/internal/prompt"
	"clinical-backend/internal/shared/metrics"
	"clinical-backend/internal/shared/storage/object"
	"clinical-backend/internal/shared/telemetry"
)

// fallbackAlternate is used when the configured fallback model equals the
// primary, so the one fallback attempt still reaches a different model.
const fallbackAlternate = "llama3.1-8b"

// Pipeline runs the render -> complete -> parse -> degrade sequence for one
// record. It is stateless and safe for concurrent use.
type Pipeline struct {
	client         llm.Client
	template       string
	primaryModel   string
	fallbackModel  string
	maxPromptChars int
	archive        object.Store
}

// NewPipeline validates the template up front so a malformed template fails
// at construction, not in the middle of a batch.
func NewPipeline(client llm.Client, template, primaryModel, fallbackModel string, maxPromptChars int, archive object.Store) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if template == "" {
		template = prompt.Comprehensive
	}
	if _, err := prompt.Render(template, "", maxPromptChars); err != nil {
		return nil, err
	}
	if primaryModel == "" {
		return nil, fmt.Errorf("primary model is required")
	}
	if fallbackModel == "" {
		fallbackModel = fallbackAlternate
	}
	return &Pipeline{
		client:         client,
		template:       template,
		primaryModel:   primaryModel,
		fallbackModel:  fallbackModel,
		maxPromptChars: maxPromptChars,
		archive:        archive,
	}, nil
}

// PrimaryModel returns the configured primary model.
func (p *Pipeline) PrimaryModel() string {
	return p.primaryModel
}

// Analyze runs the full pipeline for one record. The model argument overrides
// the configured primary when non-empty. Completion failures surface through
// Outcome.ErrorKind and Outcome.Err; parse failures follow the degradation
// policy: one fallback-model attempt, then a truncated raw-text document.
func (p *Pipeline) Analyze(ctx context.Context, recordID int64, sourceText, model string) Outcome {
	now := time.Now().UTC()
	if model == "" {
		model = p.primaryModel
	}

	rendered, err := prompt.Render(p.template, sourceText, p.maxPromptChars)
	if err != nil {
		// Unreachable with a template validated at construction.
		return Outcome{RecordID: recordID, ErrorKind: ErrKindPermanentAPI, ProcessedAt: now, Err: err}
	}

	primary, err := p.invoke(ctx, model, rendered, 1)
	if err != nil {
		return failedOutcome(recordID, model, err)
	}

	if obj, ok := ExtractObject(primary.Text); ok {
		return Outcome{
			RecordID:    recordID,
			Document:    DecodeDocument(obj),
			ModelUsed:   primary.ModelUsed,
			Succeeded:   true,
			ProcessedAt: time.Now().UTC(),
		}
	}

	// One fallback-model attempt; its errors are absorbed so the degradation
	// path below still sees the primary raw text.
	fbModel := p.fallbackModel
	if fbModel == model {
		fbModel = fallbackAlternate
	}
	metrics.IncCompletionFallback()
	fallback, fbErr := p.invoke(ctx, fbModel, rendered, 2)
	if fbErr == nil {
		if obj, ok := ExtractObject(fallback.Text); ok {
			return Outcome{
				RecordID:    recordID,
				Document:    DecodeDocument(obj),
				ModelUsed:   fallback.ModelUsed,
				Succeeded:   true,
				ProcessedAt: time.Now().UTC(),
			}
		}
	} else {
		telemetry.Warn("analysis.fallback_model_failed", map[string]any{
			"record_id": recordID,
			"model":     fbModel,
			"error":     fbErr.Error(),
		})
	}

	rawText := strings.TrimSpace(primary.Text)
	modelUsed := primary.ModelUsed
	if rawText == "" && fbErr == nil {
		rawText = strings.TrimSpace(fallback.Text)
		modelUsed = fallback.ModelUsed
	}
	if rawText == "" {
		return Outcome{
			RecordID:    recordID,
			ModelUsed:   modelUsed,
			Succeeded:   false,
			ErrorKind:   ErrKindParseFailure,
			ProcessedAt: time.Now().UTC(),
			Err:         fmt.Errorf("no parseable output from %s or %s", model, fbModel),
		}
	}

	p.archiveRaw(ctx, recordID, modelUsed, rawText)
	metrics.IncRecordDegraded()
	return Outcome{
		RecordID:    recordID,
		Document:    DegradedDocument(rawText),
		ModelUsed:   modelUsed,
		Succeeded:   true,
		ErrorKind:   ErrKindDegradedParse,
		ProcessedAt: time.Now().UTC(),
	}
}

func (p *Pipeline) invoke(ctx context.Context, model, rendered string, attempt int) (RawCompletion, error) {
	metrics.IncCompletionCall()
	start := time.Now()
	text, err := p.client.Complete(ctx, model, rendered)
	latency := time.Since(start)
	metrics.ObserveCompletionLatencyMs(float64(latency.Milliseconds()))
	if err != nil {
		return RawCompletion{}, llm.Classify(err)
	}
	return RawCompletion{
		ModelUsed:     model,
		Text:          text,
		LatencyMs:     latency.Milliseconds(),
		AttemptNumber: attempt,
	}, nil
}

func (p *Pipeline) archiveRaw(ctx context.Context, recordID int64, model, rawText string) {
	if p.archive == nil {
		return
	}
	key := fmt.Sprintf("raw/%d_%s_%d.txt", recordID, model, time.Now().UTC().Unix())
	if err := p.archive.Put(ctx, key, strings.NewReader(rawText)); err != nil {
		telemetry.Warn("analysis.archive_failed", map[string]any{
			"record_id": recordID,
			"key":       key,
			"error":     err.Error(),
		})
	}
}

func failedOutcome(recordID int64, model string, err error) Outcome {
	kind := ErrKindPermanentAPI
	if llm.IsTransient(err) {
		kind = ErrKindTransientAPI
	}
	return Outcome{
		RecordID:    recordID,
		ModelUsed:   model,
		Succeeded:   false,
		ErrorKind:   kind,
		ProcessedAt: time.Now().UTC(),
		Err:         err,
	}
}
