package analysis_test

import (
	"context"
	"strings"
	"testing"

	"clinical-backend/internal/analysis"
	"clinical-backend/internal/llm"
)

// scriptedClient returns canned completions keyed by the requested model.
type scriptedClient struct {
	byModel map[string]string
	errs    map[string]error
	calls   []string
}

func (c *scriptedClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	c.calls = append(c.calls, model)
	if err, ok := c.errs[model]; ok {
		return "", err
	}
	return c.byModel[model], nil
}

const goodPayload = `{"clinical_summary": {"clinical_summary": "stable", "urgency_level": "Low"}}`

func newPipeline(t *testing.T, client llm.Client) *analysis.Pipeline {
	t.Helper()
	p, err := analysis.NewPipeline(client, "", "claude-4-sonnet", "mistral-large", 4000, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestAnalyzePrimarySucceeds(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{
		"claude-4-sonnet": "```json\n" + goodPayload + "\n```",
	}}
	p := newPipeline(t, client)

	out := p.Analyze(context.Background(), 7, "fever and cough", "")
	if !out.Succeeded {
		t.Fatalf("expected success, got kind=%s err=%v", out.ErrorKind, out.Err)
	}
	if out.ModelUsed != "claude-4-sonnet" {
		t.Fatalf("expected primary model, got %s", out.ModelUsed)
	}
	if out.ErrorKind != analysis.ErrKindNone {
		t.Fatalf("expected clean outcome, got %s", out.ErrorKind)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected single completion call, got %v", client.calls)
	}
	if out.Document.ClinicalSummary == nil || out.Document.ClinicalSummary.ClinicalSummary != "stable" {
		t.Fatalf("unexpected document: %+v", out.Document)
	}
}

func TestAnalyzeFallbackModelRecovers(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{
		"claude-4-sonnet": "the patient seems fine, no json here",
		"mistral-large":   goodPayload,
	}}
	p := newPipeline(t, client)

	out := p.Analyze(context.Background(), 7, "notes", "")
	if !out.Succeeded {
		t.Fatalf("expected fallback success, got kind=%s", out.ErrorKind)
	}
	if out.ModelUsed != "mistral-large" {
		t.Fatalf("expected fallback model, got %s", out.ModelUsed)
	}
	if got := client.calls; len(got) != 2 || got[0] != "claude-4-sonnet" || got[1] != "mistral-large" {
		t.Fatalf("unexpected call sequence: %v", got)
	}
}

func TestAnalyzeFallbackAvoidsSameModel(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{
		"mistral-large": "no json",
		"llama3.1-8b":   goodPayload,
	}}
	p, err := analysis.NewPipeline(client, "", "mistral-large", "mistral-large", 4000, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	out := p.Analyze(context.Background(), 1, "notes", "")
	if !out.Succeeded || out.ModelUsed != "llama3.1-8b" {
		t.Fatalf("expected alternate fallback model, got %s (succeeded=%v)", out.ModelUsed, out.Succeeded)
	}
}

func TestAnalyzeDegradesToRawText(t *testing.T) {
	prose := "Assessment: " + strings.Repeat("the patient is improving. ", 100)
	client := &scriptedClient{byModel: map[string]string{
		"claude-4-sonnet": prose,
		"mistral-large":   "still no structure",
	}}
	p := newPipeline(t, client)

	out := p.Analyze(context.Background(), 9, "notes", "")
	if !out.Succeeded {
		t.Fatalf("degraded outcome must count as success, got kind=%s", out.ErrorKind)
	}
	if out.ErrorKind != analysis.ErrKindDegradedParse {
		t.Fatalf("expected degraded kind, got %s", out.ErrorKind)
	}
	if out.Document.ClinicalSummary == nil {
		t.Fatalf("expected raw text preserved in summary section")
	}
	if got := len(out.Document.ClinicalSummary.ClinicalSummary); got > analysis.DegradedMaxChars {
		t.Fatalf("degraded text exceeds cap: %d", got)
	}
}

func TestAnalyzeEmptyOutputIsParseFailure(t *testing.T) {
	client := &scriptedClient{byModel: map[string]string{}}
	p := newPipeline(t, client)

	out := p.Analyze(context.Background(), 3, "notes", "")
	if out.Succeeded {
		t.Fatalf("expected failure for empty completions")
	}
	if out.ErrorKind != analysis.ErrKindParseFailure {
		t.Fatalf("expected parse failure, got %s", out.ErrorKind)
	}
}

func TestAnalyzeClassifiesCompletionErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind analysis.ErrorKind
	}{
		{"transient", &llm.TransientError{Err: errContains("http status 503")}, analysis.ErrKindTransientAPI},
		{"permanent", &llm.PermanentError{Err: errContains("http status 400")}, analysis.ErrKindPermanentAPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &scriptedClient{errs: map[string]error{"claude-4-sonnet": tc.err}}
			p := newPipeline(t, client)

			out := p.Analyze(context.Background(), 5, "notes", "")
			if out.Succeeded {
				t.Fatalf("expected failed outcome")
			}
			if out.ErrorKind != tc.kind {
				t.Fatalf("expected %s, got %s", tc.kind, out.ErrorKind)
			}
			if out.Err == nil {
				t.Fatalf("expected error carried on outcome")
			}
			if len(client.calls) != 1 {
				t.Fatalf("completion errors must not trigger the model fallback, got calls %v", client.calls)
			}
		})
	}
}

type errContains string

func (e errContains) Error() string { return string(e) }
