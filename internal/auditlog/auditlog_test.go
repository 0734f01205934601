package auditlog_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"clinical-backend/internal/auditlog"
)

func TestWriterTruncatesText(t *testing.T) {
	repo := auditlog.NewMemoryRepo()
	w := auditlog.NewWriter(repo)

	w.Record(context.Background(), auditlog.Entry{
		PatientID:    1,
		OriginalText: strings.Repeat("a", 1500),
		AnalysisType: "comprehensive",
		Success:      true,
	})

	entries := repo.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := len(entries[0].OriginalText); got != 1000 {
		t.Fatalf("expected 1000 chars, got %d", got)
	}
	if entries[0].SessionID != w.SessionID() {
		t.Fatalf("session id not stamped")
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatalf("created_at not defaulted")
	}
}

func TestWriterTruncatesTextOnRuneBoundary(t *testing.T) {
	repo := auditlog.NewMemoryRepo()
	w := auditlog.NewWriter(repo)

	w.Record(context.Background(), auditlog.Entry{
		PatientID:    2,
		OriginalText: strings.Repeat("a", 999) + "僚" + strings.Repeat("b", 20),
	})

	entries := repo.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	got := entries[0].OriginalText
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune")
	}
	if utf8.RuneCountInString(got) != 1000 {
		t.Fatalf("expected 1000 characters, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "僚") {
		t.Fatalf("expected the multibyte character to survive intact")
	}
}

func TestWriterNilRepoIsNoop(t *testing.T) {
	w := auditlog.NewWriter(nil)
	// Must not panic.
	w.Record(context.Background(), auditlog.Entry{PatientID: 1})
}

func TestListBySession(t *testing.T) {
	repo := auditlog.NewMemoryRepo()
	w := auditlog.NewWriter(repo)
	other := auditlog.NewWriter(repo)

	for i := 0; i < 3; i++ {
		w.Record(context.Background(), auditlog.Entry{PatientID: int64(i + 1), CreatedAt: time.Now().UTC()})
	}
	other.Record(context.Background(), auditlog.Entry{PatientID: 9})

	entries, err := repo.ListBySession(context.Background(), w.SessionID(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for session, got %d", len(entries))
	}
	for _, e := range entries {
		if e.PatientID == 9 {
			t.Fatalf("foreign session entry leaked")
		}
	}
}
