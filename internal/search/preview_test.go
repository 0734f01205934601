package search_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"clinical-backend/internal/search"
)

func TestPreviewBackendFlattensEnvelope(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	envelope := `{"results": [
		{"PATIENT_ID": 3, "PATIENT_UID": "P-003", "PATIENT_TITLE": "Dyspnea workup", "AGE": 71, "GENDER": "M"},
		{"PATIENT_ID": 8, "PATIENT_UID": "P-008", "PATIENT_TITLE": "Post-op review"}
	]}`
	mock.ExpectQuery("SELECT patient_search_preview").
		WithArgs("dyspnea", 10).
		WillReturnRows(sqlmock.NewRows([]string{"patient_search_preview"}).AddRow([]byte(envelope)))

	backend := search.NewPreviewBackend(db)
	results, err := backend.Search(context.Background(), search.Query{Text: "dyspnea", Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %v", results)
	}
	if results[0].RecordID != 3 || results[0].UID != "P-003" {
		t.Fatalf("first row not mapped: %+v", results[0])
	}
	if results[0].Relevance != nil || results[1].Relevance != nil {
		t.Fatalf("preview backend must not report relevance")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPreviewBackendBadEnvelope(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT patient_search_preview").
		WithArgs("x", 5).
		WillReturnRows(sqlmock.NewRows([]string{"patient_search_preview"}).AddRow([]byte("not json")))

	backend := search.NewPreviewBackend(db)
	if _, err := backend.Search(context.Background(), search.Query{Text: "x", Limit: 5}); err == nil {
		t.Fatalf("expected parse error")
	}
}
