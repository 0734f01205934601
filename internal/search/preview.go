package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PreviewBackend is the SQL fallback backend. It calls the in-database
// patient_search_preview function and flattens its JSON envelope. Preview
// results never carry relevance scores.
type PreviewBackend struct {
	DB *sql.DB
}

func NewPreviewBackend(db *sql.DB) *PreviewBackend {
	return &PreviewBackend{DB: db}
}

const previewQuery = `SELECT patient_search_preview($1, $2)`

func (b *PreviewBackend) Search(ctx context.Context, q Query) ([]Result, error) {
	var raw []byte
	if err := b.DB.QueryRowContext(ctx, previewQuery, q.Text, q.Limit).Scan(&raw); err != nil {
		return nil, fmt.Errorf("search preview query: %w", err)
	}

	var envelope struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("search preview parse: %w", err)
	}
	return FlattenEnvelope(envelope.Results, false), nil
}

var _ Backend = (*PreviewBackend)(nil)
