package search

import (
	"context"
	"fmt"

	"clinical-backend/internal/shared/metrics"
	"clinical-backend/internal/shared/telemetry"
)

// Result is a normalized search hit, identical regardless of which backend
// answered. Relevance is nil when the backend does not report a usable score.
type Result struct {
	RecordID  int64    `json:"recordId"`
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	Age       *float64 `json:"age,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Relevance *float64 `json:"relevance,omitempty"`
}

// Query is a backend-agnostic search request.
type Query struct {
	Text   string
	Filter map[string]any
	Limit  int
}

// Backend answers search queries. Two implementations exist: the managed
// semantic-search service and the SQL preview fallback.
type Backend interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// IDLister supplies the set of already-analyzed record ids for post-filtering.
type IDLister interface {
	ListAnalyzedIDs(ctx context.Context) ([]int64, error)
}

// Service tries the native backend first and transparently retries through
// the fallback; an error surfaces only when both backends fail.
type Service struct {
	Native   Backend
	Fallback Backend
	Analyzed IDLister
}

// Search runs the query. When analyzedOnly is set, results are intersected
// with the stored analysis ids since neither backend can express that filter
// natively.
func (s *Service) Search(ctx context.Context, q Query, analyzedOnly bool) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	results, err := s.searchBackends(ctx, q)
	if err != nil {
		return nil, err
	}
	if !analyzedOnly {
		return results, nil
	}
	if s.Analyzed == nil {
		return results, nil
	}

	ids, err := s.Analyzed.ListAnalyzedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list analyzed ids: %w", err)
	}
	analyzed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		analyzed[id] = struct{}{}
	}
	filtered := results[:0]
	for _, r := range results {
		if _, ok := analyzed[r.RecordID]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *Service) searchBackends(ctx context.Context, q Query) ([]Result, error) {
	if s.Native != nil {
		results, err := s.Native.Search(ctx, q)
		if err == nil {
			return results, nil
		}
		telemetry.Warn("search.native_failed", map[string]any{
			"query": q.Text,
			"error": err.Error(),
		})
		metrics.IncSearchFallback()
	}
	if s.Fallback == nil {
		return nil, fmt.Errorf("no search backend available")
	}
	results, err := s.Fallback.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search fallback: %w", err)
	}
	return results, nil
}
