package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// resultColumns is the column selection sent with every native query.
var resultColumns = []string{"PATIENT_ID", "PATIENT_UID", "PATIENT_TITLE", "AGE", "GENDER"}

// scoreKeys are the vendor-specific keys a relevance score may appear under.
var scoreKeys = []string{"score", "SCORE", "relevance", "RELEVANCE"}

// NativeBackend queries the managed semantic-search service over HTTP.
type NativeBackend struct {
	baseURL    string
	service    string
	token      string
	httpClient *http.Client
}

// NewNativeBackend constructs a client for the named search service.
func NewNativeBackend(baseURL, service, token string, timeout time.Duration) (*NativeBackend, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("SEARCH_URL is required")
	}
	if strings.TrimSpace(service) == "" {
		return nil, fmt.Errorf("search service name is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NativeBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		service:    service,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type nativeRequest struct {
	Query   string         `json:"query"`
	Columns []string       `json:"columns"`
	Limit   int            `json:"limit"`
	Filter  map[string]any `json:"filter,omitempty"`
}

type nativeEnvelope struct {
	Results []map[string]any `json:"results"`
}

// Search issues one structured query and maps the response envelope into
// normalized results.
func (b *NativeBackend) Search(ctx context.Context, q Query) ([]Result, error) {
	payload, err := json.Marshal(nativeRequest{
		Query:   q.Text,
		Columns: resultColumns,
		Limit:   q.Limit,
		Filter:  q.Filter,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/search-services/%s:query", b.baseURL, b.service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search http status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var envelope nativeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("search response parse: %w", err)
	}
	return FlattenEnvelope(envelope.Results, true), nil
}

// FlattenEnvelope maps raw result rows into normalized results. Relevance is
// read from whichever known score key is present when withScores is set;
// non-numeric scores are treated as absent.
func FlattenEnvelope(rows []map[string]any, withScores bool) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		id, ok := asInt64(row["PATIENT_ID"])
		if !ok {
			continue
		}
		r := Result{
			RecordID: id,
			UID:      asString(row["PATIENT_UID"]),
			Title:    asString(row["PATIENT_TITLE"]),
			Gender:   asString(row["GENDER"]),
		}
		if age, ok := asFloat64(row["AGE"]); ok {
			r.Age = &age
		}
		if withScores {
			for _, key := range scoreKeys {
				if score, ok := asFloat64(row[key]); ok {
					r.Relevance = &score
					break
				}
			}
		}
		results = append(results, r)
	}
	return results
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		parsed, err := n.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case json.Number:
		parsed, err := n.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ Backend = (*NativeBackend)(nil)
