package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clinical-backend/internal/llm"
)

const defaultTimeout = 120 * time.Second

// Client implements llm.Client against a Cortex-style inference REST endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constructs a completion client for the given endpoint.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("COMPLETION_URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type completeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completeRequest struct {
	Model    string            `json:"model"`
	Messages []completeMessage `json:"messages"`
}

type completeResponse struct {
	Choices []struct {
		Message completeMessage `json:"message"`
		Text    string          `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends one completion request and returns the generated text.
// Errors are classified as llm.TransientError or llm.PermanentError.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", &llm.PermanentError{Err: errors.New("model is required")}
	}

	payload, err := json.Marshal(completeRequest{
		Model:    model,
		Messages: []completeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &llm.PermanentError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference:complete", bytes.NewReader(payload))
	if err != nil {
		return "", &llm.PermanentError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", &llm.TransientError{Err: fmt.Errorf("completion request timeout: %w", err)}
		}
		return "", llm.Classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransientError{Err: fmt.Errorf("read completion response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var parsed completeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.PermanentError{Err: fmt.Errorf("completion response parse: %w", err)}
	}
	if parsed.Error != nil {
		return "", llm.Classify(fmt.Errorf("completion service error: %s (%s)", parsed.Error.Message, parsed.Error.Code))
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	content := parsed.Choices[0].Message.Content
	if content == "" {
		content = parsed.Choices[0].Text
	}
	return strings.TrimSpace(content), nil
}

func classifyStatus(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 300 {
		detail = detail[:300]
	}
	err := fmt.Errorf("completion http status %d: %s", status, detail)
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return &llm.TransientError{Err: err}
	default:
		return &llm.PermanentError{Err: err}
	}
}

var _ llm.Client = (*Client)(nil)
