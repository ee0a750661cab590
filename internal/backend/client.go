// Package backend talks to the remote assessment API. Assistant replies
// arrive as an SSE stream and are reduced to a single message before being
// handed to the caller.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

// StartSessionRequest carries the collected intake fields.
type StartSessionRequest struct {
	ChildName        string `json:"child_name"`
	DOB              string `json:"dob"` // ISO format
	GestationalWeeks *int   `json:"gestational_weeks,omitempty"`
	Locale           string `json:"locale"`
}

// StartSessionResponse is returned when a new assessment session opens.
type StartSessionResponse struct {
	SessionID              string   `json:"session_id"`
	ChildName              string   `json:"child_name"`
	ChronologicalAgeMonths float64  `json:"chronological_age_months"`
	CorrectedAgeMonths     *float64 `json:"corrected_age_months"`
	UsingCorrectedAge      bool     `json:"using_corrected_age"`
	AgeBand                string   `json:"age_band"`
	Locale                 string   `json:"locale"`
}

// QueryRequest carries one user turn to the assistant.
type QueryRequest struct {
	SessionID          string `json:"session_id"`
	UserMessage        string `json:"user_message"`
	AnswerCode         string `json:"answer_code,omitempty"`
	ConfidenceOverride string `json:"confidence_override,omitempty"`
}

// CloseSessionResponse summarizes a finished session.
type CloseSessionResponse struct {
	Message          string   `json:"message"`
	TotalQuestions   int      `json:"total_questions"`
	TotalTimeSeconds float64  `json:"total_time_seconds"`
	DomainsAssessed  []string `json:"domains_assessed"`
}

// Results is the scored results payload. The shape is owned by the backend;
// this service only reads a couple of top-level fields.
type Results map[string]any

// UsingCorrectedAge reports whether scoring used the prematurity-corrected age.
func (r Results) UsingCorrectedAge() bool {
	v, _ := r["using_corrected_age"].(bool)
	return v
}

// AgeMonths returns the age the backend scored against, zero when absent.
func (r Results) AgeMonths() float64 {
	v, _ := r["age_months"].(float64)
	return v
}

// OverallStatus returns the summary status line, with a neutral default.
func (r Results) OverallStatus() string {
	if v, ok := r["overall_status"].(string); ok && v != "" {
		return v
	}
	return "On track"
}

// Client calls the assessment backend over HTTP with bounded timeouts.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewClient builds a backend client. timeout bounds the slowest call (the
// streamed assistant query); shorter per-call budgets are derived from it.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		tracer: otel.Tracer("whatsapp-connect.internal.backend"),
	}
}

// StartSession opens a new assessment session for the collected intake data.
func (c *Client) StartSession(ctx context.Context, req StartSessionRequest) (*StartSessionResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend.start_session")
	defer span.End()

	var resp StartSessionResponse
	if err := c.postJSON(ctx, "/session/start", req, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Info("started assessment session", "session_id", resp.SessionID, "age_band", resp.AgeBand)
	return &resp, nil
}

// QueryAssistant sends one user turn and accumulates the streamed reply into
// a single message.
func (c *Client) QueryAssistant(ctx context.Context, req QueryRequest) (*AssistantMessage, error) {
	ctx, span := c.tracer.Start(ctx, "backend.query_assistant")
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to marshal query: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assistant/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("backend: assistant query failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("backend: assistant query returned status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	msg, err := Accumulate(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Info("assistant turn received", "session_id", req.SessionID, "is_final", msg.IsFinal)
	return &msg, nil
}

// CloseSession ends a session and triggers scoring. The backend treats the
// call as idempotent, so retrying a failed completion is safe.
func (c *Client) CloseSession(ctx context.Context, sessionID string) (*CloseSessionResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend.close_session")
	defer span.End()

	payload := map[string]string{"session_id": sessionID}
	var resp CloseSessionResponse
	if err := c.postJSON(ctx, "/session/close", payload, &resp); err != nil {
		span.RecordError(err)
		return nil, err
	}
	c.logger.Info("closed assessment session", "session_id", sessionID, "total_questions", resp.TotalQuestions)
	return &resp, nil
}

// FetchResults retrieves the scored results for a completed session.
func (c *Client) FetchResults(ctx context.Context, sessionID string) (Results, error) {
	ctx, span := c.tracer.Start(ctx, "backend.fetch_results")
	defer span.End()

	endpoint := c.baseURL + "/results?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build results request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("backend: results fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("backend: results fetch returned status %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var results Results
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("backend: failed to decode results: %w", err)
	}
	return results, nil
}

// HealthCheck probes the backend liveness endpoint. Used at startup only.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: failed to marshal %s payload: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: failed to decode %s response: %w", path, err)
	}
	return nil
}
