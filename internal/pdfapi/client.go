package pdfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// External task status values as reported by the PDF API.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Client talks to the external PDF rendering service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the PDF API at baseURL.
// apiKey is sent as a bearer credential on generate requests.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateRequest is the job-creation request body.
type GenerateRequest struct {
	WikiPages []string `json:"wiki_pages"`
	BookTitle string   `json:"book_title"`
	BaseURL   string   `json:"base_url"`
}

// generateResponse is the success body of a generate call.
type generateResponse struct {
	TaskID string `json:"task_id"`
}

// apiErrorBody is the structured error shape the service returns.
type apiErrorBody struct {
	Detail string `json:"detail"`
}

// StatusResponse is the body of a status call.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Terminal reports whether the external status is a terminal state.
func (s *StatusResponse) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Generate submits a new rendering job and returns the external task id.
// A non-success response yields an *APIError with the service's detail
// message when present; a success response without a task id yields
// ErrMissingTaskID. No retry is performed here.
func (c *Client) Generate(ctx context.Context, genReq GenerateRequest) (string, error) {
	bodyBytes, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pdf/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	if genResp.TaskID == "" {
		return "", ErrMissingTaskID
	}

	return genResp.TaskID, nil
}

// Status fetches the current external state of a task.
// 404 maps to ErrTaskNotFound (terminal); any other non-success response
// maps to a *TransientError so callers keep polling.
func (c *Client) Status(ctx context.Context, taskID string) (*StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures are transient too - the service may come back.
		return nil, &TransientError{StatusCode: 0}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTaskNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransientError{StatusCode: resp.StatusCode}
	}

	var st StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &st, nil
}

// DownloadURL returns the filename-qualified download path for a task.
// filename should already be sanitized via SanitizeFilename.
func (c *Client) DownloadURL(taskID, filename string) string {
	return fmt.Sprintf("%s/api/pdf/download/%s/%s.pdf", c.baseURL, taskID, filename)
}

// FallbackDownloadURL returns the non-filename-qualified download path,
// used when the named file turns out not to exist.
func (c *Client) FallbackDownloadURL(taskID string) string {
	return fmt.Sprintf("%s/api/pdf/download/%s/pdf", c.baseURL, taskID)
}

// Exists probes url with a HEAD request. Advisory only; any failure
// reports false.
func (c *Client) Exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Download streams the PDF at url into w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	return nil
}

// Delete asks the API to drop a finished task. Best-effort: callers are
// expected to log and ignore failures.
func (c *Client) Delete(ctx context.Context, taskID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/pdf/delete/"+taskID, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) statusURL(taskID string) string {
	return c.baseURL + "/api/pdf/status/" + taskID
}

func errorMessage(statusCode int, body []byte) string {
	var errBody apiErrorBody
	if json.Unmarshal(body, &errBody) == nil && errBody.Detail != "" {
		return errBody.Detail
	}
	return fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode))
}
