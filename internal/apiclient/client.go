// Package apiclient talks to the prediction gateway's own HTTP API. The CLI
// uses it to submit jobs and to feed the polling controller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
)

// SubmitRequest mirrors the body accepted by POST /api/predictions.
type SubmitRequest struct {
	Model        string         `json:"model,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
	Image        string         `json:"image,omitempty"`
	StartImage   string         `json:"start_image,omitempty"`
	SourcePrompt string         `json:"source_prompt,omitempty"`
	TargetPrompt string         `json:"target_prompt,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
}

// SubmitError is a rejected submission. Detail is the server's message.
type SubmitError struct {
	StatusCode int
	Detail     string
}

func (e *SubmitError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("submission failed with status %d", e.StatusCode)
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("apiclient: invalid base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// Submit creates a prediction. Anything but 201 is a *SubmitError.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*domain.Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: encode request: %w", err)
	}
	status, raw, err := c.do(ctx, http.MethodPost, "/api/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, &SubmitError{StatusCode: status, Detail: detailOf(raw)}
	}
	var prediction domain.Prediction
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, fmt.Errorf("apiclient: decode prediction: %w", err)
	}
	return &prediction, nil
}

// Fetch queries the current status. Any non-200 answer is reported as a
// *domain.TransportError carrying the server's detail message.
func (c *Client) Fetch(ctx context.Context, id string) (*domain.Prediction, error) {
	status, raw, err := c.do(ctx, http.MethodGet, "/api/predictions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &domain.TransportError{StatusCode: status, Detail: detailOf(raw)}
	}
	var prediction domain.Prediction
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, &domain.TransportError{StatusCode: status, Detail: "malformed status response"}
	}
	return &prediction, nil
}

// Download opens an output URL. The caller closes the body.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apiclient: download %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("apiclient: download %s: status %d", rawURL, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("apiclient: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func detailOf(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		return strings.TrimSpace(body.Detail)
	}
	return ""
}
