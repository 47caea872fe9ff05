package replicate

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

	"github.com/rs/zerolog"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/infra"
)

// ErrMissingAPIToken indicates that the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

// Options configures the Replicate client.
type Options struct {
	APIToken       string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the Replicate predictions API.
type Client struct {
	apiToken   string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("replicate: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("replicate: status %d", e.StatusCode)
}

type errorResponse struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("replicate: invalid base url: %w", err)
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiToken:   strings.TrimSpace(opts.APIToken),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiToken != ""
}

// CreatePrediction submits a job and returns the prediction as created.
func (c *Client) CreatePrediction(ctx context.Context, req domain.JobRequest) (*domain.Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	var prediction domain.Prediction
	if err := c.do(ctx, http.MethodPost, "/predictions", bytes.NewReader(body), &prediction); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("prediction_id", prediction.ID).
		Str("version", req.Version).
		Str("status", string(prediction.Status)).
		Msg("replicate: prediction created")
	return &prediction, nil
}

// GetPrediction fetches the current state of a prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("replicate: prediction id is required")
	}
	var prediction domain.Prediction
	if err := c.do(ctx, http.MethodGet, "/predictions/"+url.PathEscape(id), nil, &prediction); err != nil {
		return nil, err
	}
	return &prediction, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if !c.HasCredentials() {
		return ErrMissingAPIToken
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Accept", "application/json")
	// Responses are live job state; never let an intermediary serve a cached copy.
	httpReq.Header.Set("Cache-Control", "no-store")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("replicate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			apiErr.Detail = strings.TrimSpace(detail.Detail)
			if apiErr.Detail == "" {
				apiErr.Detail = strings.TrimSpace(detail.Title)
			}
		}
		if apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}
