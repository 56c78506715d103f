// Package client calls the iris API over HTTP.
package client

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

	"irisapi/inference"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client talks to one API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health. An Unloaded service answers 503 with a valid
// body; that body is returned together with the APIError.
func (c *Client) Health(ctx context.Context) (*inference.Health, error) {
	var health inference.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &health)
	if err != nil && !IsStatus(err, http.StatusServiceUnavailable) {
		return nil, err
	}
	return &health, err
}

// Describe calls GET /.
func (c *Client) Describe(ctx context.Context) (*inference.Description, error) {
	var desc inference.Description
	if err := c.do(ctx, http.MethodGet, "/", nil, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Prediction is the decoded predict response.
type Prediction = inference.Result

// Predict calls POST /predict with a feature vector.
func (c *Client) Predict(ctx context.Context, features []float64) (*Prediction, error) {
	return c.PredictRaw(ctx, map[string]any{inference.FeaturesKey: features})
}

// PredictRaw posts an arbitrary payload, for probing validation.
func (c *Client) PredictRaw(ctx context.Context, payload any) (*Prediction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var pred Prediction
	if err := c.do(ctx, http.MethodPost, "/predict", body, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: data}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		// a 503 health body is still worth decoding
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
