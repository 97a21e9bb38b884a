package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// HTTPError is a non-2xx response from the management API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d - %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrResourceNotFound) match 404 responses
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrResourceNotFound
	}
	return nil
}

// RestClient provides a generic HTTP client for management API operations
// with bearer authentication, retry logic, and error mapping
type RestClient struct {
	HTTPClient  *http.Client
	BaseURL     string
	AccessToken string
}

// NewRestClient creates a new generic REST client. The access token is optional
// for management endpoints that sit behind a trusted network boundary.
func NewRestClient(baseURL, accessToken string, retry *RetryConfig) (*RestClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	return &RestClient{
		HTTPClient:  NewRetryableHTTPClient(retry, DefaultHTTPTimeout),
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		AccessToken: accessToken,
	}, nil
}

// DoRequest performs a generic HTTP request; transient failures are retried by HTTPClient
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - method: HTTP method (POST, GET, PUT, DELETE)
//   - path: API path (e.g., "/api/providers", "/api/providers/{id}")
//   - requestBody: Request body to be marshaled to JSON (nil for GET/DELETE)
//   - responseData: Pointer to struct for unmarshaling response JSON (nil if no response expected)
//
// Returns:
//   - error: *HTTPError for non-2xx responses, transport or JSON error, or nil on success
func (c *RestClient) DoRequest(
	ctx context.Context,
	method string,
	path string,
	requestBody interface{},
	responseData interface{},
) error {
	url := fmt.Sprintf("%s%s", c.BaseURL, path)

	var bodyReader io.Reader
	if requestBody != nil {
		bodyBytes, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	// Log request (sanitized - no body)
	tflog.Debug(ctx, "REST API request", map[string]interface{}{
		"method": method,
		"path":   path,
	})

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if c.AccessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.AccessToken))
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(respBodyBytes)}
	}

	tflog.Debug(ctx, "REST API response", map[string]interface{}{
		"status_code": resp.StatusCode,
		"method":      method,
		"path":        path,
	})

	if responseData != nil && len(respBodyBytes) > 0 {
		if err := json.Unmarshal(respBodyBytes, responseData); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
