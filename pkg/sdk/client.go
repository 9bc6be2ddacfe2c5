package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/api/pkg/api_types"
)

// Client wraps calls to the vulnerability assistant backend
type Client struct {
	baseURL    string
	apiKey     string
	nvdKey     string
	httpClient *http.Client

	// Streamed chat turns last as long as the model takes, so they are
	// bounded by the caller's context only
	streamClient *http.Client
}

// NewClient creates a backend client. apiKey is sent as X-API-KEY; nvdKey,
// when set, is forwarded to the vulnerability database on the caller's behalf.
func NewClient(baseURL, apiKey, nvdKey string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		nvdKey:       nvdKey,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		streamClient: &http.Client{},
	}
}

// newRequest builds a request carrying the client's credentials
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	if c.nvdKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.nvdKey)
	}

	return req, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(method, path, resp); err != nil {
		return err
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

// checkStatus turns a non-2xx response into an error, using the envelope
// message when the backend sent one
func checkStatus(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, _ := io.ReadAll(resp.Body)

	var envelope ApiResponse[any]
	if err := json.Unmarshal(b, &envelope); err == nil && envelope.Message != "" {
		if envelope.Error != nil {
			return &BackendError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: %v", envelope.Message, envelope.Error)}
		}
		return &BackendError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	return &BackendError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("backend '%s %s' failed: %s", method, path, strings.TrimSpace(string(b)))}
}

// BackendError is returned when the backend answers with a non-2xx status
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("[BACKEND]: %d: %s", e.StatusCode, e.Message)
}

// envelopeError reports a failed envelope that still arrived with a 2xx status
func envelopeError[T any](action string, out ApiResponse[T]) error {
	switch out.Status {
	case api_types.StatusFail:
		return fmt.Errorf("failed to %s: %s", action, out.Message)
	case api_types.StatusError:
		return fmt.Errorf("error trying to %s (%s): %v", action, out.Message, out.Error)
	}
	return nil
}
