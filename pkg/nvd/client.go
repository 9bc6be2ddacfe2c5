package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://services.nvd.nist.gov/rest/json"
	DefaultTimeout = 60 * time.Second

	// Largest page sizes the NVD API accepts for each endpoint
	maxCPEResultsPerPage = 10000
	maxCVEResultsPerPage = 2000
)

// Lookup is the pair of external queries the aggregator depends on
type Lookup interface {
	ResolveIdentifier(ctx context.Context, id Identifier, credential string) ([]CPE, error)
	FetchDetails(ctx context.Context, cpeName, credential string) ([]CVE, error)
}

// Client is a stateless NVD API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another NVD compatible endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient creates a new NVD client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "vulnassist/1.0 (NVD lookup)",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ResolveIdentifier finds the CPE entries matching a validated identifier.
// No matches is an empty result, not an error.
func (c *Client) ResolveIdentifier(ctx context.Context, id Identifier, credential string) ([]CPE, error) {
	query := url.Values{}
	query.Set("cpeMatchString", id.MatchString())
	query.Set("resultsPerPage", strconv.Itoa(maxCPEResultsPerPage))

	var resp cpeResponse
	if err := c.get(ctx, "resolve", "/cpes/2.0", query, credential, &resp); err != nil {
		return nil, err
	}

	cpes := make([]CPE, 0, len(resp.Products))
	for _, product := range resp.Products {
		cpes = append(cpes, product.CPE)
	}

	return cpes, nil
}

// FetchDetails returns the CVEs affecting a single CPE name.
// No vulnerabilities is an empty result, not an error.
func (c *Client) FetchDetails(ctx context.Context, cpeName, credential string) ([]CVE, error) {
	query := url.Values{}
	query.Set("cpeName", cpeName)
	query.Set("resultsPerPage", strconv.Itoa(maxCVEResultsPerPage))

	var resp cveResponse
	if err := c.get(ctx, "detail", "/cves/2.0", query, credential, &resp); err != nil {
		return nil, err
	}

	cves := make([]CVE, 0, len(resp.Vulnerabilities))
	for _, vuln := range resp.Vulnerabilities {
		cve := vuln.CVE
		cve.CPEName = cpeName
		cves = append(cves, cve)
	}

	return cves, nil
}

// get performs one GET against the API and decodes the JSON body into out
func (c *Client) get(ctx context.Context, op, path string, query url.Values, credential string, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &LookupError{Op: op, Cause: CauseNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if credential != "" {
		req.Header.Set("apiKey", credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &LookupError{Op: op, Cause: classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// NVD puts the reason in a "message" header on most failures
		reason := resp.Header.Get("message")
		if reason == "" {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			reason = strings.TrimSpace(string(b))
		}
		return &LookupError{
			Op:         op,
			Cause:      CauseStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, reason),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &LookupError{Op: op, Cause: classify(err), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &LookupError{Op: op, Cause: CauseParse, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return nil
}

// classify maps a transport error onto a lookup failure cause
func classify(err error) Cause {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}

	return CauseNetwork
}
