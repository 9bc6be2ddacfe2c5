package sdk

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ethanbaker/vulnassist/pkg/nvd"
)

// Search runs the full vulnerability lookup for a dependency. vendor may be
// empty to match any vendor.
func (c *Client) Search(ctx context.Context, name, version, vendor string) (*nvd.Result, error) {
	query := url.Values{"name": {name}, "version": {version}}
	if vendor != "" {
		query.Set("vendor", vendor)
	}

	var out ApiResponse[nvd.Result]
	if err := c.doJSON(ctx, http.MethodGet, "/api/nvd/search?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if err := envelopeError("search vulnerabilities", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// CPEs resolves a dependency to CPE entries
func (c *Client) CPEs(ctx context.Context, product, version, vendor string) ([]nvd.CPE, error) {
	query := url.Values{"product": {product}, "version": {version}}
	if vendor != "" {
		query.Set("vendor", vendor)
	}

	var out ApiResponse[[]nvd.CPE]
	if err := c.doJSON(ctx, http.MethodGet, "/api/nvd/cpes?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if err := envelopeError("resolve dependency", out); err != nil {
		return nil, err
	}

	return out.Data, nil
}

// CVEs lists the vulnerabilities recorded for one CPE name
func (c *Client) CVEs(ctx context.Context, cpeName string) ([]nvd.CVE, error) {
	query := url.Values{"cpe_name": {cpeName}}

	var out ApiResponse[[]nvd.CVE]
	if err := c.doJSON(ctx, http.MethodGet, "/api/nvd/cves?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if err := envelopeError("fetch vulnerabilities", out); err != nil {
		return nil, err
	}

	return out.Data, nil
}
