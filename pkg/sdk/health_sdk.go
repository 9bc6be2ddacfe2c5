package sdk

import (
	"context"
	"net/http"
)

// Health returns the backend status
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out ApiResponse[HealthStatus]
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	if err := envelopeError("get health", out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}
