package gateway

import (
	"context"
	"fmt"
	"net/http"
)

// ListLocations fetches every business location registered with the payments service.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp struct {
		Locations []Location `json:"locations"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/locations", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return resp.Locations, nil
}
