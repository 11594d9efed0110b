package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoOrder indicates a successful response that carried no order. The
// payments service has been seen answering 200 with an empty body for
// orders it no longer holds.
var ErrNoOrder = errors.New("no order in response")

// RetrieveOrder fetches the parent order for a payment.
func (c *Client) RetrieveOrder(ctx context.Context, orderID string) (*Order, error) {
	var resp struct {
		Order *Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/v2/orders/"+orderID, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("retrieve order %s: %w", orderID, err)
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("retrieve order %s: %w", orderID, ErrNoOrder)
	}
	return resp.Order, nil
}

// SearchOrdersRequest queries a customer's orders at a location since a given time.
type SearchOrdersRequest struct {
	LocationIDs []string
	CustomerIDs []string
	StartAt     string
	Cursor      string
	Limit       int
}

// SearchOrdersResponse is one page of orders.
type SearchOrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// SearchOrders pages through orders matching the request filters.
func (c *Client) SearchOrders(ctx context.Context, req SearchOrdersRequest) (*SearchOrdersResponse, error) {
	filter := map[string]any{}
	if len(req.CustomerIDs) > 0 {
		filter["customer_filter"] = map[string]any{
			"customer_ids": req.CustomerIDs,
		}
	}
	if req.StartAt != "" {
		filter["date_time_filter"] = map[string]any{
			"created_at": map[string]any{
				"start_at": req.StartAt,
			},
		}
	}

	body := map[string]any{
		"location_ids": req.LocationIDs,
	}
	if len(filter) > 0 {
		body["query"] = map[string]any{"filter": filter}
	}
	if req.Cursor != "" {
		body["cursor"] = req.Cursor
	}
	if req.Limit > 0 {
		body["limit"] = req.Limit
	}

	var resp SearchOrdersResponse
	if err := c.do(ctx, http.MethodPost, "/v2/orders/search", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return &resp, nil
}
