package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SubmitPriceInventory sends a bulk price/stock update. The platform only accepts
// the request here; the returned id must be polled for the actual outcome.
func (c *Client) SubmitPriceInventory(ctx context.Context, items []PriceInventoryItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("submit price/inventory: no items")
	}
	if len(items) > MaxBatchItems {
		return "", fmt.Errorf("submit price/inventory: %d items exceeds platform limit of %d", len(items), MaxBatchItems)
	}

	path := c.supplierPath("/products/price-and-inventory")
	var resp submitResponse
	if err := c.Do(ctx, http.MethodPost, path, nil, submitRequest{Items: items}, &resp); err != nil {
		return "", err
	}
	if resp.BatchRequestID == "" {
		return "", &APIError{
			Method:     http.MethodPost,
			Path:       path,
			StatusCode: http.StatusOK,
			Details:    "response carried no batchRequestId",
		}
	}
	return resp.BatchRequestID, nil
}

// GetBatchRequest fetches the processing outcome of a submission
func (c *Client) GetBatchRequest(ctx context.Context, batchRequestID string) (*BatchRequestResult, error) {
	var result BatchRequestResult
	path := c.supplierPath("/products/batch-requests/%s", url.PathEscape(batchRequestID))
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	if result.BatchRequestID == "" {
		result.BatchRequestID = batchRequestID
	}
	return &result, nil
}
