package marketplace

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// FetchOrders returns one page of shipment packages modified inside the query window
func (c *Client) FetchOrders(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	size := q.Size
	if size <= 0 || size > MaxOrderPageSize {
		size = MaxOrderPageSize
	}
	orderBy := q.OrderByField
	if orderBy == "" {
		orderBy = OrderByLastModified
	}
	direction := q.OrderByDirection
	if direction == "" {
		direction = "ASC"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("size", strconv.Itoa(size))
	params.Set("startDate", strconv.FormatInt(q.StartDate, 10))
	params.Set("endDate", strconv.FormatInt(q.EndDate, 10))
	params.Set("orderByField", orderBy)
	params.Set("orderByDirection", direction)

	var page OrderPage
	if err := c.Do(ctx, http.MethodGet, c.supplierPath("/orders"), params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
