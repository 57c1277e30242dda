package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"catalog-admin/internal/admin"
)

func orderQuery(q admin.OrderQuery) url.Values {
	query := pageQuery(q.Page, q.Limit)
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	return query
}

// Orders lists orders matching q.
func (c *Client) Orders(ctx context.Context, q admin.OrderQuery) ([]admin.Order, *admin.Pagination, error) {
	env, err := c.call(ctx, http.MethodGet, "/order/orders", orderQuery(q), nil)
	if err != nil {
		return nil, nil, err
	}
	return decodeList[admin.Order](env)
}

// OrdersByUser lists one customer's orders.
func (c *Client) OrdersByUser(ctx context.Context, userID string, q admin.OrderQuery) ([]admin.Order, *admin.Pagination, error) {
	env, err := c.call(ctx, http.MethodGet, "/order/orders/"+seg(userID), orderQuery(q), nil)
	if err != nil {
		return nil, nil, err
	}
	return decodeList[admin.Order](env)
}

// Order returns one order, or nil if it does not exist.
func (c *Client) Order(ctx context.Context, orderID string) (*admin.Order, error) {
	var o admin.Order
	found, err := c.get(ctx, "/order/order/"+seg(orderID), nil, &o)
	if err != nil || !found {
		return nil, err
	}
	return &o, nil
}

// OrderByNumber returns the order with the customer-facing number, or nil.
func (c *Client) OrderByNumber(ctx context.Context, number string) (*admin.Order, error) {
	var o admin.Order
	found, err := c.get(ctx, "/order/order/number/"+seg(number), nil, &o)
	if err != nil || !found {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus moves an order to status. Unknown statuses are rejected
// without a request.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*admin.Order, error) {
	if !admin.ValidOrderStatus(status) {
		return nil, fmt.Errorf("invalid order status %q (want one of %v)", status, admin.OrderStatuses)
	}
	env, err := c.call(ctx, http.MethodPut, "/order/order/"+seg(orderID)+"/status", nil, map[string]string{"status": status})
	if err != nil {
		return nil, err
	}
	var o admin.Order
	if err := decodeData(env, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/order/order/"+seg(orderID), nil, nil)
	return err
}
