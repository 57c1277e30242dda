package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"catalog-admin/internal/admin"
)

type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Pagination *admin.Pagination `json:"pagination"`
}

func decodeList[T any](env *admin.Envelope) ([]T, *admin.Pagination, error) {
	var resp listResponse[T]
	if err := json.Unmarshal(env.Raw, &resp); err != nil {
		return nil, nil, fmt.Errorf("decoding list: %w", err)
	}
	return resp.Data, resp.Pagination, nil
}

// Products lists products matching q.
func (c *Client) Products(ctx context.Context, q admin.ProductQuery) ([]admin.Product, *admin.Pagination, error) {
	query := pageQuery(q.Page, q.Limit)
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	env, err := c.call(ctx, http.MethodGet, "/admin/products", query, nil)
	if err != nil {
		return nil, nil, err
	}
	return decodeList[admin.Product](env)
}

// Product returns one product, or nil if it does not exist.
func (c *Client) Product(ctx context.Context, productID string) (*admin.Product, error) {
	var p admin.Product
	found, err := c.get(ctx, "/admin/products/"+seg(productID), nil, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/products/"+seg(productID), nil, nil)
	return err
}

// UpdateRating sets a product's rating and review count.
func (c *Client) UpdateRating(ctx context.Context, productID string, rating float64, reviewsCount int) (*admin.Product, error) {
	if rating < 0 || rating > 5 {
		return nil, fmt.Errorf("rating %.1f out of range [0,5]", rating)
	}
	env, err := c.call(ctx, http.MethodPatch, "/admin/products/"+seg(productID)+"/rating", nil, map[string]any{
		"rating":       rating,
		"reviewsCount": reviewsCount,
	})
	if err != nil {
		return nil, err
	}
	var p admin.Product
	if err := decodeData(env, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Stats returns the dashboard summary.
func (c *Client) Stats(ctx context.Context) (*admin.Stats, error) {
	var s admin.Stats
	if _, err := c.get(ctx, "/admin/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
