package api

import (
	"context"
	"net/http"
	"net/url"

	"catalog-admin/internal/admin"
)

// Banners lists banners, optionally only the active ones.
func (c *Client) Banners(ctx context.Context, activeOnly bool) ([]admin.Banner, error) {
	var query url.Values
	if activeOnly {
		query = url.Values{"active": {"true"}}
	}
	var banners []admin.Banner
	if _, err := c.get(ctx, "/banners", query, &banners); err != nil {
		return nil, err
	}
	return banners, nil
}

// Banner returns one banner, or nil if it does not exist.
func (c *Client) Banner(ctx context.Context, bannerID string) (*admin.Banner, error) {
	var b admin.Banner
	found, err := c.get(ctx, "/banners/"+seg(bannerID), nil, &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

// DeleteBanner removes a banner and its images.
func (c *Client) DeleteBanner(ctx context.Context, bannerID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/banners/"+seg(bannerID), nil, nil)
	return err
}

// DeleteBannerImage removes one image from a banner immediately.
func (c *Client) DeleteBannerImage(ctx context.Context, bannerID, imageID string) error {
	_, err := c.call(ctx, http.MethodDelete, "/banners/"+seg(bannerID)+"/images/"+seg(imageID), nil, nil)
	return err
}

// ToggleBanner flips a banner's active flag and returns the updated banner.
func (c *Client) ToggleBanner(ctx context.Context, bannerID string) (*admin.Banner, error) {
	env, err := c.call(ctx, http.MethodPatch, "/banners/"+seg(bannerID)+"/toggle", nil, nil)
	if err != nil {
		return nil, err
	}
	var b admin.Banner
	if err := decodeData(env, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
