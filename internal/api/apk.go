package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"catalog-admin/internal/admin"
)

// PackageStatus reports whether an app package is published.
func (c *Client) PackageStatus(ctx context.Context) (*admin.PackageStatus, error) {
	env, err := c.call(ctx, http.MethodGet, "/apk/status", nil, nil)
	if err != nil {
		return nil, err
	}
	var st admin.PackageStatus
	if err := json.Unmarshal(env.Raw, &st); err != nil {
		return nil, fmt.Errorf("decoding package status: %w", err)
	}
	return &st, nil
}

// PackageDownloadURL is where customers download the published package.
func (c *Client) PackageDownloadURL() string {
	return c.endpoint("/apk/download", nil)
}
