package api

import (
	"context"
	"fmt"
	"net/http"

	"catalog-admin/internal/admin"
)

// SettingsFields are the settings keys the backend accepts.
var SettingsFields = []string{"merchantUPI", "siteName", "siteEmail"}

// Settings returns the store settings.
func (c *Client) Settings(ctx context.Context) (*admin.Settings, error) {
	var s admin.Settings
	if _, err := c.get(ctx, "/settings/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings changes the given settings keys and returns the result.
func (c *Client) UpdateSettings(ctx context.Context, changes map[string]string) (*admin.Settings, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("no settings to update")
	}
	for k := range changes {
		if !validSettingsField(k) {
			return nil, fmt.Errorf("unknown setting %q (want one of %v)", k, SettingsFields)
		}
	}
	env, err := c.call(ctx, http.MethodPut, "/settings/", nil, changes)
	if err != nil {
		return nil, err
	}
	var s admin.Settings
	if err := decodeData(env, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MerchantUPI returns the UPI id payments are made to.
func (c *Client) MerchantUPI(ctx context.Context) (string, error) {
	var resp struct {
		MerchantUPI string `json:"merchantUPI"`
	}
	if _, err := c.get(ctx, "/settings/merchant-upi", nil, &resp); err != nil {
		return "", err
	}
	return resp.MerchantUPI, nil
}

func validSettingsField(k string) bool {
	for _, f := range SettingsFields {
		if f == k {
			return true
		}
	}
	return false
}
