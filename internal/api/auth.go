package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"catalog-admin/internal/admin"
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*admin.Session, error) {
	env, err := c.call(ctx, http.MethodPost, "/admin/login", nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token string         `json:"token"`
		Admin admin.Operator `json:"admin"`
	}
	if err := json.Unmarshal(env.Raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if resp.Token == "" {
		return nil, &admin.RemoteRejection{Message: "login response carried no token"}
	}

	c.logger.Info("logged in", "operator", resp.Admin.Email)
	return &admin.Session{
		Token:     resp.Token,
		Operator:  resp.Admin,
		CreatedAt: c.clock.Now(),
	}, nil
}

// Logout ends the session on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/admin/logout", nil, nil)
	return err
}

// Profile returns the authenticated operator.
func (c *Client) Profile(ctx context.Context) (*admin.Operator, error) {
	env, err := c.call(ctx, http.MethodGet, "/admin/profile", nil, nil)
	if err != nil {
		return nil, err
	}

	var op admin.Operator
	if len(env.Data) > 0 {
		if err := decodeData(env, &op); err != nil {
			return nil, err
		}
		return &op, nil
	}

	var resp struct {
		Admin admin.Operator `json:"admin"`
	}
	if err := json.Unmarshal(env.Raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &resp.Admin, nil
}
