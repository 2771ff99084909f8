package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"legalgpt/server/internal/model"
)

// Client is the API client side of the auth protocol. It carries a cookie
// jar so the HttpOnly refresh cookie flows exactly as it would in a browser:
// the refresh token is never visible to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

// APIError is a non-2xx response, carrying the server's generic message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type authResponse struct {
	Success     bool        `json:"success"`
	User        *model.User `json:"user"`
	AccessToken string      `json:"accessToken"`
	Message     string      `json:"error"`
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*model.User, string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": password, "name": name,
	})
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.AccessToken, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if err != nil {
		return nil, "", err
	}
	return resp.User, resp.AccessToken, nil
}

// Refresh exchanges the refresh cookie for a new token pair and returns the
// new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/refresh", "", nil)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*model.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", "", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body interface{}) (*authResponse, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode < 300 {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: parsed.Message}
	}
	return &parsed, nil
}
