// Package client is a typed Go client for the fintrack REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const defaultTimeout = 30 * time.Second

// ErrNotAuthenticated is returned before any request is sent when an
// authenticated call is made without a session token.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	logger     *applog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    NewSession(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = applog.New(applog.DefaultConfig())
	}
	c.logger = c.logger.WithComponent(applog.ComponentClient)
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

// do sends body as JSON and decodes a 2xx response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, authenticated bool, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token := c.session.Token()
		if token == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API call",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type sessionResponse struct {
	Token string          `json:"token"`
	User  core.PublicUser `json:"user"`
}

// Signup creates an account and starts a session for it.
func (c *Client) Signup(ctx context.Context, email, password, name string) (core.PublicUser, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", false,
		map[string]string{"email": email, "password": password, "name": name}, &resp)
	if err != nil {
		return core.PublicUser{}, err
	}
	c.session.Set(resp.Token, resp.User)
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (core.PublicUser, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", false,
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return core.PublicUser{}, err
	}
	c.session.Set(resp.Token, resp.User)
	return resp.User, nil
}

func (c *Client) Logout() {
	c.session.Clear()
}

// Verify checks the session token with the server. A rejected token or a
// vanished user ends the session.
func (c *Client) Verify(ctx context.Context) (core.PublicUser, error) {
	var resp struct {
		User core.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify", true, nil, &resp); err != nil {
		if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusNotFound) {
			c.session.Clear()
		}
		return core.PublicUser{}, err
	}
	c.session.setUser(resp.User)
	return resp.User, nil
}

// ForgotPassword reports whether an account exists for email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (bool, error) {
	var resp struct {
		UserFound bool `json:"user_found"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", false,
		map[string]string{"email": email}, &resp)
	return resp.UserFound, err
}

func (c *Client) ResetPassword(ctx context.Context, email, newPassword string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", false,
		map[string]string{"email": email, "new_password": newPassword}, nil)
}

// UpdateProfile sends only the non-nil fields of update.
func (c *Client) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (core.PublicUser, error) {
	body := map[string]string{}
	if update.Name != nil {
		body["name"] = *update.Name
	}
	if update.PhoneNumber != nil {
		body["phone_number"] = *update.PhoneNumber
	}
	if update.ProfilePicture != nil {
		body["profile_picture"] = *update.ProfilePicture
	}

	var resp struct {
		User core.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/update-profile", true, body, &resp); err != nil {
		return core.PublicUser{}, err
	}
	c.session.setUser(resp.User)
	return resp.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/api/auth/change-password", true,
		map[string]string{"current_password": currentPassword, "new_password": newPassword}, nil)
}
