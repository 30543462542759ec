// Package client is a REST client for the reblog API.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
	"resty.dev/v3"
)

const DefaultTimeout = 10 * time.Second

var ErrUnauthorized = errors.New("not authorized")

// APIError is the decoded body of a non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Is maps status codes onto the domain error classes.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrValidation:
		return e.Status == http.StatusBadRequest
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case domain.ErrAdvisory:
		return e.Status == http.StatusBadGateway
	case domain.ErrAuthoritative:
		return e.Status >= http.StatusInternalServerError && e.Status != http.StatusBadGateway
	}
	if v, ok := target.(*domain.ValidationError); ok {
		return v.Reason == e.Reason && v.Message == e.Message
	}
	return false
}

type Client struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) r(ctx context.Context) *resty.Request {
	req := c.client.R().WithContext(ctx).SetError(&APIError{})
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	req := c.r(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	res, err := req.Execute(method, path)
	return check(method, path, res, err)
}

func check(method, path string, res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !res.IsError() {
		return nil
	}
	apiErr, ok := res.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = res.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.Status)
	}
	return apiErr
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (string, *domain.User, error) {
	var out authResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.call(ctx, http.MethodPut, "/api/auth/profile", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UploadAvatar replaces the current user's avatar and returns its url.
func (c *Client) UploadAvatar(ctx context.Context, name string, data []byte) (string, error) {
	var out struct {
		Url string `json:"url"`
	}
	res, err := c.r(ctx).
		SetFileReader("avatar", name, bytes.NewReader(data)).
		SetResult(&out).
		Post("/api/auth/avatar")
	if err := check(http.MethodPost, "/api/auth/avatar", res, err); err != nil {
		return "", err
	}
	return out.Url, nil
}

func (c *Client) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) User(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/users/"+id.String(), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) FollowingUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.call(ctx, http.MethodGet, "/api/auth/following/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type followResponse struct {
	Following []uuid.UUID `json:"following"`
}

// Follow returns the ids the current user follows afterwards.
func (c *Client) Follow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var out followResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/follow/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Following, nil
}

func (c *Client) Unfollow(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var out followResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/unfollow/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Following, nil
}
