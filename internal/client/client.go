// Package client talks to the storefront API on behalf of one shopper. A
// Session carries the credentials and is passed to every call; calls that
// need auth refresh the access token once when the server rejects it.
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
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/01moynul/storefront-golang/internal/models"
)

// ErrSessionExpired is returned when the refresh token is no longer accepted.
// The session is cleared and the user has to log in again.
var ErrSessionExpired = errors.New("client: session expired")

// APIError is any non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session holds the credentials of one logged-in user.
type Session struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	user         models.User
}

// NewSession restores a session from previously saved tokens.
func NewSession(accessToken, refreshToken string) *Session {
	return &Session{accessToken: accessToken, refreshToken: refreshToken}
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// User is the user returned by signup, login or the last profile update.
func (s *Session) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Active reports whether the session still has a refresh token.
func (s *Session) Active() bool {
	return s.RefreshToken() != ""
}

func (s *Session) setAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *Session) setUser(u models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.accessToken, s.refreshToken, s.user = "", "", models.User{}
	s.mu.Unlock()
}

type authResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup creates an account and returns a logged-in session.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	var out authResponse
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/signup", "", in, &out); err != nil {
		return nil, err
	}
	return &Session{accessToken: out.AccessToken, refreshToken: out.RefreshToken, user: out.User}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var out authResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", "", in, &out); err != nil {
		return nil, err
	}
	return &Session{accessToken: out.AccessToken, refreshToken: out.RefreshToken, user: out.User}, nil
}

// Logout forgets the refresh token on the server and clears s. The session
// is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	refresh := s.RefreshToken()
	s.clear()
	if refresh == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/logout", "", map[string]string{"refreshToken": refresh}, nil)
}

// Refresh exchanges the refresh token for a new access token. A rejected
// refresh token clears s and yields ErrSessionExpired.
func (c *Client) Refresh(ctx context.Context, s *Session) error {
	refresh := s.RefreshToken()
	if refresh == "" {
		return ErrSessionExpired
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	err := c.do(ctx, http.MethodPost, "/refresh", "", map[string]string{"refreshToken": refresh}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
		s.clear()
		return ErrSessionExpired
	}
	if err != nil {
		return err
	}

	s.setAccessToken(out.AccessToken)
	return nil
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, s *Session, update ProfileUpdate) (models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.authed(ctx, s, http.MethodPut, "/profile", update, &out); err != nil {
		return models.User{}, err
	}
	s.setUser(out.User)
	return out.User, nil
}

func (c *Client) Users(ctx context.Context, s *Session) ([]models.User, error) {
	var out []models.User
	err := c.authed(ctx, s, http.MethodGet, "/users", nil, &out)
	return out, err
}

// Product is the catalog entry a cart line is copied from.
type Product struct {
	ID        int64           `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Thumbnail string          `json:"thumbnail,omitempty"`
}

func (c *Client) Cart(ctx context.Context, s *Session) ([]models.CartItem, error) {
	var out []models.CartItem
	err := c.authed(ctx, s, http.MethodGet, "/cart", nil, &out)
	return out, err
}

func (c *Client) AddToCart(ctx context.Context, s *Session, p Product) error {
	return c.authed(ctx, s, http.MethodPost, "/cart/add", p, nil)
}

// UpdateCartItem sets a line's quantity; zero removes the line.
func (c *Client) UpdateCartItem(ctx context.Context, s *Session, itemID int64, quantity int) error {
	path := fmt.Sprintf("/cart/items/%d", itemID)
	return c.authed(ctx, s, http.MethodPut, path, map[string]int{"quantity": quantity}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, s *Session, itemID int64) error {
	return c.authed(ctx, s, http.MethodDelete, fmt.Sprintf("/cart/remove/%d", itemID), nil, nil)
}

func (c *Client) ClearCart(ctx context.Context, s *Session) error {
	return c.authed(ctx, s, http.MethodDelete, "/cart/clear", nil, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, s *Session) (models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	err := c.authed(ctx, s, http.MethodPost, "/orders/place", nil, &out)
	return out.Order, err
}

// Orders lists the user's orders, newest first.
func (c *Client) Orders(ctx context.Context, s *Session) ([]models.Order, error) {
	var out []models.Order
	err := c.authed(ctx, s, http.MethodGet, "/orders", nil, &out)
	return out, err
}

func (c *Client) Order(ctx context.Context, s *Session, orderID int64) (models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	err := c.authed(ctx, s, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &out)
	return out.Order, err
}

// authed sends an authenticated request. A 401 or 403 triggers one refresh
// and one retry.
func (c *Client) authed(ctx context.Context, s *Session, method, path string, in, out any) error {
	if !s.Active() {
		return ErrSessionExpired
	}

	err := c.do(ctx, method, path, s.AccessToken(), in, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || (apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusForbidden) {
		return err
	}

	if err := c.Refresh(ctx, s); err != nil {
		return err
	}
	return c.do(ctx, method, path, s.AccessToken(), in, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
