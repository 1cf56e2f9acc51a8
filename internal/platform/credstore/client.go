package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Client implements Store against a hosted token-based auth API. The provider
// issues access/refresh token pairs on password grant and code exchange, and
// dispatches recovery emails whose links point back at our callback route.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	var pair TokenPair
	if err := c.post(ctx, "/token?grant_type=password", "", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.post(ctx, "/signup", "", body, nil)
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	body := map[string]string{"email": email}
	return c.post(ctx, path, "", body, nil)
}

// SetSession validates a fragment-delivered token pair by probing the user
// endpoint with the access token. The provider already minted the pair; we
// only confirm it is still honoured before adopting it.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if _, err := c.GetUser(ctx, accessToken); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "bearer"}, nil
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*TokenPair, error) {
	body := map[string]string{"auth_code": code}
	var pair TokenPair
	if err := c.post(ctx, "/token?grant_type=pkce", "", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	body := map[string]string{"password": newPassword}
	return c.do(ctx, http.MethodPut, "/user", accessToken, body, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*Identity, error) {
	var ident Identity
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/logout", accessToken, nil, nil)
}

func (c *Client) post(ctx context.Context, path, bearer string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, bearer, body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body, resp.StatusCode)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// readErrorMessage extracts the provider's human-readable rejection text.
// Providers vary between error_description, msg, and message fields.
func readErrorMessage(r io.Reader, status int) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("identity provider returned status %d", status)
	}

	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.ErrorDescription != "":
			return body.ErrorDescription
		case body.Msg != "":
			return body.Msg
		case body.Message != "":
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// IdentityFromToken reads the subject and email claims out of a provider
// access token. The signature is not checked here: the provider verifies the
// token on every call we make with it, and this decode is only used to label
// the session for display.
func IdentityFromToken(accessToken string) (*Identity, error) {
	var claims struct {
		jwt.RegisteredClaims
		Email string `json:"email"`
	}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}
