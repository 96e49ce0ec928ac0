// Package scraper implements the external source capability set against an
// HTTP scraping backend. One session per authenticated account; rate-limit
// headers observed on responses are tracked per endpoint category.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LiamVDB1/twitter-api/internal/domain"
	"github.com/LiamVDB1/twitter-api/internal/ports"
)

const (
	headerRateRemaining = "X-Rate-Limit-Remaining"
	headerRateReset     = "X-Rate-Limit-Reset"
	headerRateLimit     = "X-Rate-Limit-Limit"
)

// Client dials the scraping backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.SourceClient = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login opens an authenticated session for the credentials.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (ports.Session, error) {
	body, err := json.Marshal(loginRequest{
		Username: creds.Username,
		Password: creds.Password,
		Email:    creds.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if decoded.Token == "" {
		return nil, fmt.Errorf("login response missing session token")
	}

	return newSession(c, decoded.Token), nil
}

// get performs an authenticated GET, captures rate-limit headers into the
// session and decodes the body into out. A 404 returns errNotFound.
func (c *Client) get(ctx context.Context, sess *session, category domain.EndpointCategory, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if category != "" {
		if limit := parseRateLimit(resp.Header); limit != nil {
			sess.setRateLimit(category, *limit)
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return errNotFound
	default:
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}
	return nil
}

func parseRateLimit(header http.Header) *domain.RateLimitInfo {
	remaining := header.Get(headerRateRemaining)
	reset := header.Get(headerRateReset)
	if remaining == "" || reset == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil {
		return nil
	}
	resetAt, err := strconv.ParseInt(reset, 10, 64)
	if err != nil {
		return nil
	}
	limit, _ := strconv.Atoi(header.Get(headerRateLimit))

	return &domain.RateLimitInfo{Remaining: rem, ResetAt: resetAt, Limit: limit}
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) == 0 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
}
