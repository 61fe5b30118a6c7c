// Package apiclient is the shared HTTP client for the ERP REST backend: bearer
// and tenant headers, one refresh-and-retry on 401, exponential backoff on 429,
// and server error messages flattened into typed errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
	pkgerrors "github.com/angelmondragon/pdv-terminal/pkg/errors"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/metrics"
	"github.com/angelmondragon/pdv-terminal/pkg/pagination"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultMaxAttempts       = 3
	defaultBackoffBase       = 500 * time.Millisecond
	errorBodyReadLimit int64 = 64 << 10
	tenantHeader             = "X-Tenant-ID"
)

var errBaseURLRequired = errors.New("api base url is required")

// Client talks to the ERP backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tenant      string
	tokens      TokenSource
	maxAttempts int
	backoffBase time.Duration
	metrics     *metrics.APIMetrics
	logg        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithRetryPolicy bounds 429 handling: total attempts and the first backoff delay.
func WithRetryPolicy(maxAttempts int, base time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if base > 0 {
			c.backoffBase = base
		}
	}
}

func WithMetrics(m *metrics.APIMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// New builds a client for baseURL. tenant is sent on every request when set.
func New(baseURL, tenant string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     trimmed,
		tenant:      strings.TrimSpace(tenant),
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		logg:        logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig wires the token source and retry policy from configuration.
// A refresh token enables the refreshing token source.
func NewFromConfig(cfg config.APIConfig, opts ...Option) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	var tokens TokenSource = StaticTokens{Access: cfg.AccessToken}
	if cfg.RefreshToken != "" {
		tokens = NewRefreshingTokens(cfg.BaseURL, cfg.AccessToken, cfg.RefreshToken, httpClient)
	}
	base := []Option{
		WithHTTPClient(httpClient),
		WithTokenSource(tokens),
		WithRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase),
	}
	return New(cfg.BaseURL, cfg.Tenant, append(base, opts...)...)
}

// Tokens exposes the configured token source.
func (c *Client) Tokens() TokenSource {
	return c.tokens
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out (when non-nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// GetPage fetches one page of a paginated list endpoint.
func GetPage[T any](ctx context.Context, c *Client, path string, page, size int) (pagination.Page[T], error) {
	var out pagination.Page[T]
	err := c.Get(ctx, path, pagination.Query(page, size), &out)
	return out, err
}

// Do performs one logical request. 401 triggers a single token refresh and
// replay; 429 is retried with exponential backoff up to the attempt limit.
// Every other status is returned immediately as a typed error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	payload, err := encodeBody(body)
	if err != nil {
		return err
	}
	target := c.buildURL(path, query)
	ctx = c.logg.WithFields(ctx, map[string]any{"method": method, "path": path})

	attempts := c.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(c.backoffBase))

	refreshed := false
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.send(ctx, method, target, payload)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed && c.tokens != nil {
			drain(resp)
			refreshed = true
			c.metrics.IncRetry("unauthorized")
			c.logg.Info(ctx, "access token rejected, refreshing")
			if _, err := c.tokens.Refresh(ctx); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session expired, sign in again")
			}
			if resp, err = c.send(ctx, method, target, payload); err != nil {
				return err
			}
		}
		defer drain(resp)

		if resp.StatusCode == http.StatusTooManyRequests {
			c.metrics.IncRetry("rate_limit")
			c.logg.Warn(ctx, "backend rate limited request")
			return retry.RetryableError(errorFromResponse(resp))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return errorFromResponse(resp)
		}
		return decodeBody(resp, out)
	})
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set(tenantHeader, c.tenant)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "no access token available")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, transportMessage(err))
	}
	c.metrics.ObserveRequest(method, resp.StatusCode)
	return resp, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
	}
	return payload, nil
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))
	_ = resp.Body.Close()
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "backend request timed out"
	}
	if urlErr != nil {
		err = urlErr.Err
	}
	return fmt.Sprintf("backend unreachable: %v", err)
}
