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
	"sync"
	"time"

	masker "github.com/goliatone/go-masker"
	"github.com/goliatone/go-timeoff/pkg/api"
	"github.com/goliatone/go-timeoff/pkg/domain"
	"github.com/goliatone/go-timeoff/pkg/interfaces/logger"
	"github.com/goliatone/go-timeoff/pkg/retry"
)

// Client talks to the time-off REST API.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	backoff    retry.Backoff
	maxRetries int
	logger     logger.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the bearer token sent on every call.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRetries sets how many times idempotent reads are retried.
func WithRetries(max int, backoff retry.Backoff) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(lgr logger.Logger) Option {
	return func(c *Client) {
		if lgr != nil {
			c.logger = lgr
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL:    u,
		http:       &http.Client{Timeout: 10 * time.Second},
		backoff:    retry.DefaultBackoff(),
		maxRetries: 2,
		logger:     &logger.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken swaps the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.logger.Debug("api token updated", logger.Field{Key: "token", Value: MaskToken(token)})
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges an email for a session token and installs it on the client.
func (c *Client) Login(ctx context.Context, email string) (api.TokenResponse, error) {
	var out api.TokenResponse
	err := c.do(ctx, "login", http.MethodPost, api.PathToken, nil, api.TokenRequest{Email: email}, &out)
	if err != nil {
		return api.TokenResponse{}, err
	}
	c.SetToken(out.Token)
	return out, nil
}

// RequestFilter is the filter context for ListRequests. The server applies
// role based filtering on top of it.
type RequestFilter struct {
	Status domain.RequestStatus
}

// ListRequests returns the requests visible to the caller, in server order.
func (c *Client) ListRequests(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set(api.QueryStatus, string(filter.Status))
	}
	var out api.ListResponse[domain.Request]
	if err := c.get(ctx, "list requests", api.PathRequests, query, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// SubmitRequest creates a new request for the caller.
func (c *Client) SubmitRequest(ctx context.Context, input api.SubmitRequest) (*domain.Request, error) {
	var out domain.Request
	if err := c.do(ctx, "submit request", http.MethodPost, api.PathRequests, nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReviewRequest approves or rejects a pending request.
func (c *Client) ReviewRequest(ctx context.Context, id string, decision string, note string) error {
	if decision != api.DecisionApprove && decision != api.DecisionReject {
		return fmt.Errorf("apiclient: unknown decision %q", decision)
	}
	path := api.RequestDecisionPath(url.PathEscape(id), decision)
	return c.do(ctx, "review request", http.MethodPost, path, nil, api.ReviewRequest{Note: note}, nil)
}

// ListNotifications returns the caller's notifications, in server order.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var out api.ListResponse[domain.Notification]
	if err := c.get(ctx, "list notifications", api.PathNotifications, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UnreadCount returns the caller's unread notification count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out api.CountResponse
	if err := c.get(ctx, "unread count", api.PathUnreadCount, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkAsRead flags a single notification as read.
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	return c.do(ctx, "mark as read", http.MethodPost, api.NotificationReadPath(url.PathEscape(id)), nil, nil, nil)
}

// MarkAllAsRead flags every notification of the caller as read.
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.do(ctx, "mark all as read", http.MethodPost, api.PathMarkAllRead, nil, nil, nil)
}

// get retries transient failures using the configured backoff.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	err := retry.Do(ctx, c.maxRetries, c.backoff,
		func() error {
			return c.do(ctx, op, http.MethodGet, path, query, nil, out)
		},
		func(err error) bool {
			var te *TransportError
			return errors.As(err, &te) && te.Temporary()
		},
		func(attempt int, delay time.Duration) {
			c.logger.Debug("retrying api call",
				logger.Field{Key: "op", Value: op},
				logger.Field{Key: "attempt", Value: attempt},
				logger.Field{Key: "delay", Value: delay.String()},
			)
		},
	)
	var te *TransportError
	if err != nil && !errors.As(err, &te) {
		return &TransportError{Op: op, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", api.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: decodeError(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeError(r io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload api.ErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return errors.New(msg)
	}
	return errors.New("unexpected response")
}

// MaskToken hides all but the ends of a token for logging.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if masked, err := masker.Default.String("preserveEnds(4,4)", token); err == nil {
		return masked
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
