package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nregsmp/nregsreport/internal/model"
	"github.com/nregsmp/nregsreport/internal/observability"
	"github.com/nregsmp/nregsreport/internal/retry"
)

// apiPath is the path prefix of every statistics endpoint.
const apiPath = "/api/employment_workers/"

// Default client settings.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "nregsreport"
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

var (
	// ErrBodyTooLarge is returned when a response exceeds the maximum body size.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrMalformedResponse is returned when a response is not the expected JSON document.
	ErrMalformedResponse = errors.New("malformed dashboard response")
)

// StatusError reports a non-200 dashboard response.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dashboard endpoint %s returned HTTP %d", e.Endpoint, e.StatusCode)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// response is the envelope of every endpoint.
type response struct {
	Results []model.Row `json:"results"`
}

// Client queries the statistics endpoints of the dashboard.
// It is safe for sequential use; the report run issues one request at a time.
type Client struct {
	baseURL     string
	client      *http.Client
	userAgent   string
	maxBodySize int64
	policy      retry.Policy
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics the client records requests in.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the dashboard at baseURL.
// timeout bounds each request attempt.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		policy:      retry.NewPolicy(0),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// EndpointURL returns the URL of endpoint for date and, when district is
// not empty, restricted to the blocks of district.
func (c *Client) EndpointURL(endpoint, date, district string) string {
	return c.scopedURL(endpoint, date, district, "")
}

// PanchayatURL returns the URL of endpoint for date restricted to the
// panchayats of block in district.
func (c *Client) PanchayatURL(endpoint, date, district, block string) string {
	return c.scopedURL(endpoint, date, district, block)
}

func (c *Client) scopedURL(endpoint, date, district, block string) string {
	q := url.Values{}
	q.Set("date", date)
	if district != "" {
		q.Set("district", district)
	}
	if block != "" {
		q.Set("block", block)
	}
	return c.baseURL + apiPath + endpoint + "?" + q.Encode()
}

// FetchRows returns the result rows of one endpoint.
// It returns model.ErrNoData when the response holds no rows.
// Network errors, HTTP 429 and HTTP 5xx are retried per the retry policy.
func (c *Client) FetchRows(ctx context.Context, endpoint, date, district string) ([]model.Row, error) {
	return c.fetch(ctx, endpoint, c.EndpointURL(endpoint, date, district), district)
}

// FetchPanchayatRows returns the panchayat rows of one endpoint for block.
// Errors are reported as by FetchRows.
func (c *Client) FetchPanchayatRows(ctx context.Context, endpoint, date, district, block string) ([]model.Row, error) {
	return c.fetch(ctx, endpoint, c.PanchayatURL(endpoint, date, district, block), block)
}

// fetch retrieves target with retries. scope names the district or block
// the request is restricted to, for logging.
func (c *Client) fetch(ctx context.Context, endpoint, target, scope string) ([]model.Row, error) {
	var rows []model.Row
	op := func() error {
		start := time.Now()
		got, err := c.get(ctx, target, endpoint)
		outcome := observability.OutcomeSuccess
		switch {
		case err != nil:
			outcome = observability.OutcomeError
		case len(got) == 0:
			outcome = observability.OutcomeEmpty
		}
		c.metrics.ObserveDashboardRequest(endpoint, outcome, time.Since(start))
		if err != nil {
			return classify(err)
		}
		rows = got
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.metrics.ObserveRetry("dashboard")
		c.logger.Warn("dashboard request failed, retrying",
			"endpoint", endpoint,
			"scope", scope,
			"retry_in", next,
			"error", err,
		)
	}

	if err := retry.Do(ctx, c.policy, op, notify); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", endpoint, model.ErrNoData)
	}

	c.logger.Debug("fetched dashboard rows",
		"endpoint", endpoint,
		"scope", scope,
		"rows", len(rows),
	)
	return rows, nil
}

// get performs a single request attempt.
func (c *Client) get(ctx context.Context, target, endpoint string) ([]model.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%s: %w", endpoint, ErrBodyTooLarge)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrMalformedResponse, endpoint, err)
	}
	return payload.Results, nil
}

// classify marks errors that a retry cannot fix as permanent.
func classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Temporary() {
			return err
		}
		return retry.Permanent(err)
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrBodyTooLarge) ||
		errors.Is(err, context.Canceled) {
		return retry.Permanent(err)
	}
	return err
}
