package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"iifvs/internal/model"
)

const (
	// DefaultBaseURL is the CVE API 2.0 endpoint.
	DefaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	defaultResultsPerPage = 50
	defaultTimeout        = 30 * time.Second
)

// Client queries the NVD CVE API.
type Client struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	ResultsPerPage int
	Timeout        time.Duration

	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the apiKey header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.APIKey = key }
}

// WithBaseURL overrides the endpoint, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = u }
}

// WithTimeout bounds each search, including time spent rate limited.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.Timeout = d }
}

// WithResultsPerPage sets the page size requested from the API.
func WithResultsPerPage(n int) Option {
	return func(c *Client) { c.ResultsPerPage = n }
}

// WithRateLimit allows at most requests calls per period.
func WithRateLimit(requests int, period time.Duration) Option {
	return func(c *Client) {
		if requests <= 0 || period <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(requests)/period.Seconds()), requests)
	}
}

// NewClient creates a client with the public NVD quota for unkeyed callers.
func NewClient(opts ...Option) *Client {
	c := &Client{
		HTTPClient:     &http.Client{},
		BaseURL:        DefaultBaseURL,
		ResultsPerPage: defaultResultsPerPage,
		Timeout:        defaultTimeout,
		limiter:        rate.NewLimiter(rate.Limit(5.0/30.0), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a keyword search and normalizes every returned CVE.
func (c *Client) Search(ctx context.Context, keyword string) (*SearchResult, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ctx.Err()
			}
			// Either the deadline passed or the next token lies beyond it.
			return nil, ErrUpstreamTimeout
		}
	}

	req, err := c.newRequest(ctx, keyword)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrUpstreamTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	var body cveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTimeout(ctx, err) {
			return nil, ErrUpstreamTimeout
		}
		return nil, &UpstreamError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	result := &SearchResult{
		Keyword:         keyword,
		TotalResults:    body.TotalResults,
		Vulnerabilities: make([]model.Finding, 0, len(body.Vulnerabilities)),
	}
	for _, v := range body.Vulnerabilities {
		result.Vulnerabilities = append(result.Vulnerabilities, Normalize(v.CVE))
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, keyword string) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid NVD base URL: %w", err)
	}
	q := u.Query()
	q.Set("keywordSearch", keyword)
	q.Set("resultsPerPage", strconv.Itoa(c.ResultsPerPage))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apiKey", c.APIKey)
	}
	return req, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
