// Package market fetches quotes and exchange rates from public market data sources
package market

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

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// client is the rate limited HTTP client shared by every source
type client struct {
	name       string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures a source client
type ClientOption func(*client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header; some sources reject the Go default
func WithUserAgent(ua string) ClientOption {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = hc
	}
}

func newClient(name, baseURL string, opts ...ClientOption) *client {
	c := &client{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 answer from a source
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d, endpoint: %s)", e.Source, e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap classifies every source failure as ErrPriceSourceUnavailable
func (e *APIError) Unwrap() error {
	return domain.ErrPriceSourceUnavailable
}

// fetch performs a rate-limited GET request and returns the body
func (c *client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w: %w", c.name, domain.ErrPriceSourceUnavailable, err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().Str("source", c.name).Str("url", reqURL).Msg("market data request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute request: %w: %w", c.name, domain.ErrPriceSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w: %w", c.name, domain.ErrPriceSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			Source:     c.name,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	return body, nil
}

// getJSON fetches a JSON document decoded into generic values. Numbers stay json.Number
// so that prices keep their exact decimal representation.
func (c *client) getJSON(ctx context.Context, path string, params url.Values) (any, error) {
	body, err := c.fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var jobj any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w: %w", c.name, domain.ErrPriceSourceUnavailable, err)
	}
	return jobj, nil
}

// getHTML fetches and parses an HTML page
func (c *client) getHTML(ctx context.Context, path string, params url.Values) (*html.Node, error) {
	body, err := c.fetch(ctx, path, params)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse page: %w: %w", c.name, domain.ErrPriceSourceUnavailable, err)
	}
	return doc, nil
}

// lookup evaluates a JSONPath expression and returns the first match
func lookup(jobj any, path string) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("%w: path %q: %w", domain.ErrPriceSourceUnavailable, path, err)
	}
	// jsonpath returns either a single value or a list of matches; keep the first
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("%w: path %q matched nothing", domain.ErrPriceSourceUnavailable, path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

// lookupDecimal evaluates a JSONPath expression that must yield a number
func lookupDecimal(jobj any, path string) (decimal.Decimal, error) {
	jval, err := lookup(jobj, path)
	if err != nil {
		return decimal.Zero, err
	}
	return toDecimal(jval, path)
}

func toDecimal(jval any, path string) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case json.Number:
		return parseNumber(v.String(), path)
	case string:
		return parseNumber(v, path)
	case float64:
		return decimal.NewFromFloat(v), nil
	case nil:
		return decimal.Zero, fmt.Errorf("%w: %q is null", domain.ErrPriceSourceUnavailable, path)
	}
	return decimal.Zero, fmt.Errorf("%w: %q is not a number: %v", domain.ErrPriceSourceUnavailable, path, jval)
}

func parseNumber(s, path string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number: %q", domain.ErrPriceSourceUnavailable, path, s)
	}
	return d, nil
}

// positive rejects zero and negative quotes
func positive(name, code string, d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: non-positive price %s for %s: %w", name, d, code, domain.ErrPriceSourceUnavailable)
	}
	return d, nil
}
