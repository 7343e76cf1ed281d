package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cfdnsbackup/internal/httpx"
)

const (
	defaultBaseURL           = "https://api.cloudflare.com/client/v4"
	defaultBaseURLEnv        = "CLOUDFLARE_API_BASE_URL"
	defaultMaxRetriesEnv     = "CLOUDFLARE_HTTP_MAX_RETRIES"
	defaultRetryBaseDelayEnv = "CLOUDFLARE_HTTP_RETRY_BASE_DELAY_SECONDS"
	defaultRetryMaxDelayEnv  = "CLOUDFLARE_HTTP_RETRY_MAX_DELAY_SECONDS"
	defaultRetryBaseDelay    = 1 * time.Second
	defaultRetryMaxDelay     = 30 * time.Second
)

// Config controls Cloudflare client behavior.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	HTTPClient     *http.Client
	Logf           func(format string, args ...any)
}

// Option configures Client construction behavior.
type Option func(*Config)

// WithBaseURL overrides the default Cloudflare API base URL.
func WithBaseURL(baseURL string) Option {
	return func(cfg *Config) {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient injects a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *Config) {
		cfg.HTTPClient = client
	}
}

// WithTimeout sets request timeout for the Cloudflare client.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Timeout = timeout
	}
}

// WithRetries sets retry count and backoff parameters. Retries are disabled
// by default; every request is first-attempt-final unless opted in here or
// through the CLOUDFLARE_HTTP_* environment knobs.
func WithRetries(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(cfg *Config) {
		cfg.MaxRetries = maxRetries
		cfg.RetryBaseDelay = baseDelay
		cfg.RetryMaxDelay = maxDelay
	}
}

// WithLogf injects a line printer for per-page progress output. The client
// stays silent without it.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(cfg *Config) {
		cfg.Logf = logf
	}
}

func defaultConfig() Config {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv(defaultBaseURLEnv)), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxRetries := getenvInt(defaultMaxRetriesEnv, 0)
	baseDelaySeconds := getenvFloat(defaultRetryBaseDelayEnv, defaultRetryBaseDelay.Seconds())
	maxDelaySeconds := getenvFloat(defaultRetryMaxDelayEnv, defaultRetryMaxDelay.Seconds())

	return Config{
		BaseURL:        baseURL,
		Timeout:        httpx.DefaultTimeout,
		MaxRetries:     maxRetries,
		RetryBaseDelay: time.Duration(baseDelaySeconds * float64(time.Second)),
		RetryMaxDelay:  time.Duration(maxDelaySeconds * float64(time.Second)),
	}
}

// Client is a Cloudflare v4 API client authenticated with the legacy
// key+email header pair.
type Client struct {
	email   string
	apiKey  string
	cfg     Config
	backoff httpx.Backoff
	logf    func(format string, args ...any)
}

// New creates a Cloudflare client from explicit key+email credentials.
func New(email string, apiKey string, opts ...Option) (*Client, error) {
	email = strings.TrimSpace(email)
	apiKey = strings.TrimSpace(apiKey)
	if email == "" {
		return nil, errors.New("cloudflare account email must be provided")
	}
	if apiKey == "" {
		return nil, errors.New("cloudflare API key must be provided")
	}
	if err := validHeaderValue(email); err != nil {
		return nil, fmt.Errorf("cloudflare account email: %w", err)
	}
	if err := validHeaderValue(apiKey); err != nil {
		return nil, fmt.Errorf("cloudflare API key: %w", err)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpx.DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = defaultRetryMaxDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpx.NewClient(cfg.Timeout)
	} else if cfg.HTTPClient.Timeout <= 0 {
		cfg.HTTPClient.Timeout = cfg.Timeout
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Client{
		email:  email,
		apiKey: apiKey,
		cfg:    cfg,
		backoff: httpx.Backoff{
			Base:   cfg.RetryBaseDelay,
			Max:    cfg.RetryMaxDelay,
			Jitter: true,
		},
		logf: logf,
	}, nil
}

// Do executes a Cloudflare API request and unmarshals the envelope result
// into out.
func (c *Client) Do(
	ctx context.Context,
	method string,
	endpoint string,
	params url.Values,
	requestBody any,
	out any,
) error {
	_, err := c.do(ctx, method, endpoint, params, requestBody, out)
	return err
}

// ListZones pages through every zone visible to the authenticated account
// and returns them in API order.
func (c *Client) ListZones(ctx context.Context) ([]Zone, error) {
	var all []Zone
	page := 1

	for {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))

		var batch []Zone
		info, err := c.do(ctx, http.MethodGet, "/zones", params, nil, &batch)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)
		if info == nil {
			// Envelope carried no pagination metadata; one page is all there is.
			return all, nil
		}

		c.logf("Fetching batch of %d DNS records ...", info.Count)
		if info.Page >= info.TotalPages {
			return all, nil
		}
		page = info.Page + 1
	}
}

func (c *Client) do(
	ctx context.Context,
	method string,
	endpoint string,
	params url.Values,
	requestBody any,
	out any,
) (*ResultInfo, error) {
	var payload []byte
	if requestBody != nil {
		marshaled, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = marshaled
	}

	statusCode, body, err := c.doRaw(ctx, method, endpoint, params, payload)
	if err != nil {
		return nil, err
	}

	if statusCode < 200 || statusCode >= 300 {
		return nil, &HTTPStatusError{
			StatusCode: statusCode,
			Body:       string(body),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if !env.Success {
		return nil, &APIError{Errors: env.Errors}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return env.ResultInfo, nil
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return env.ResultInfo, nil
}

// doRaw issues the request with retry/backoff handling and returns the raw
// status and body without interpreting either.
func (c *Client) doRaw(
	ctx context.Context,
	method string,
	endpoint string,
	params url.Values,
	payload []byte,
) (int, []byte, error) {
	targetURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return 0, nil, err
	}

	for attempt := 0; ; attempt++ {
		req, reqErr := c.newRequest(ctx, method, targetURL, payload)
		if reqErr != nil {
			return 0, nil, reqErr
		}

		resp, doErr := c.cfg.HTTPClient.Do(req)
		if doErr != nil {
			if attempt >= c.cfg.MaxRetries {
				return 0, nil, fmt.Errorf("%w: %w", ErrConnectivity, doErr)
			}
			if sleepErr := httpx.SleepContext(ctx, c.backoff.Delay(attempt, rand.Float64())); sleepErr != nil {
				return 0, nil, sleepErr
			}
			continue
		}

		bodyBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return 0, nil, fmt.Errorf("read cloudflare response body: %w", readErr)
		}

		if shouldRetryStatus(resp.StatusCode) && attempt < c.cfg.MaxRetries {
			if sleepErr := httpx.SleepContext(ctx, c.retryDelay(attempt, resp.Header.Get("Retry-After"))); sleepErr != nil {
				return 0, nil, sleepErr
			}
			continue
		}

		return resp.StatusCode, bodyBytes, nil
	}
}

func (c *Client) buildURL(endpoint string, params url.Values) (string, error) {
	cleanEndpoint := endpoint
	if !strings.HasPrefix(cleanEndpoint, "/") {
		cleanEndpoint = "/" + cleanEndpoint
	}

	// Parse base and endpoint joined, not assign to URL.Path: Path holds the
	// decoded form, so an endpoint with escaped segments would be encoded a
	// second time when the URL is rendered.
	target, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + cleanEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid request URL: %w", err)
	}

	if params != nil {
		target.RawQuery = params.Encode()
	}

	return target.String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, targetURL string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare request: %w", err)
	}

	req.Header.Set("X-Auth-Email", c.email)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if delay, ok := parseRetryAfter(retryAfterHeader); ok {
		return delay
	}
	return c.backoff.Delay(attempt, rand.Float64())
}

func shouldRetryStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		(statusCode >= 500 && statusCode <= 599)
}

// validHeaderValue rejects values Go's transport would refuse to send as an
// HTTP header, so bad credentials fail at construction rather than mid-run.
func validHeaderValue(value string) error {
	for _, r := range value {
		if r == '\r' || r == '\n' || (r < ' ' && r != '\t') || r == 0x7f {
			return errors.New("value contains characters not allowed in an HTTP header")
		}
	}
	return nil
}

func parseRetryAfter(value string) (time.Duration, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(trimmed); err == nil {
		if seconds <= 0 {
			return 0, true
		}
		return time.Duration(seconds) * time.Second, true
	}

	parsedTime, err := http.ParseTime(trimmed)
	if err != nil {
		return 0, false
	}

	delay := time.Until(parsedTime)
	if delay < 0 {
		return 0, true
	}
	return delay, true
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
