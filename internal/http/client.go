// Package http implements the transport layer: URL resolution, transient
// retry with exponential backoff, single re-authentication on 401, response
// caching and the mapping from wire failures to the error taxonomy.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/jira-client/internal/auth"
	"github.com/fivetwenty-io/jira-client/internal/constants"
	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

// Request represents an HTTP request to the tracker API.
type Request struct {
	Method string
	// Path is resolved against the REST prefix unless it is an absolute URL
	// or starts with "/". An "agile/" prefix routes to the agile API.
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response represents an HTTP response from the tracker API.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client is the HTTP client for the tracker API.
type Client struct {
	baseURL      string
	apiVersion   string
	agileVersion string
	authn        auth.Authenticator
	httpClient   *retryablehttp.Client
	logger       jira.Logger
	debug        bool
	userAgent    string
	interceptors *jira.InterceptorChain
	cache        *jira.ResponseCache

	// refreshMu serializes credential refreshes; refreshGen lets concurrent
	// 401s detect that another request already completed the handshake.
	refreshMu  sync.Mutex
	refreshGen uint64
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets a structured logger.
func WithLogger(logger jira.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig tunes the transient retry policy.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the underlying HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithAPIVersions sets the core and agile REST version segments.
func WithAPIVersions(apiVersion, agileVersion string) Option {
	return func(c *Client) {
		if apiVersion != "" {
			c.apiVersion = apiVersion
		}

		if agileVersion != "" {
			c.agileVersion = agileVersion
		}
	}
}

// WithInterceptors attaches a request/response interceptor chain.
func WithInterceptors(chain *jira.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithResponseCache attaches a read-through cache for GET responses.
// Mutating verbs invalidate cached entries under the same path prefix.
func WithResponseCache(cache *jira.ResponseCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a new API client. A nil authenticator sends anonymous
// requests.
func NewClient(baseURL string, authn auth.Authenticator, opts ...Option) *Client {
	if authn == nil {
		authn = auth.NewAnonymous()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil
	retryClient.CheckRetry = checkRetry
	retryClient.Backoff = exponentialBackoff

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiVersion:   constants.DefaultRESTAPIVersion,
		agileVersion: constants.DefaultAgileAPIVersion,
		authn:        authn,
		httpClient:   retryClient,
		userAgent:    "jira-client/1.0",
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// checkRetry retries connection errors and the transient status codes.
// Every other failure, 4xx included, surfaces immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return true, nil
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true, nil
	}

	return false, nil
}

// exponentialBackoff doubles the delay per attempt, capped at the ceiling.
func exponentialBackoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	wait := time.Duration(float64(minWait) * math.Pow(constants.ExponentialBackoffBase, float64(attemptNum)))
	if wait > maxWait {
		wait = maxWait
	}

	return wait
}

// Do executes a request and returns the response. Non-2xx responses return
// both the response and a mapped error.
//
//nolint:cyclop // the send, refresh and replay ladder belongs together
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	cacheKey := ""
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = c.cache.Key(fullURL, "")
		if body := c.cache.Lookup(ctx, cacheKey); body != nil {
			return &Response{StatusCode: http.StatusOK, Body: body}, nil
		}
	}

	bodyBytes, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	interceptReq, err := c.runRequestInterceptors(ctx, req, bodyBytes)
	if err != nil {
		return nil, err
	}

	gen := c.currentRefreshGen()

	resp, err := c.send(ctx, req, fullURL, bodyBytes, interceptReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		refreshErr := c.refreshAuth(ctx, gen)
		if refreshErr != nil {
			return resp, c.authFailure(resp, fullURL)
		}

		resp, err = c.send(ctx, req, fullURL, bodyBytes, interceptReq)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return resp, c.authFailure(resp, fullURL)
		}
	}

	c.runResponseInterceptors(ctx, interceptReq, resp)

	if resp.StatusCode >= 400 {
		return resp, c.mapError(req.Method, fullURL, resp)
	}

	if cacheKey != "" && resp.StatusCode == http.StatusOK {
		c.cache.Store(ctx, cacheKey, resp.Body)
	}

	if c.cache != nil && req.Method != http.MethodGet {
		c.cache.InvalidatePrefix(ctx, strings.SplitN(fullURL, "?", 2)[0])
	}

	return resp, nil
}

// send performs one authenticated exchange through the transient retry
// loop.
func (c *Client) send(ctx context.Context, req *Request, fullURL string, bodyBytes []byte, interceptReq *jira.Request) (*Response, error) {
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bodyBytes)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if bodyBytes != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if interceptReq != nil {
		for key, values := range interceptReq.Headers {
			for _, value := range values {
				httpReq.Header.Set(key, value)
			}
		}
	}

	err = c.authn.Apply(ctx, httpReq.Request)
	if err != nil {
		return nil, fmt.Errorf("applying credentials: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &jira.APIError{
			Message: err.Error(),
			URL:     fullURL,
		}
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := readBody(httpResp)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": httpResp.StatusCode,
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) currentRefreshGen() uint64 {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	return c.refreshGen
}

// refreshAuth performs at most one credential handshake per generation.
// Concurrent 401s all observe the same generation; the first caller
// refreshes, the rest see the bumped counter and reuse the result.
func (c *Client) refreshAuth(ctx context.Context, observedGen uint64) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.refreshGen != observedGen {
		return nil
	}

	err := c.authn.Refresh(ctx)
	if err != nil {
		return err
	}

	c.refreshGen++

	return nil
}

func (c *Client) authFailure(resp *Response, fullURL string) error {
	messages, _ := jira.ParseErrorBody(resp.StatusCode, resp.Headers, resp.Body)

	return &jira.AuthError{
		APIError: jira.APIError{
			StatusCode: resp.StatusCode,
			Message:    "authentication failed",
			URL:        fullURL,
			Messages:   messages,
			Body:       resp.Body,
		},
	}
}

// mapError translates a non-2xx response into the error taxonomy.
func (c *Client) mapError(method, fullURL string, resp *Response) error {
	messages, fieldErrors := jira.ParseErrorBody(resp.StatusCode, resp.Headers, resp.Body)

	apiErr := jira.APIError{
		StatusCode: resp.StatusCode,
		URL:        fullURL,
		Messages:   messages,
		Body:       resp.Body,
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &jira.NotFoundError{APIError: apiErr}
	case resp.StatusCode == http.StatusUnauthorized:
		return &jira.AuthError{APIError: apiErr}
	case resp.StatusCode < 500 && len(fieldErrors) > 0 && isMutation(method):
		return &jira.ValidationError{APIError: apiErr, FieldErrors: fieldErrors}
	default:
		return &apiErr
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// resolveURL builds the absolute request URL. Absolute URLs pass through so
// self links work directly; "/" paths skip the REST prefix; "agile/" paths
// route to the agile API. Query parameters merge with any query already
// embedded in the path (find templates for users and groups embed one).
func (c *Client) resolveURL(req *Request) (string, error) {
	path := req.Path

	var full string

	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		full = path
	case strings.HasPrefix(path, "/"):
		full = c.baseURL + path
	case strings.HasPrefix(path, "agile/"):
		full = fmt.Sprintf("%s%s/%s/%s", c.baseURL, constants.AgilePathPrefix,
			c.agileVersion, strings.TrimPrefix(path, "agile/"))
	default:
		full = fmt.Sprintf("%s%s/%s/%s", c.baseURL, constants.RESTPathPrefix,
			c.apiVersion, path)
	}

	if len(req.Query) == 0 {
		return full, nil
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("resolving request URL %q: %w", full, err)
	}

	query := parsed.Query()

	for key, values := range req.Query {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func (c *Client) runRequestInterceptors(ctx context.Context, req *Request, bodyBytes []byte) (*jira.Request, error) {
	if c.interceptors == nil {
		return nil, nil
	}

	interceptReq := &jira.Request{
		Method:  req.Method,
		Path:    req.Path,
		Headers: make(http.Header),
		Body:    bodyBytes,
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, interceptReq)
	if err != nil {
		return nil, err
	}

	return interceptReq, nil
}

func (c *Client) runResponseInterceptors(ctx context.Context, interceptReq *jira.Request, resp *Response) {
	if c.interceptors == nil || interceptReq == nil {
		return
	}

	interceptResp := &jira.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	_ = c.interceptors.ExecuteResponseInterceptors(ctx, interceptReq, interceptResp)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return data, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}
