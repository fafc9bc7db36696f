package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchparty/internal/mockdata"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "watchparty/1.0"
)

// Options configure a Client.
type Options struct {
	// Mock resolves every request from Table without network I/O.
	Mock bool
	// BaseURL is the backend origin, e.g. http://localhost:8000.
	BaseURL string
	// Table defaults to mockdata.Default().
	Table *mockdata.Table
	// Tokens supplies the bearer token for live requests.
	Tokens     TokenProvider
	HTTPClient *http.Client
	Logger     *log.Logger
	UserAgent  string
}

// Client presents the same request/response contract for mock and live mode.
type Client struct {
	mock      bool
	baseURL   string
	table     *mockdata.Table
	tokens    TokenProvider
	http      *http.Client
	logger    *log.Logger
	userAgent string
}

// RequestOption adjusts a single request.
type RequestOption func(*Request)

// WithHeader sets a request header. Caller headers win over the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(key, value)
	}
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		mock:      opts.Mock,
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		table:     opts.Table,
		tokens:    opts.Tokens,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		userAgent: opts.UserAgent,
	}
	if c.table == nil {
		c.table = mockdata.Default()
	}
	if c.tokens == nil {
		c.tokens = StaticToken("")
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c
}

// UsingMockData reports whether requests are served from the mock table.
func (c *Client) UsingMockData() bool {
	return c.mock
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) Raw {
	return c.Do(ctx, build(http.MethodGet, path, nil, opts))
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) Raw {
	return c.Do(ctx, build(http.MethodPost, path, body, opts))
}

// Patch issues a PATCH request with body encoded as JSON.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) Raw {
	return c.Do(ctx, build(http.MethodPatch, path, body, opts))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) Raw {
	return c.Do(ctx, build(http.MethodDelete, path, nil, opts))
}

func build(method, path string, body any, opts []RequestOption) Request {
	req := Request{Path: path, Method: method, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Do dispatches req to the mock table or the live backend. It never returns
// an error; failures are reported through Response.Error and Status.
func (c *Client) Do(ctx context.Context, req Request) Raw {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if c.mock {
		return c.mockResponse(req)
	}
	return c.liveResponse(ctx, req)
}

func (c *Client) mockResponse(req Request) Raw {
	key := mockdata.NewKey(req.Method, req.Path)
	c.logger.Info("Using mock data", "key", key.String())

	data, ok := c.table.Lookup(key)
	if !ok {
		return failure[json.RawMessage](http.StatusNotFound, fmt.Sprintf("Mock data not found for %s", key))
	}
	return Raw{Data: data, Status: http.StatusOK}
}

func (c *Client) liveResponse(ctx context.Context, req Request) Raw {
	url := c.baseURL + PathPrefix + req.Path

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return c.transportFailure(req, fmt.Errorf("encode request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), url, bodyReader)
	if err != nil {
		return c.transportFailure(req, err)
	}
	httpReq.Header.Set(HeaderContentType, ContentTypeJSON)
	httpReq.Header.Set(HeaderCacheControl, "no-cache")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if token, ok := c.tokens.Token(); ok {
		httpReq.Header.Set(HeaderAuthorization, BearerPrefix+token)
	}
	for name, values := range req.Header {
		httpReq.Header[name] = values
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.transportFailure(req, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(req, fmt.Errorf("read response: %w", err))
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(bytes.TrimSpace(body)) == 0 {
		if success {
			return Raw{Data: json.RawMessage("null"), Status: resp.StatusCode}
		}
		return failure[json.RawMessage](resp.StatusCode, "")
	}

	if !json.Valid(body) {
		return c.transportFailure(req, errors.New("response body is not valid JSON"))
	}

	if !success {
		detail := gjson.GetBytes(body, "detail")
		message := ""
		if detail.Exists() && detail.Type == gjson.String {
			message = detail.String()
		}
		c.logger.Debug("Request rejected", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
		return failure[json.RawMessage](resp.StatusCode, message)
	}

	return Raw{Data: json.RawMessage(body), Status: resp.StatusCode}
}

func (c *Client) transportFailure(req Request, err error) Raw {
	c.logger.Error("Request failed", "method", req.Method, "path", req.Path, "error", err)
	return failure[json.RawMessage](http.StatusInternalServerError, err.Error())
}

// Decode converts a raw response into a typed one. Payloads implementing
// Validator are checked after decoding.
func Decode[T any](r Raw) Response[T] {
	if !r.OK() {
		return Response[T]{Error: r.Error, Status: r.Status}
	}
	var v T
	if err := json.Unmarshal(r.Data, &v); err != nil {
		return failure[T](http.StatusInternalServerError, fmt.Sprintf("decode response: %v", err))
	}
	if validator, ok := any(&v).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return failure[T](http.StatusInternalServerError, fmt.Sprintf("invalid response: %v", err))
		}
	}
	return Response[T]{Data: v, Status: r.Status}
}

// GetAs issues a GET request and decodes the payload into T.
func GetAs[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) Response[T] {
	return Decode[T](c.Get(ctx, path, opts...))
}

// PostAs issues a POST request and decodes the payload into T.
func PostAs[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) Response[T] {
	return Decode[T](c.Post(ctx, path, body, opts...))
}

// PatchAs issues a PATCH request and decodes the payload into T.
func PatchAs[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) Response[T] {
	return Decode[T](c.Patch(ctx, path, body, opts...))
}

// DeleteAs issues a DELETE request and decodes the payload into T.
func DeleteAs[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) Response[T] {
	return Decode[T](c.Delete(ctx, path, opts...))
}
