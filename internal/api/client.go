package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

const (
	UserAgent       = "BookBeat 9.7.1 phone OnePlus Dalvik/2.1.0 (Linux; U; Android 10; ONEPLUS A5000 Build/QKQ1.191014.012)"
	APIVersion      = "9"
	ClientName      = "BookBeatApp"
	DefaultStatus   = "https://status.bookbeat.com/api/prod/status/"
	DefaultBaseURL  = "https://api.bookbeat.com"
	DefaultSearch   = "https://search-api.bookbeat.com"
	contentTypeJSON = "application/json; charset=UTF-8"
	acceptHAL       = "application/hal+json"
	maxErrorBody    = 64 << 10

	// Keepalive is the TCP keepalive period of API and CDN connections.
	Keepalive = 15 * time.Minute
)

// Endpoints holds every remote URL the client talks to.
type Endpoints struct {
	Status    string
	Login     string
	Refresh   string
	Users     string
	TabSearch string
	Search    string
	Books     string // {market}/{id} appended
	Content   string // {isbn}/license appended
	Series    string // {id} appended
}

// NewEndpoints derives all endpoints from the status URL and the two API hosts.
func NewEndpoints(statusURL, baseURL, searchURL string) Endpoints {
	baseURL = strings.TrimRight(baseURL, "/")
	searchURL = strings.TrimRight(searchURL, "/")
	return Endpoints{
		Status:    statusURL,
		Login:     baseURL + "/api/login",
		Refresh:   baseURL + "/api/login/refresh",
		Users:     baseURL + "/api/users",
		TabSearch: searchURL + "/api/tabsearch/books",
		Search:    baseURL + "/api/search/books",
		Books:     baseURL + "/api/books/",
		Content:   baseURL + "/api/content/",
		Series:    baseURL + "/api/series/",
	}
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return NewEndpoints(DefaultStatus, DefaultBaseURL, DefaultSearch)
}

// Options configures a Client.
type Options struct {
	Endpoints      Endpoints
	HTTPClient     *http.Client
	DeviceID       string
	Market         string
	AcceptLanguage string
	RateLimit      float64 // requests per second, 0 disables
	RateBurst      int
	RequestLog     *slog.Logger
}

// Client is the gateway for every catalog API request. It carries no
// credentials; authenticated calls go through a Session.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	headers   http.Header
	limiter   *rateLimiter
	breaker   *circuitBreaker
	log       *slog.Logger
}

// NewHTTPClient returns an http.Client with the long-lived keepalive used for
// API and CDN connections and no overall request timeout.
func NewHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: Keepalive,
	}).DialContext
	return &http.Client{Transport: transport}
}

// NewClient builds a Client from opts, filling in production defaults.
func NewClient(opts Options) *Client {
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient()
	}
	if opts.RequestLog == nil {
		opts.RequestLog = discardLogger()
	}
	if opts.Market == "" {
		opts.Market = model.DefaultMarket
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "en-US"
	}
	headers := http.Header{}
	headers.Set("User-Agent", UserAgent)
	headers.Set("api-version", APIVersion)
	headers.Set("bb-client", ClientName)
	headers.Set("bb-market", opts.Market)
	headers.Set("accept-language", opts.AcceptLanguage)
	if opts.DeviceID != "" {
		headers.Set("bb-device", opts.DeviceID)
	}
	return &Client{
		http:      opts.HTTPClient,
		endpoints: opts.Endpoints,
		headers:   headers,
		limiter:   newRateLimiter(opts.RateLimit, opts.RateBurst),
		breaker:   newCircuitBreaker(5, 60*time.Second),
		log:       opts.RequestLog,
	}
}

// Endpoints returns the URLs this client was configured with.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// request describes one API call.
type request struct {
	label         string
	method        string
	url           string
	query         url.Values
	body          any
	authorization string
}

// do is the single gateway for every outbound API call. It enforces, in
// order: rate limiting, the circuit breaker, execution, and logging. It never
// retries. The caller closes the returned body.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	waited, err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, &TransportError{Op: r.label, Err: err}
	}
	if waited > time.Millisecond {
		c.logRateLimitWait(ctx, r.label, waited)
	}

	state, allowed := c.breaker.Allow()
	if !allowed {
		c.logCircuitRejected(ctx, r.label)
		return nil, fmt.Errorf("%w (label: %s)", ErrCircuitOpen, r.label)
	}

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		// Network errors do not trip the breaker.
		c.logRequest(ctx, r.label, 0, duration, state, err)
		return nil, &TransportError{Op: r.label, Err: err}
	}

	serverFailure := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	prev, next := c.breaker.Record(serverFailure)
	if prev != next {
		c.logCircuitChange(ctx, r.label, prev, next)
	}
	var statusErr error
	if !isSuccess(resp.StatusCode) {
		statusErr = fmt.Errorf("HTTP %s", resp.Status)
	}
	c.logRequest(ctx, r.label, resp.StatusCode, duration, next, statusErr)
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", r.label, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", r.label, err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", acceptHAL)
	if r.body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if r.authorization != "" {
		req.Header.Set("Authorization", r.authorization)
	}
	if len(r.query) > 0 {
		req.URL.RawQuery = r.query.Encode()
	}
	return req, nil
}

// call executes r and decodes a success body into T. Non-success statuses
// become APIError decoded from the error payload.
func call[T any](ctx context.Context, c *Client, r request) (*T, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp.StatusCode) {
		return nil, decodeAPIError(r.label, resp)
	}
	return decodeBody[T](r.label, resp.Body)
}

// validator is implemented by schemas with required fields.
type validator interface {
	Validate() error
}

func decodeBody[T any](label string, body io.Reader) (*T, error) {
	var obj T
	dec := json.NewDecoder(body)
	if err := dec.Decode(&obj); err != nil {
		if isTransportRead(err) {
			return nil, &TransportError{Op: label, Err: err}
		}
		return nil, &DecodeError{Label: label, Err: err}
	}
	if v, ok := any(&obj).(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, &DecodeError{Label: label, Err: err}
		}
	}
	return &obj, nil
}

// decodeAPIError turns a rejected response into an APIError. A body that is
// not the JSON error payload is carried verbatim as the message.
func decodeAPIError(label string, resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &TransportError{Op: label, Err: err}
	}
	var body model.APIErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// isTransportRead separates body read failures from schema mismatches.
func isTransportRead(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
