// Package api is the request pipeline every domain API module is built on.
//
// A call builds the URL from the configured base URL, the endpoint path and
// the query parameters (always tagged with the client locale), assembles the
// headers, issues exactly one HTTP request, and decodes the body according to
// its content type. Transport failures, non-2xx statuses and undecodable
// bodies all come back as *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carryon-app/carryon/internal/i18n"
	"github.com/carryon-app/carryon/internal/logging"
)

const (
	// DefaultPlatform is the X-Platform marker sent when none is configured.
	DefaultPlatform = "mobile"

	HeaderPlatform  = "X-Platform"
	HeaderRequestID = "X-Request-ID"

	acceptTypes = "application/vnd.api+json, application/json"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is everything the pipeline reads besides the request itself.
type Config struct {
	BaseURL   string        `validate:"required,url"`
	Locale    string        `validate:"omitempty,bcp47_language_tag"`
	Platform  string        `validate:"required"`
	UserAgent string        `validate:"omitempty"`
	Timeout   time.Duration `validate:"gte=0"`
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its timeout, if any,
// is the only timeout the pipeline applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client executes requests against one backend. It keeps no per-call state
// and is safe for concurrent use; it does not order, deduplicate or retry
// calls.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	logger  *logging.Logger
	metrics *Metrics
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Locale returns the locale injected into every request.
func (c *Client) Locale() string { return c.cfg.Locale }

// Request is one call's input. A nil Body sends no body; a *Multipart or raw
// []byte / io.Reader body is sent as-is, anything else is JSON encoded.
type Request struct {
	Token  string
	Body   any
	Query  Params
	Header http.Header
}

// Response is a successfully parsed response.
type Response struct {
	Kind BodyKind
	// Data is the parsed body: the decoded JSON value, a string for text,
	// []byte for binary, nil for an empty body.
	Data any
	Body []byte
	URL  string
	HTTP *http.Response
}

// Envelope pairs typed response data with the raw HTTP response.
type Envelope[T any] struct {
	Data     T
	Response *http.Response
}

// Execute runs the pipeline and decodes the body into T.
func Execute[T any](ctx context.Context, c *Client, ep Endpoint, req Request) (*Envelope[T], error) {
	resp, err := c.Do(ctx, ep, req)
	if err != nil {
		return nil, err
	}
	env := &Envelope[T]{Response: resp.HTTP}
	if err := resp.Decode(&env.Data); err != nil {
		return nil, err
	}
	return env, nil
}

// Do runs the pipeline, returning the parsed but untyped response.
func (c *Client) Do(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	start := time.Now()
	resp, err := c.do(ctx, ep, req)
	elapsed := time.Since(start)

	outcome := "ok"
	if apiErr, ok := AsError(err); ok {
		outcome = string(apiErr.Reason)
		c.logger.WarnContext(ctx, "API request failed",
			logging.Method(string(ep.Method)),
			logging.URL(apiErr.URL),
			logging.Status(apiErr.Status),
			logging.Reason(outcome),
			logging.Error(err),
		)
	} else if err != nil {
		outcome = "error"
	} else {
		c.logger.DebugContext(ctx, "API request completed",
			logging.Method(string(ep.Method)),
			logging.URL(resp.URL),
			logging.Status(resp.HTTP.StatusCode),
			logging.Duration(elapsed.Milliseconds()),
		)
	}
	c.metrics.observe(ep, outcome, elapsed)

	return resp, err
}

func (c *Client) do(ctx context.Context, ep Endpoint, req Request) (*Response, error) {
	target := c.BuildURL(ep, req.Query)

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(ep.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = c.headers(ctx, req, contentType)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Reason:  ReasonNetwork,
			Message: i18n.T(c.cfg.Locale, i18n.NetworkError),
			URL:     target,
			Err:     err,
		}
	}
	defer httpResp.Body.Close()

	resp := &Response{
		Kind: Classify(httpResp.StatusCode, httpResp.Header),
		URL:  target,
		HTTP: httpResp,
	}
	if httpResp.ContentLength == 0 {
		resp.Kind = KindEmpty
	}

	if err := resp.read(httpResp.Body); err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg, ok := errorMessage(resp.Data)
		if !ok {
			msg = i18n.T(c.cfg.Locale, i18n.RequestFailed)
		}
		return nil, &Error{
			Reason:     ReasonHTTPStatus,
			Message:    msg,
			Status:     httpResp.StatusCode,
			StatusText: statusText(httpResp),
			URL:        target,
			Header:     httpResp.Header,
			Raw:        resp.Data,
		}
	}

	return resp, nil
}

// read consumes the body as r.Kind says. Empty bodies are never read.
func (r *Response) read(body io.Reader) error {
	if r.Kind == KindEmpty {
		return nil
	}

	data, err := io.ReadAll(body)
	r.Body = data
	if err != nil {
		return r.parseError(fmt.Sprintf("failed to read response body: %v", err), err)
	}

	switch r.Kind {
	case KindJSON:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return r.parseError(fmt.Sprintf("failed to parse JSON response: %v", err), err)
		}
		r.Data = v
	case KindBinary:
		r.Data = data
	case KindText:
		r.Data = string(data)
	default:
		ct := r.HTTP.Header.Get("Content-Type")
		return r.parseError(fmt.Sprintf("unsupported response content type %q", ct), nil)
	}
	return nil
}

// Decode stores the parsed body in v. JSON is unmarshalled; text can be
// decoded into *string or *[]byte, binary into *[]byte; any kind can be
// decoded into *any. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if r.Kind == KindEmpty {
		return nil
	}
	if dst, ok := v.(*any); ok {
		*dst = r.Data
		return nil
	}
	if dst, ok := v.(*[]byte); ok {
		*dst = r.Body
		return nil
	}

	switch r.Kind {
	case KindJSON:
		if dst, ok := v.(*json.RawMessage); ok {
			*dst = json.RawMessage(r.Body)
			return nil
		}
		if err := json.Unmarshal(r.Body, v); err != nil {
			return r.parseError(fmt.Sprintf("failed to decode response into %T: %v", v, err), err)
		}
		return nil
	case KindText:
		if dst, ok := v.(*string); ok {
			*dst = string(r.Body)
			return nil
		}
	}
	return r.parseError(fmt.Sprintf("cannot decode %s response into %T", r.Kind, v), nil)
}

func (r *Response) parseError(msg string, cause error) *Error {
	var raw any
	if len(r.Body) > 0 {
		raw = string(r.Body)
	}
	e := &Error{
		Reason:  ReasonParse,
		Message: msg,
		URL:     r.URL,
		Raw:     raw,
		Err:     cause,
	}
	if r.HTTP != nil {
		e.Status = r.HTTP.StatusCode
		e.StatusText = statusText(r.HTTP)
		e.Header = r.HTTP.Header
	}
	return e
}

// BuildURL returns base URL + path + query, with the client locale merged
// under the caller's params.
func (c *Client) BuildURL(ep Endpoint, query Params) string {
	params := merge(Params{"locale": c.cfg.Locale}, query)
	u := c.baseURL + ep.Path
	if q := encodeValues(encodeQuery(params)); q != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + q
	}
	return u
}

// encodeValues is url.Values.Encode with brackets left readable in keys.
func encodeValues(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	for _, k := range keys {
		key := bracketReplacer.Replace(url.QueryEscape(k))
		for _, val := range v[k] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(key)
			buf.WriteByte('=')
			buf.WriteString(url.QueryEscape(val))
		}
	}
	return buf.String()
}

var bracketReplacer = strings.NewReplacer("%5B", "[", "%5D", "]")

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.reader(), b.ContentType(), nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// headers merges caller headers with the computed ones. Content-Type,
// Authorization and X-Platform are always computed here and cannot be
// overridden by the caller.
func (c *Client) headers(ctx context.Context, req Request, contentType string) http.Header {
	h := make(http.Header, len(req.Header)+5)
	for k, vs := range req.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		h.Set("Authorization", "Bearer "+req.Token)
	}
	h.Set(HeaderPlatform, c.cfg.Platform)

	if h.Get("Accept") == "" {
		h.Set("Accept", acceptTypes)
	}
	if h.Get(HeaderRequestID) == "" {
		id := logging.RequestID(ctx)
		if id == "" {
			id = uuid.NewString()
		}
		h.Set(HeaderRequestID, id)
	}
	if c.cfg.UserAgent != "" && h.Get("User-Agent") == "" {
		h.Set("User-Agent", c.cfg.UserAgent)
	}
	return h
}
