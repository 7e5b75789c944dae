package util

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

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Request describes one outbound call. Headers and Cookies override the
// client's defaults for this call only.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Cookies map[string]string
	Body    []byte
	Form    url.Values
}

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	URL        string
	Body       []byte
}

// HTTPError is returned for non-2xx responses
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("server returned %s for %s", e.Status, e.URL)
}

// ErrChallenge is returned when an anti-bot interstitial replaces the page
var ErrChallenge = errors.New("upstream returned a challenge page")

// Client is the HTTP client owned by one source
type Client struct {
	http       *http.Client
	headers    map[string]string
	cookies    map[string]string
	retries    int
	retryDelay time.Duration
}

// Headers returns a copy of the default headers
func (c *Client) Headers() map[string]string {
	return lo.Assign(c.headers)
}

// Get is a shorthand for a GET request with optional header overrides
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) mo.Result[*Response] {
	return c.Do(ctx, Request{URL: rawURL, Headers: headers})
}

// Do performs the request, retrying transport errors, 429 and 5xx responses
func (c *Client) Do(ctx context.Context, r Request) mo.Result[*Response] {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			Debug("Retrying request", "url", r.URL, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return mo.Err[*Response](ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := c.once(ctx, r)
		if err == nil {
			return mo.Ok(resp)
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return mo.Err[*Response](lastErr)
}

func (c *Client) once(ctx context.Context, r Request) (*Response, error) {
	req, err := c.build(ctx, r)
	if err != nil {
		return nil, err
	}

	Debug("HTTP request", "method", req.Method, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to make request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: req.URL.String()}
	}
	if isChallengePage(body) {
		return nil, ErrChallenge
	}

	return &Response{StatusCode: resp.StatusCode, URL: resp.Request.URL.String(), Body: body}, nil
}

func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := url.Parse(r.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid url %q", r.URL)
	}
	if len(r.Query) > 0 {
		q := target.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	headers := lo.Assign(c.headers, r.Headers)
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/x-www-form-urlencoded"
		}
	case r.Body != nil:
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for name, value := range lo.Assign(c.cookies, r.Cookies) {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req, nil
}

// Document fetches r and parses the body as HTML
func (c *Client) Document(ctx context.Context, r Request) mo.Result[*goquery.Document] {
	resp, err := c.Do(ctx, r).Get()
	if err != nil {
		return mo.Err[*goquery.Document](err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return mo.Err[*goquery.Document](errors.Wrap(err, "failed to parse HTML"))
	}
	return mo.Ok(doc)
}

// FetchJSON fetches r and decodes the body into T
func FetchJSON[T any](ctx context.Context, c *Client, r Request) mo.Result[T] {
	resp, err := c.Do(ctx, r).Get()
	if err != nil {
		return mo.Err[T](err)
	}
	return DecodeJSON[T](resp.Body)
}

// DecodeJSON decodes data into T
func DecodeJSON[T any](data []byte) mo.Result[T] {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return mo.Err[T](errors.Wrap(err, "failed to parse response"))
	}
	return mo.Ok(v)
}

// StatusCode extracts the upstream status from an error chain, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrChallenge) {
		return false
	}
	code := StatusCode(err)
	if code == 0 {
		return true
	}
	return code == http.StatusTooManyRequests || code >= 500
}

// isChallengePage reports whether the body is a Cloudflare or DDoS-Guard interstitial
func isChallengePage(body []byte) bool {
	if len(body) > 64*1024 {
		body = body[:64*1024]
	}
	s := string(body)
	if !strings.Contains(s, "<title>Just a moment...</title>") && !strings.Contains(s, "<title>DDoS-Guard</title>") {
		return false
	}
	return strings.Contains(s, "cf-") || strings.Contains(s, "challenge") || strings.Contains(s, "ddos")
}
