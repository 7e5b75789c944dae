package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts ClientOptions) *Client {
	t.Helper()
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

func TestClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{Retries: 2})
	resp, err := c.Get(context.Background(), server.URL, nil).Get()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{Retries: 3})
	res := c.Get(context.Background(), server.URL, nil)
	require.True(t, res.IsError())
	assert.Equal(t, http.StatusNotFound, StatusCode(res.Error()))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClientServiceUnavailableIsErrResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{})
	res := c.Get(context.Background(), server.URL, nil)
	require.True(t, res.IsError())

	var httpErr *HTTPError
	require.ErrorAs(t, res.Error(), &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestClientPerCallOverridesDoNotLeak(t *testing.T) {
	t.Parallel()

	type seen struct{ referer, cookie, ua string }
	got := make(chan seen, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- seen{r.Header.Get("Referer"), r.Header.Get("Cookie"), r.Header.Get("User-Agent")}
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{
		UserAgent: "test-agent",
		Headers:   map[string]string{"Referer": "https://base.example"},
		Cookies:   map[string]string{"mature": "1"},
	})

	_, err := c.Do(context.Background(), Request{
		URL:     server.URL,
		Headers: map[string]string{"Referer": "https://override.example"},
		Cookies: map[string]string{"extra": "x"},
	}).Get()
	require.NoError(t, err)
	first := <-got
	assert.Equal(t, "https://override.example", first.referer)
	assert.Contains(t, first.cookie, "mature=1")
	assert.Contains(t, first.cookie, "extra=x")
	assert.Equal(t, "test-agent", first.ua)

	_, err = c.Get(context.Background(), server.URL, nil).Get()
	require.NoError(t, err)
	second := <-got
	assert.Equal(t, "https://base.example", second.referer)
	assert.NotContains(t, second.cookie, "extra=x")
	assert.Equal(t, "https://base.example", c.Headers()["Referer"])
}

func TestClientSendsFormAndQuery(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, _ = fmt.Fprintf(w, "%s|%s|%s|%s", r.Method, r.URL.Query().Get("page"), r.Header.Get("Content-Type"), body)
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/ajax",
		Query:  url.Values{"page": {"2"}},
		Form:   url.Values{"action": {"search"}},
	}).Get()
	require.NoError(t, err)
	assert.Equal(t, "POST|2|application/x-www-form-urlencoded|action=search", string(resp.Body))
}

func TestClientDetectsChallengePage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><head><title>Just a moment...</title></head><body><div id="cf-wrapper"></div></body></html>`)
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{Retries: 2})
	res := c.Get(context.Background(), server.URL, nil)
	require.True(t, res.IsError())
	assert.ErrorIs(t, res.Error(), ErrChallenge)
}

func TestFetchJSONAndDocument(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			_, _ = fmt.Fprint(w, `{"name":"Berserk"}`)
			return
		}
		_, _ = fmt.Fprint(w, `<html><body><h1>Berserk</h1></body></html>`)
	}))
	defer server.Close()

	c := newTestClient(t, ClientOptions{})

	type payload struct {
		Name string `json:"name"`
	}
	v, err := FetchJSON[payload](context.Background(), c, Request{URL: server.URL + "/json"}).Get()
	require.NoError(t, err)
	assert.Equal(t, "Berserk", v.Name)

	doc, err := c.Document(context.Background(), Request{URL: server.URL + "/html"}).Get()
	require.NoError(t, err)
	assert.Equal(t, "Berserk", doc.Find("h1").Text())

	bad := DecodeJSON[payload]([]byte("{"))
	assert.True(t, bad.IsError())
}

func TestPerfTrackerRecordsFailures(t *testing.T) {
	t.Parallel()

	pt := NewPerfTracker()
	pt.Record("mangadex.popular", 20*time.Millisecond, false)
	pt.Record("mangadex.popular", 40*time.Millisecond, true)
	pt.Record("comick.search", 5*time.Millisecond, false)

	snap := pt.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "mangadex.popular", snap[0].Name)
	assert.Equal(t, int64(2), snap[0].Count)
	assert.Equal(t, int64(1), snap[0].Failures)
	assert.Equal(t, 30*time.Millisecond, snap[0].Average())
	assert.Equal(t, 40*time.Millisecond, snap[0].Slowest)
	assert.Contains(t, pt.Report(), "comick.search")
}
