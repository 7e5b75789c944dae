package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/pkg/errors"
)

// DefaultUserAgent is sent when neither the source nor the config sets one
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultTimeout bounds every outbound request
const DefaultTimeout = 30 * time.Second

// httpClientConfig holds the transport tuning for a source client
type httpClientConfig struct {
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
}

// defaultConfig returns the transport configuration used by every source.
// One source rarely talks to more than two hosts, so the pool stays small.
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		maxIdleConns:        20,
		maxIdleConnsPerHost: 10,
		maxConnsPerHost:     10,
		idleConnTimeout:     90 * time.Second,
		tlsHandshakeTimeout: 10 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         10 * time.Second,
	}
}

// createTransport creates an HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// ClientOptions configures the client owned by one source
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// Cookies are sent on every request; cookies set by servers live in the jar
	Cookies map[string]string

	// CloudflareBypass wraps the transport with browser-like headers and TLS ciphers
	CloudflareBypass bool
	// TLSFingerprint dials with a Chrome ClientHello instead of Go's
	TLSFingerprint bool

	Retries    int
	RetryDelay time.Duration

	// Transport replaces the whole round tripper stack (tests)
	Transport http.RoundTripper
}

// NewClient builds the HTTP client a single source owns for its lifetime
func NewClient(opts ClientOptions) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cookie jar")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}

	transport := opts.Transport
	if transport == nil {
		if opts.TLSFingerprint {
			transport = newChromeTransport(defaultConfig())
		} else {
			transport = createTransport(defaultConfig())
		}
		if opts.CloudflareBypass {
			transport = cloudflarebp.AddCloudFlareByPass(transport)
		}
	}

	headers := map[string]string{"User-Agent": opts.UserAgent}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	cookies := map[string]string{}
	for k, v := range opts.Cookies {
		cookies[k] = v
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			Jar:       jar,
		},
		headers:    headers,
		cookies:    cookies,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
	}, nil
}
