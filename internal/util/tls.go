package util

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// chromeTransport dials TLS with a Chrome 120 ClientHello. It prefers HTTP/2
// and falls back to HTTP/1.1 for hosts that refuse h2, remembering the choice.
type chromeTransport struct {
	h2     *http2.Transport
	h1     *http.Transport
	h1Only sync.Map
}

func newChromeTransport(cfg httpClientConfig) *chromeTransport {
	t := &chromeTransport{}
	dialer := &net.Dialer{Timeout: cfg.dialTimeout, KeepAlive: cfg.keepAlive}

	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChrome(ctx, dialer, network, addr, nil)
		},
	}

	t.h1 = createTransport(cfg)
	t.h1.ForceAttemptHTTP2 = false
	t.h1.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialChrome(ctx, dialer, network, addr, []string{"http/1.1"})
	}
	return t
}

func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}
	if _, ok := t.h1Only.Load(req.URL.Host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Context().Err() != nil {
		return nil, err
	}

	Debug("HTTP/2 failed, falling back to HTTP/1.1", "host", req.URL.Host, "error", err)
	retry := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, errors.Wrap(bodyErr, "rewind request body")
		}
		retry.Body = body
	}

	resp, err = t.h1.RoundTrip(retry)
	if err == nil {
		t.h1Only.Store(req.URL.Host, struct{}{})
	}
	return resp, err
}

// dialChrome opens a TCP connection and performs a uTLS handshake.
// nextProtos nil keeps the ALPN list of the Chrome preset.
func dialChrome(ctx context.Context, dialer *net.Dialer, network, addr string, nextProtos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	config := &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: nextProtos,
	}
	tlsConn := utls.UClient(conn, config, utls.HelloChrome_120)
	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "tls handshake")
	}
	return tlsConn, nil
}
