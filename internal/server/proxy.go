package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vitaliisemenov/gatehouse/internal/config"
)

// proxyClient is the process-wide upstream client: lazily built once,
// pooled connections, http and https upstreams, h2 attempted over TLS.
// Redirects pass through to the requesting client untouched.
var proxyClient = sync.OnceValue(func() *http.Client {
	transport := &http.Transport{
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
})

// proxyResponse forwards the request upstream per the merged proxy
// option. Upstream timeouts map to 504, every other upstream failure to
// 502; both consult the error-page lookup.
func (h *siteHandler) proxyResponse(req *http.Request, cfg *config.SiteConfig, proxy config.Proxy) *response {
	var rawURL string
	if proxy.URL.IsTemplate() {
		rawURL = proxy.URL.Expand(req)
	} else {
		rawURL = proxy.URL.Literal()
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		h.log.Warn("proxy target did not parse", "url", rawURL, "error", err)
		return h.errorPage(cfg, http.StatusBadGateway)
	}

	method := req.Method
	if proxy.Method != "" {
		method = proxy.Method
	}

	ctx, cancel := context.WithTimeout(req.Context(), proxy.Timeout)

	out, err := http.NewRequestWithContext(ctx, method, target.String(), req.Body)
	if err != nil {
		cancel()
		h.log.Warn("proxy request build failed", "url", rawURL, "error", err)
		return h.errorPage(cfg, http.StatusBadGateway)
	}

	// Carry the client headers except Host; the client recomputes it
	// from the rewritten target.
	for name, values := range req.Header {
		out.Header[name] = values
	}
	out.Header.Del("Host")
	if headers, ok := proxy.Headers.Get(); ok {
		for name, value := range headers {
			out.Header.Set(name, expandVar(value, req))
		}
	}
	out.ContentLength = req.ContentLength

	upstream, err := proxyClient().Do(out)
	if err != nil {
		cancel()
		status := http.StatusBadGateway
		if isTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		h.log.Warn("upstream request failed", "url", rawURL, "error", err)
		return h.errorPage(cfg, status)
	}

	resp := newResponse(upstream.StatusCode)
	resp.header = upstream.Header.Clone()
	resp.body = &cancelOnClose{ReadCloser: upstream.Body, cancel: cancel}
	resp.length = upstream.ContentLength
	return resp
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// cancelOnClose releases the request timeout once the upstream body has
// been fully relayed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
