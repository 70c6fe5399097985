package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/vitaliisemenov/gatehouse/internal/config"
	"github.com/vitaliisemenov/gatehouse/internal/metrics"
)

// authChallenge is sent with every 401 so clients prompt for Basic
// credentials.
const authChallenge = `Basic realm="User Visible Realm", charset="UTF-8"`

// siteHandler serves every site of one listener. It resolves the site
// by SNI and Host header, merges matching locations into the effective
// configuration and walks the handler ladder.
type siteHandler struct {
	sc      *config.ServerConfig
	log     *slog.Logger
	observe bool // emit prometheus request metrics
}

func newSiteHandler(sc *config.ServerConfig, log *slog.Logger, observe bool) *siteHandler {
	return &siteHandler{sc: sc, log: log, observe: observe}
}

func (h *siteHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	hostname := requestHostname(req)
	site := h.selectSite(req, hostname)
	if site == nil {
		status := http.StatusForbidden
		if hostname == "" && req.ProtoMajor == 1 && req.ProtoMinor == 1 {
			// HTTP/1.1 requires a Host header.
			status = http.StatusBadRequest
		}
		h.writePlain(w, statusResponse(status))
		h.record(hostname, req.Method, status, start)
		return
	}

	reqPath := req.URL.Path
	eff := site.Merge(reqPath)

	resp := h.dispatch(req, reqPath, eff)
	h.write(w, req, eff, resp)
	h.record(hostname, req.Method, resp.status, start)
}

// selectSite narrows the candidates by SNI for TLS connections, then
// picks the first site whose host patterns match, falling back to the
// first catch-all site.
func (h *siteHandler) selectSite(req *http.Request, hostname string) *config.SiteConfig {
	sites := h.sc.Sites
	if req.TLS != nil && req.TLS.ServerName != "" {
		for _, site := range sites {
			if site.HostMatches(req.TLS.ServerName) && !site.IsCatchAll() {
				sites = []*config.SiteConfig{site}
				break
			}
		}
	}

	if hostname == "" {
		if req.ProtoMajor == 1 && req.ProtoMinor == 1 {
			return nil
		}
		for _, site := range sites {
			if site.IsCatchAll() {
				return site
			}
		}
		return nil
	}

	for _, site := range sites {
		if !site.IsCatchAll() && site.HostMatches(hostname) {
			return site
		}
	}
	for _, site := range sites {
		if site.IsCatchAll() {
			return site
		}
	}
	return nil
}

// dispatch walks the handler ladder over the effective configuration.
// The first matching handler produces the response; logging runs first
// and is purely side-effectful.
func (h *siteHandler) dispatch(req *http.Request, reqPath string, cfg *config.SiteConfig) *response {
	if logger, ok := cfg.Log.Get(); ok {
		logger.Write(req)
	}

	remote := remoteAddr(req)

	if m, ok := cfg.IP.Get(); ok && !m.IsPass(remote) {
		return statusResponse(http.StatusForbidden)
	}

	if limit, ok := cfg.Limit.Get(); ok && !limit.Allow(remote) {
		return statusResponse(http.StatusTooManyRequests)
	}

	if auth, ok := cfg.Auth.Get(); ok && !auth.Check(req) {
		resp := statusResponse(http.StatusUnauthorized)
		resp.header.Set("WWW-Authenticate", authChallenge)
		return resp
	}

	if proxy, ok := cfg.Proxy.Get(); ok {
		return h.proxyResponse(req, cfg, proxy)
	}

	if cfg.Method.IsOff() {
		// An explicit `method off` forbids every method.
		return statusResponse(http.StatusMethodNotAllowed)
	}
	if methods, ok := cfg.Method.Get(); ok && !containsString(methods, req.Method) {
		resp := statusResponse(http.StatusMethodNotAllowed)
		if req.Method == http.MethodOptions {
			resp.header.Set("Allow", strings.Join(methods, ", "))
		}
		return resp
	}

	if echo, ok := cfg.Echo.Get(); ok {
		return textResponse(http.StatusOK, expandVar(echo, req), mimeTextPlain)
	}

	if rewrite, ok := cfg.Rewrite.Get(); ok {
		resp := emptyResponse(rewrite.Status)
		resp.header.Set("Location", expandVar(rewrite.Location, req))
		return resp
	}

	return h.fsResponse(req, reqPath, cfg)
}

// write sends resp to the client: merged headers, the Server header,
// then the body through the negotiated compression encoder in
// buffer-sized chunks.
func (h *siteHandler) write(w http.ResponseWriter, req *http.Request, cfg *config.SiteConfig, resp *response) {
	hdr := w.Header()
	for name, values := range resp.header {
		hdr[name] = values
	}
	if headers, ok := cfg.Headers.Get(); ok {
		for name, value := range headers {
			hdr.Set(name, expandVar(value, req))
		}
	}
	hdr.Set("Server", config.ServerName)

	var encoding config.Encoding
	compressed := false
	if compress, ok := cfg.Compress.Get(); ok && resp.body != nil {
		encoding, compressed = compress.Negotiate(req.Header.Get("Accept-Encoding"), resp.ext)
	}

	if resp.contentType != "" {
		hdr.Set("Content-Type", resp.contentType)
	}
	if compressed {
		hdr.Set("Content-Encoding", encoding.Kind.Token())
		hdr.Del("Content-Length")
	} else if resp.length >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(resp.length, 10))
	}

	w.WriteHeader(resp.status)

	if resp.body == nil {
		return
	}
	defer resp.body.Close()

	var dst io.Writer = w
	if compressed {
		enc := newEncoder(w, encoding)
		defer enc.Close()
		dst = enc
	}

	// A failed copy means the client went away; stop reading the source.
	buf := make([]byte, h.sc.Buffer)
	_, _ = copyBuffer(dst, resp.body, buf)
}

// copyBuffer always streams through buf, never delegating to ReaderFrom
// or WriterTo, so chunk sizes follow the configured buffer.
func copyBuffer(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}

// writePlain emits a response that has no site context (no merged
// headers or compression policy).
func (h *siteHandler) writePlain(w http.ResponseWriter, resp *response) {
	hdr := w.Header()
	hdr.Set("Server", config.ServerName)
	if resp.contentType != "" {
		hdr.Set("Content-Type", resp.contentType)
	}
	if resp.length >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(resp.length, 10))
	}
	w.WriteHeader(resp.status)
	if resp.body != nil {
		defer resp.body.Close()
		_, _ = io.Copy(w, resp.body)
	}
}

func (h *siteHandler) record(host, method string, status int, start time.Time) {
	if !h.observe {
		return
	}
	metrics.ObserveRequest(host, method, status, time.Since(start).Seconds())
}

func expandVar(v config.Var[string], req *http.Request) string {
	if v.IsTemplate() {
		return v.Expand(req)
	}
	return v.Literal()
}

// requestHostname extracts the Host header value (or :authority for
// HTTP/2) without its port.
func requestHostname(req *http.Request) string {
	host := req.Host
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i+1:], "]") {
		host = host[:i]
	}
	return host
}

// remoteAddr parses the connection's remote IP.
func remoteAddr(req *http.Request) netip.Addr {
	if ap, err := netip.ParseAddrPort(req.RemoteAddr); err == nil {
		return ap.Addr()
	}
	if addr, err := netip.ParseAddr(req.RemoteAddr); err == nil {
		return addr
	}
	return netip.Addr{}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
