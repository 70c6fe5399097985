package config

import (
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"
)

// HeaderMap maps canonical header names to their configured values.
// Values may be templates expanded per request.
type HeaderMap map[string]Var[string]

// ErrorPages maps an HTTP status code to the error page path serving it.
type ErrorPages map[int]Setting[string]

// Directory enables the autoindex listing. TimeLayout is the Go time
// layout for the modification-time column ("" hides the column), Size
// toggles the size column.
type Directory struct {
	TimeLayout string
	Size       bool
}

// Rewrite redirects the request to an interpolated target.
type Rewrite struct {
	Location Var[string]
	Status   int // http.StatusMovedPermanently or http.StatusFound
}

// EncodingKind identifies a content encoding, or the auto mode that
// expands to the first client-accepted concrete encoding.
type EncodingKind uint8

const (
	EncodingAuto EncodingKind = iota
	EncodingGzip
	EncodingDeflate
	EncodingBr
)

// Token returns the Content-Encoding header token.
func (k EncodingKind) Token() string {
	switch k {
	case EncodingGzip:
		return "gzip"
	case EncodingDeflate:
		return "deflate"
	case EncodingBr:
		return "br"
	}
	return ""
}

// ParseEncodingKind parses a configured compress mode name.
func ParseEncodingKind(mode string) (EncodingKind, error) {
	switch mode {
	case "auto":
		return EncodingAuto, nil
	case "gzip":
		return EncodingGzip, nil
	case "deflate":
		return EncodingDeflate, nil
	case "br":
		return EncodingBr, nil
	}
	return 0, fmt.Errorf("wrong compression mode %q, optional value: `auto` `gzip` `deflate` `br`", mode)
}

// Encoding is one configured compression mode with its level.
type Encoding struct {
	Kind  EncodingKind
	Level int
}

// Compress is the merged compression policy of a site: an ordered mode
// list and the extension whitelist it applies to.
type Compress struct {
	Modes      []Encoding
	Extensions []string
}

// autoOrder is the preference order the auto mode expands through.
var autoOrder = [...]EncodingKind{EncodingGzip, EncodingDeflate, EncodingBr}

// Negotiate picks the encoding for a response with the given file
// extension against the client's Accept-Encoding header. It returns the
// selected concrete encoding, or ok=false for uncompressed pass-through.
func (c Compress) Negotiate(acceptEncoding, ext string) (Encoding, bool) {
	if ext == "" || !containsFold(c.Extensions, ext) {
		return Encoding{}, false
	}

	accepted := parseAcceptEncoding(acceptEncoding)
	if len(accepted) == 0 {
		return Encoding{}, false
	}

	for _, mode := range c.Modes {
		if mode.Kind == EncodingAuto {
			for _, kind := range autoOrder {
				if accepted[kind.Token()] {
					return Encoding{Kind: kind, Level: mode.Level}, true
				}
			}
			continue
		}
		if accepted[mode.Kind.Token()] {
			return mode, true
		}
	}
	return Encoding{}, false
}

// parseAcceptEncoding extracts the encoding tokens the client accepts.
func parseAcceptEncoding(header string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		token, _, _ := strings.Cut(part, ";")
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" {
			out[token] = true
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// Auth holds pre-encoded HTTP Basic credentials.
type Auth struct {
	credentials string
}

// NewBasicAuth encodes user and password into the expected
// Authorization header value.
func NewBasicAuth(user, password string) Auth {
	return Auth{credentials: "Basic " + base64Encode(user+":"+password)}
}

// Check compares the request's Authorization header byte-for-byte with
// the configured credentials.
func (a Auth) Check(req *http.Request) bool {
	return req.Header.Get("Authorization") == a.credentials
}

// Proxy forwards the request to an upstream resolved per request.
type Proxy struct {
	URL     Var[string]
	Method  string // empty keeps the client's method
	Headers Setting[HeaderMap]
	Timeout time.Duration
}

// AccessLog emits one interpolated line per request to stdout and/or an
// append-only file. Writes are serialized so concurrent request lines
// never interleave mid-line.
type AccessLog struct {
	format Var[string]
	stdout bool
	file   io.Writer

	mu sync.Mutex
}

// NewAccessLog builds a logger with the given interpolated format.
func NewAccessLog(format string) *AccessLog {
	return &AccessLog{format: NewVar(format + "\n")}
}

// WithStdout adds the stdout sink.
func (l *AccessLog) WithStdout() *AccessLog {
	l.stdout = true
	return l
}

// WithFile adds an append-only file sink, created if missing. The file
// rotates through lumberjack once it grows past its size cap.
func (l *AccessLog) WithFile(path string) (*AccessLog, error) {
	// Probe the path now so a bad log target fails at load time.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	_ = f.Close()

	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
	}
	return l, nil
}

// Write formats one line for req and emits it to every sink.
func (l *AccessLog) Write(req *http.Request) {
	var line string
	if l.format.IsTemplate() {
		line = l.format.Expand(req)
	} else {
		line = l.format.Literal()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_, _ = l.file.Write([]byte(line))
	}
	if l.stdout {
		_, _ = os.Stdout.WriteString(line)
	}
}

// limiterCacheSize bounds the per-client limiter table of one site.
const limiterCacheSize = 4096

// Limit applies a per-client token bucket. Client state lives in a
// bounded LRU so an address scan cannot grow the table without bound.
type Limit struct {
	rateLimit rate.Limit
	burst     int
	limiters  *lru.Cache[string, *rate.Limiter]
}

// NewLimit builds a limiter allowing n requests per second with the
// given burst capacity.
func NewLimit(n float64, burst int) (*Limit, error) {
	cache, err := lru.New[string, *rate.Limiter](limiterCacheSize)
	if err != nil {
		return nil, err
	}
	return &Limit{rateLimit: rate.Limit(n), burst: burst, limiters: cache}, nil
}

// Allow reports whether a request from ip may proceed.
func (l *Limit) Allow(ip netip.Addr) bool {
	key := ip.String()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.rateLimit, l.burst)
		l.limiters.Add(key, limiter)
	}
	return limiter.Allow()
}
