package config

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/netip"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func textprotoCanonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// ResolveListen normalizes a listen address given on the command line,
// with the same accepted forms as the `listen` directive.
func ResolveListen(text string) (string, error) {
	return toSocketAddr(text)
}

// toSocketAddr normalizes a configured listen value. Accepted forms:
// HOST:PORT, a bare IP (implying port 80) and a bare port (implying
// 0.0.0.0).
func toSocketAddr(text string) (string, error) {
	if ap, err := netip.ParseAddrPort(text); err == nil {
		return ap.String(), nil
	}
	if addr, err := netip.ParseAddr(text); err == nil {
		return netip.AddrPortFrom(addr, 80).String(), nil
	}
	if port, err := strconv.ParseUint(text, 10, 16); err == nil {
		return fmt.Sprintf("0.0.0.0:%d", port), nil
	}
	return "", fmt.Errorf("cannot parse %q to socket address", text)
}

var knownMethods = map[string]string{
	"GET":     http.MethodGet,
	"HEAD":    http.MethodHead,
	"POST":    http.MethodPost,
	"PUT":     http.MethodPut,
	"PATCH":   http.MethodPatch,
	"DELETE":  http.MethodDelete,
	"CONNECT": http.MethodConnect,
	"OPTIONS": http.MethodOptions,
	"TRACE":   http.MethodTrace,
}

// toMethod validates and canonicalizes an HTTP method name.
func toMethod(text string) (string, error) {
	if m, ok := knownMethods[strings.ToUpper(text)]; ok {
		return m, nil
	}
	return "", fmt.Errorf("cannot parse %q to http method", text)
}

// toStatusCode parses an HTTP status code in the valid range.
func toStatusCode(text string) (int, error) {
	n, err := strconv.Atoi(text)
	if err != nil || n < 100 || n > 599 {
		return 0, fmt.Errorf("cannot parse %q to http status code", text)
	}
	return n, nil
}

// parseDuration reads the config duration format: a number followed by
// one of d, h, m, s, ms. Fractions are allowed, zero is invalid.
func parseDuration(text string) (time.Duration, error) {
	i := strings.IndexFunc(text, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i < 0 {
		return 0, fmt.Errorf("duration %q has no unit", text)
	}
	if i == 0 {
		return 0, fmt.Errorf("duration %q has no number", text)
	}
	n, err := strconv.ParseFloat(text[:i], 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse duration %q: %w", text, err)
	}

	var unit time.Duration
	switch text[i:] {
	case "d":
		unit = 24 * time.Hour
	case "h":
		unit = time.Hour
	case "m":
		unit = time.Minute
	case "s":
		unit = time.Second
	case "ms":
		unit = time.Millisecond
	default:
		return 0, fmt.Errorf("duration %q has unknown unit", text)
	}

	d := time.Duration(n * float64(unit))
	if d <= 0 {
		return 0, fmt.Errorf("duration %q is zero", text)
	}
	return d, nil
}

// parseSize reads a byte count with an optional k or m suffix.
func parseSize(text string) (int, error) {
	mult := 1
	lower := strings.ToLower(text)
	switch {
	case strings.HasSuffix(lower, "k"):
		mult, lower = 1024, lower[:len(lower)-1]
	case strings.HasSuffix(lower, "m"):
		mult, lower = 1024*1024, lower[:len(lower)-1]
	}
	n, err := strconv.Atoi(lower)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("cannot parse %q to size", text)
	}
	return n * mult, nil
}

// strftimeLayout converts a strftime pattern to a Go time layout.
func strftimeLayout(pattern string) (string, error) {
	layout, err := strftime.Layout(pattern)
	if err != nil {
		return "", fmt.Errorf("cannot parse %q to time format: %w", pattern, err)
	}
	return layout, nil
}
