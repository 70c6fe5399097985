package config

import (
	"net/http"
	"regexp"
	"strings"
)

// Variable tokens recognized inside string-valued options. The set of
// token classes present in a template is recorded once at load time so
// request-time expansion only runs the passes that can match.
var (
	varBaseRegex   = regexp.MustCompile(`\$\{request_(scheme|host|port|path|query|uri|method)\}`)
	varQueryRegex  = regexp.MustCompile(`\$\{request_query_([\w-]+)\}`)
	varHeaderRegex = regexp.MustCompile(`\$\{request_header_([\w-]+)\}`)
)

type varPlan uint8

const (
	planBase varPlan = 1 << iota
	planQuery
	planHeader
)

func scanPlan(s string) varPlan {
	var plan varPlan
	if varBaseRegex.MatchString(s) {
		plan |= planBase
	}
	if varQueryRegex.MatchString(s) {
		plan |= planQuery
	}
	if varHeaderRegex.MatchString(s) {
		plan |= planHeader
	}
	return plan
}

// Var is a configured string that either parsed eagerly to its target
// type at load time, or holds a template expanded against each request.
type Var[T any] struct {
	literal T
	raw     string
	plan    varPlan
}

// NewVar scans raw for variable tokens and returns either a literal
// string Var or a template Var.
func NewVar(raw string) Var[string] {
	if plan := scanPlan(raw); plan != 0 {
		return Var[string]{raw: raw, plan: plan}
	}
	return Var[string]{literal: raw}
}

// ParseVar scans raw for variable tokens. Without tokens the value is
// converted through parse once at load time and the error, if any, is a
// configuration error. With tokens the conversion is deferred to request
// time.
func ParseVar[T any](raw string, parse func(string) (T, error)) (Var[T], error) {
	if plan := scanPlan(raw); plan != 0 {
		return Var[T]{raw: raw, plan: plan}, nil
	}
	v, err := parse(raw)
	if err != nil {
		return Var[T]{}, err
	}
	return Var[T]{literal: v}, nil
}

// IsTemplate reports whether the value must be expanded per request.
func (v Var[T]) IsTemplate() bool { return v.plan != 0 }

// Literal returns the eagerly parsed value. Only meaningful when
// IsTemplate is false.
func (v Var[T]) Literal() T { return v.literal }

// Raw returns the original template string.
func (v Var[T]) Raw() string { return v.raw }

// Expand substitutes every recognized token in the template with its
// value from req and returns the resulting string.
func (v Var[T]) Expand(req *http.Request) string {
	source := v.raw

	if v.plan&planBase != 0 {
		source = varBaseRegex.ReplaceAllStringFunc(source, func(tok string) string {
			switch tok {
			case "${request_scheme}":
				return requestScheme(req)
			case "${request_host}":
				return requestHostname(req)
			case "${request_port}":
				return requestPort(req)
			case "${request_path}":
				return req.URL.EscapedPath()
			case "${request_query}":
				return requestQuery(req)
			case "${request_uri}":
				return req.URL.EscapedPath() + requestQuery(req)
			case "${request_method}":
				return req.Method
			}
			return tok
		})
	}

	if v.plan&planQuery != 0 {
		query := req.URL.Query()
		source = varQueryRegex.ReplaceAllStringFunc(source, func(tok string) string {
			name := varQueryRegex.FindStringSubmatch(tok)[1]
			return query.Get(name)
		})
	}

	if v.plan&planHeader != 0 {
		source = varHeaderRegex.ReplaceAllStringFunc(source, func(tok string) string {
			name := varHeaderRegex.FindStringSubmatch(tok)[1]
			return req.Header.Get(name)
		})
	}

	return source
}

func requestScheme(req *http.Request) string {
	if req.TLS != nil {
		return "https"
	}
	return "http"
}

func requestHostname(req *http.Request) string {
	host, _ := splitHostPort(req.Host)
	return host
}

func requestPort(req *http.Request) string {
	_, port := splitHostPort(req.Host)
	return port
}

func requestQuery(req *http.Request) string {
	if req.URL.RawQuery == "" {
		return ""
	}
	return "?" + req.URL.RawQuery
}

// splitHostPort splits "host:port" without requiring a port. IPv6
// literals keep their brackets out of the port scan.
func splitHostPort(hostport string) (string, string) {
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 && !strings.Contains(hostport[i+1:], "]") {
		return hostport[:i], hostport[i+1:]
	}
	return hostport, ""
}
