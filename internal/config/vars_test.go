package config

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarLiteral(t *testing.T) {
	v := NewVar("plain text")
	assert.False(t, v.IsTemplate())
	assert.Equal(t, "plain text", v.Literal())
}

func TestVarExpandBase(t *testing.T) {
	v := NewVar("${request_method} ${request_scheme}://${request_host}${request_uri}")
	require.True(t, v.IsTemplate())

	req := httptest.NewRequest("GET", "http://example.com/a?b=1", nil)
	assert.Equal(t, "GET http://example.com/a?b=1", v.Expand(req))
}

func TestVarExpandPathQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/a/b?x=1&y=2", nil)

	assert.Equal(t, "/a/b", NewVar("${request_path}").Expand(req))
	assert.Equal(t, "?x=1&y=2", NewVar("${request_query}").Expand(req))
	assert.Equal(t, "/a/b?x=1&y=2", NewVar("${request_uri}").Expand(req))

	// Query token is empty without a query string.
	req = httptest.NewRequest("GET", "http://example.com/a", nil)
	assert.Equal(t, "", NewVar("${request_query}").Expand(req))
	assert.Equal(t, "/a", NewVar("${request_uri}").Expand(req))
}

func TestVarExpandHostPort(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com:8080/", nil)
	assert.Equal(t, "example.com", NewVar("${request_host}").Expand(req))
	assert.Equal(t, "8080", NewVar("${request_port}").Expand(req))

	req = httptest.NewRequest("GET", "http://example.com/", nil)
	assert.Equal(t, "", NewVar("${request_port}").Expand(req))
}

func TestVarExpandQueryParam(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/?name=alice&empty=", nil)
	assert.Equal(t, "alice", NewVar("${request_query_name}").Expand(req))
	assert.Equal(t, "", NewVar("${request_query_empty}").Expand(req))
	assert.Equal(t, "", NewVar("${request_query_missing}").Expand(req))
}

func TestVarExpandHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/", nil)
	req.Header.Set("X-Custom-Token", "secret")

	// Header lookups are case-insensitive.
	assert.Equal(t, "secret", NewVar("${request_header_X-Custom-Token}").Expand(req))
	assert.Equal(t, "secret", NewVar("${request_header_x-custom-token}").Expand(req))
	assert.Equal(t, "", NewVar("${request_header_Missing}").Expand(req))
}

func TestVarExpandClosure(t *testing.T) {
	// After expansion no recognized token survives.
	templates := []string{
		"${request_scheme}${request_host}${request_port}",
		"${request_path}${request_query}${request_uri}${request_method}",
		"${request_query_a}${request_header_b}",
		"mixed ${request_path} and ${request_query_x} and ${request_header_y}",
	}
	req := httptest.NewRequest("GET", "http://example.com/p?a=1", nil)
	for _, tpl := range templates {
		out := NewVar(tpl).Expand(req)
		assert.False(t, varBaseRegex.MatchString(out), "base token left in %q", out)
		assert.False(t, varQueryRegex.MatchString(out), "query token left in %q", out)
		assert.False(t, varHeaderRegex.MatchString(out), "header token left in %q", out)
	}
}

func TestVarUnrecognizedTokensKept(t *testing.T) {
	v := NewVar("${request_bogus} stays")
	assert.False(t, v.IsTemplate())
	assert.True(t, strings.Contains(v.Literal(), "${request_bogus}"))
}

func TestParseVarEager(t *testing.T) {
	v, err := ParseVar("http://upstream:9000/base", func(s string) (*url.URL, error) {
		return url.Parse(s)
	})
	require.NoError(t, err)
	assert.False(t, v.IsTemplate())
	assert.Equal(t, "upstream:9000", v.Literal().Host)
}

func TestParseVarDeferred(t *testing.T) {
	called := false
	v, err := ParseVar("http://upstream${request_uri}", func(s string) (string, error) {
		called = true
		return s, nil
	})
	require.NoError(t, err)
	assert.True(t, v.IsTemplate())
	assert.False(t, called, "templates must not parse at load time")
}

func TestParseVarError(t *testing.T) {
	_, err := ParseVar("::bad::", func(s string) (*url.URL, error) {
		return url.Parse(s)
	})
	assert.Error(t, err)
}
