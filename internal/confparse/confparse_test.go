package confparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForms(t *testing.T) {
	src := `
# top comment
bare
greeting hello world   # trailing comment
enabled on
disabled off
outer {
    inner value
}
tagged v1 {
    child on
}
`
	block, err := Parse(src)
	require.NoError(t, err)

	d := block.Get("bare")
	require.NotNil(t, d)
	assert.Equal(t, KindNone, d.Kind())
	assert.Equal(t, 3, d.Line())

	d = block.Get("greeting")
	require.NotNil(t, d)
	v, ok := d.String()
	require.True(t, ok)
	assert.Equal(t, "hello world", v)
	assert.Equal(t, []string{"hello", "world"}, d.Values())

	assert.True(t, block.Get("enabled").IsOn())
	assert.True(t, block.Get("disabled").IsOff())

	d = block.Get("outer")
	require.NotNil(t, d)
	child, ok := d.Block()
	require.True(t, ok)
	inner, ok := child.Get("inner").String()
	require.True(t, ok)
	assert.Equal(t, "value", inner)

	val, child, ok := block.Get("tagged").ValueBlock()
	require.True(t, ok)
	assert.Equal(t, "v1", val)
	assert.True(t, child.Get("child").IsOn())
}

func TestParseNestedBlocks(t *testing.T) {
	src := `
server {
    listen 80
    ^ /api/ {
        proxy {
            url http://127.0.0.1:9000
        }
    }
}
`
	block, err := Parse(src)
	require.NoError(t, err)

	server, ok := block.Get("server").Block()
	require.True(t, ok)

	loc := server.Get("^")
	require.NotNil(t, loc)
	pattern, locBlock, ok := loc.ValueBlock()
	require.True(t, ok)
	assert.Equal(t, "/api/", pattern)

	proxy, ok := locBlock.Get("proxy").Block()
	require.True(t, ok)
	url, ok := proxy.Get("url").String()
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:9000", url)
}

func TestParseGetAll(t *testing.T) {
	src := `
a one
b two
a three
`
	block, err := Parse(src)
	require.NoError(t, err)
	assert.Len(t, block.GetAll("a"), 2)
	assert.Len(t, block.GetAllNames("a", "b"), 3)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"missing close", "server {\nlisten 80\n", 1, "missing '}'"},
		{"redundant close", "a b\n}\n", 2, "redundant '}'"},
		{"brace not alone", "} trailing\n", 1, "separate line"},
		{"too many values", "a b c {\n}\n", 1, "wrong number of values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			pe, ok := err.(*ParseError)
			require.True(t, ok, "want *ParseError, got %T", err)
			assert.Equal(t, tt.line, pe.Line)
			assert.True(t, strings.Contains(pe.Msg, tt.msg), "msg %q should contain %q", pe.Msg, tt.msg)
		})
	}
}

func TestParseValueEndingWithBrace(t *testing.T) {
	// Variable tokens put '}' at the end of plenty of values.
	block, err := Parse("echo ${request_path}\nrewrite https://x${request_uri} 301\n")
	require.NoError(t, err)

	v, ok := block.Get("echo").String()
	require.True(t, ok)
	assert.Equal(t, "${request_path}", v)

	v, ok = block.Get("rewrite").String()
	require.True(t, ok)
	assert.Equal(t, "https://x${request_uri} 301", v)
}

func TestParseCommentsAndBlanks(t *testing.T) {
	src := "# only comments\n\n   \n# more\n"
	block, err := Parse(src)
	require.NoError(t, err)
	assert.Empty(t, block.Directives())
}
