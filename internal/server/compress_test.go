package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/gatehouse/internal/config"
)

func compressOf(modes []config.Encoding) config.Compress {
	return config.Compress{Modes: modes, Extensions: []string{"html", "css"}}
}

func TestNegotiateFirstConfiguredModeWins(t *testing.T) {
	c := compressOf([]config.Encoding{
		{Kind: config.EncodingBr, Level: 3},
		{Kind: config.EncodingGzip, Level: 3},
	})

	enc, ok := c.Negotiate("gzip, br", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingBr, enc.Kind)

	enc, ok = c.Negotiate("gzip", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingGzip, enc.Kind)
}

func TestNegotiateAutoExpansion(t *testing.T) {
	c := compressOf([]config.Encoding{{Kind: config.EncodingAuto, Level: 5}})

	// Auto picks the first of gzip, deflate, br the client accepts.
	enc, ok := c.Negotiate("br, gzip", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingGzip, enc.Kind)
	assert.Equal(t, 5, enc.Level)

	enc, ok = c.Negotiate("br", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingBr, enc.Kind)

	enc, ok = c.Negotiate("deflate, br", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingDeflate, enc.Kind)

	_, ok = c.Negotiate("identity", "html")
	assert.False(t, ok)
}

func TestNegotiateExtensionWhitelist(t *testing.T) {
	c := compressOf([]config.Encoding{{Kind: config.EncodingGzip, Level: 3}})

	_, ok := c.Negotiate("gzip", "png")
	assert.False(t, ok, "extension outside the whitelist must pass through")

	_, ok = c.Negotiate("gzip", "")
	assert.False(t, ok, "a response without an extension must pass through")

	enc, ok := c.Negotiate("gzip", "CSS")
	require.True(t, ok, "extension comparison is case-insensitive")
	assert.Equal(t, config.EncodingGzip, enc.Kind)
}

func TestNegotiateQualityValuesIgnored(t *testing.T) {
	c := compressOf([]config.Encoding{{Kind: config.EncodingGzip, Level: 3}})
	enc, ok := c.Negotiate("br;q=1.0, gzip;q=0.8", "html")
	require.True(t, ok)
	assert.Equal(t, config.EncodingGzip, enc.Kind)
}

func TestNegotiateNoAcceptEncoding(t *testing.T) {
	c := compressOf([]config.Encoding{{Kind: config.EncodingGzip, Level: 3}})
	_, ok := c.Negotiate("", "html")
	assert.False(t, ok)
}

func TestEncoderRoundTrips(t *testing.T) {
	payload := bytes.Repeat([]byte("gatehouse stream "), 4096)

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		enc := newEncoder(&buf, config.Encoding{Kind: config.EncodingGzip, Level: 5})
		_, err := enc.Write(payload)
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		r, err := gzip.NewReader(&buf)
		require.NoError(t, err)
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("deflate", func(t *testing.T) {
		var buf bytes.Buffer
		enc := newEncoder(&buf, config.Encoding{Kind: config.EncodingDeflate, Level: 5})
		_, err := enc.Write(payload)
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		r, err := zlib.NewReader(&buf)
		require.NoError(t, err)
		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("br", func(t *testing.T) {
		var buf bytes.Buffer
		enc := newEncoder(&buf, config.Encoding{Kind: config.EncodingBr, Level: 5})
		_, err := enc.Write(payload)
		require.NoError(t, err)
		require.NoError(t, enc.Close())

		out, err := io.ReadAll(brotli.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})
}

// Scenario: a large HTML file served with gzip negotiated.
func TestCompressedFileResponse(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("<p>gatehouse</p>\n", 8*1024) // 136 KiB
	writeFile(t, dir, "srv/page.html", content)

	h := loadHandler(t, `
server {
    listen 80
    root srv
    compress {
        mode gzip
        extension html
    }
}
`, dir)

	w := get(h, "http://example.com/page.html", "example.com", func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip, br")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Empty(t, w.Header().Get("Content-Length"))

	r, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(out))
}

func TestUncompressedWithoutAcceptEncoding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "srv/page.html", "plain")

	h := loadHandler(t, `
server {
    listen 80
    root srv
    compress on
}
`, dir)

	w := get(h, "http://example.com/page.html", "example.com")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "5", w.Header().Get("Content-Length"))
	assert.Equal(t, "plain", w.Body.String())
}

func TestEchoNotCompressed(t *testing.T) {
	h := loadHandler(t, `
server {
    listen 80
    echo hello
    compress on
}
`, t.TempDir())

	w := get(h, "http://example.com/", "example.com", func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip")
	})
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "hello", w.Body.String())
}

func TestAutoindexCompressed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "srv/sub/a.txt", "x")

	h := loadHandler(t, `
server {
    listen 80
    root srv
    index off
    directory on
    compress on
}
`, dir)

	w := get(h, "http://example.com/sub/", "example.com", func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip")
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	r, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<a href="../">../</a>`)
}
