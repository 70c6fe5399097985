package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// response is the internal shape a handler produces before headers,
// compression and streaming are applied on the way out.
type response struct {
	status      int
	header      http.Header
	body        io.ReadCloser // nil for an empty body
	length      int64         // -1 when unknown
	ext         string        // file extension driving mime and compression
	contentType string
}

func newResponse(status int) *response {
	return &response{status: status, header: make(http.Header), length: -1}
}

// statusResponse is the synthesized fallback body: "<code> <reason>" as
// plain text.
func statusResponse(status int) *response {
	body := fmt.Sprintf("%d %s", status, http.StatusText(status))
	return textResponse(status, body, mimeTextPlain)
}

func textResponse(status int, body, contentType string) *response {
	resp := newResponse(status)
	resp.body = io.NopCloser(strings.NewReader(body))
	resp.length = int64(len(body))
	resp.contentType = contentType
	return resp
}

func emptyResponse(status int) *response {
	resp := newResponse(status)
	resp.length = 0
	return resp
}

const (
	mimeTextPlain   = "text/plain"
	mimeTextHTML    = "text/html"
	mimeOctetStream = "application/octet-stream"
)

// mimeByExtension looks up the media type for a file extension (without
// the dot), defaulting to an opaque byte stream.
func mimeByExtension(ext string) string {
	if ext == "" {
		return mimeOctetStream
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return mimeOctetStream
}

// extensionOf returns the lowercase file extension of path without the
// dot, or "".
func extensionOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || i == len(path)-1 || strings.ContainsRune(path[i:], '/') {
		return ""
	}
	return strings.ToLower(path[i+1:])
}
