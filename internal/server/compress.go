package server

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/vitaliisemenov/gatehouse/internal/config"
)

// newEncoder wraps w in the streaming encoder for the negotiated
// encoding. The caller must Close the encoder to flush trailing blocks.
func newEncoder(w io.Writer, enc config.Encoding) io.WriteCloser {
	switch enc.Kind {
	case config.EncodingGzip:
		zw, err := gzip.NewWriterLevel(w, enc.Level)
		if err != nil {
			zw = gzip.NewWriter(w)
		}
		return zw
	case config.EncodingDeflate:
		zw, err := zlib.NewWriterLevel(w, enc.Level)
		if err != nil {
			zw = zlib.NewWriter(w)
		}
		return zw
	case config.EncodingBr:
		return brotli.NewWriterLevel(w, enc.Level)
	}
	return nopWriteCloser{w}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
