package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// DecodeContent undoes the codings listed in a Content-Encoding value, last
// applied first. An unknown coding or a decode failure returns body
// unchanged.
func DecodeContent(body []byte, contentEncoding string, logger *slog.Logger) []byte {
	if len(body) == 0 || strings.TrimSpace(contentEncoding) == "" {
		return body
	}
	if logger == nil {
		logger = discardLogger
	}
	codings := strings.Split(contentEncoding, ",")
	out := body
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		decoded, err := decodeOne(out, coding)
		if err != nil {
			logger.Debug("content decoding failed, keeping raw body",
				"coding", coding, "error", err)
			return body
		}
		out = decoded
	}
	return out
}

func decodeOne(body []byte, coding string) ([]byte, error) {
	switch coding {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer zr.Close()
			if out, err := io.ReadAll(zr); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		return io.ReadAll(fr)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	}
	return nil, fmt.Errorf("unsupported content coding %q", coding)
}
