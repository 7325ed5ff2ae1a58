package http

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedChunk is returned by DecodeChunked when the body does not
// follow chunked framing.
var ErrMalformedChunk = errors.New("malformed chunked encoding")

// Unchunk reassembles an HTTP/1.1 chunked body. Strict decoding is tried
// first; when the framing is broken the lenient routine rewrites only the
// spans whose declared size matches and leaves the rest as it was.
func Unchunk(body []byte) []byte {
	if out, err := DecodeChunked(body); err == nil {
		return out
	}
	return unchunkLenient(body)
}

// DecodeChunked decodes "<hex>[;ext]\r\n<payload>\r\n" segments up to the
// zero-size chunk. Trailers after it are ignored. Bare LF line endings are
// accepted.
func DecodeChunked(body []byte) ([]byte, error) {
	var out bytes.Buffer
	rest := body
	for {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return nil, ErrMalformedChunk
		}
		line := strings.TrimSpace(string(bytes.TrimRight(rest[:nl], "\r")))
		rest = rest[nl+1:]
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			return nil, ErrMalformedChunk
		}
		size, err := strconv.ParseUint(line, 16, 63)
		if err != nil {
			return nil, ErrMalformedChunk
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if uint64(len(rest)) < size {
			return nil, ErrMalformedChunk
		}
		out.Write(rest[:size])
		rest = rest[size:]
		switch {
		case bytes.HasPrefix(rest, []byte("\r\n")):
			rest = rest[2:]
		case bytes.HasPrefix(rest, []byte("\n")):
			rest = rest[1:]
		default:
			return nil, ErrMalformedChunk
		}
	}
}

var lenientChunkPattern = regexp.MustCompile(
	`(?si)(?:(?:\r\n|\n)|^)([0-9A-F]+)(?:\r\n|\n){1,2}(.*?)((?:\r\n|\n)(?:[0-9A-F]+(?:\r\n|\n))|$)`)

// unchunkLenient replaces each "<hex>\n<payload>" span by its payload when
// the hex size equals the payload length. Other spans pass through
// untouched, so already-decoded input comes back unchanged.
func unchunkLenient(body []byte) []byte {
	matches := lenientChunkPattern.FindAllSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body
	}
	var out bytes.Buffer
	last := 0
	for _, m := range matches {
		out.Write(body[last:m[0]])
		size, err := strconv.ParseUint(string(body[m[2]:m[3]]), 16, 63)
		payload := body[m[4]:m[5]]
		if err == nil && size == uint64(len(payload)) {
			out.Write(payload)
		} else {
			out.Write(body[m[0]:m[1]])
		}
		last = m[1]
	}
	out.Write(body[last:])
	return out.Bytes()
}
