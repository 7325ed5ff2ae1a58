package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders_SetOverwritesInPlace(t *testing.T) {
	h := Headers{
		{Name: "Accept", Value: "*/*"},
		{Name: "X-A", Value: "1"},
		{Name: "accept", Value: "dup"},
	}
	h.Set("ACCEPT", "text/plain")

	require.Len(t, h, 2)
	assert.Equal(t, "Accept", h[0].Name)
	assert.Equal(t, "text/plain", h[0].Value)
	assert.Equal(t, "X-A", h[1].Name)
}

func TestHeaders_Del(t *testing.T) {
	h := DefaultHeaders()
	h.Del("connection")

	assert.False(t, h.Has("Connection"))
	assert.Len(t, h, len(DefaultHeaders())-1)
}

func TestParseHeaderLines_SerializeInverse(t *testing.T) {
	h := Headers{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "X-Request-Id", Value: "abc:def"},
		{Name: "Set-Cookie", Value: "a=1; Path=/"},
		{Name: "Set-Cookie", Value: "b=2"},
	}

	parsed := ParseHeaderLines(h.String())

	assert.Equal(t, h, parsed)
	assert.Equal(t, h.String(), parsed.String())
}

func TestParseHeaderLines_RepeatedNames(t *testing.T) {
	h := ParseHeaderLines("X-A: 1\nX-A: 2\nSet-Cookie: s=1\nSet-Cookie: s=2\n")

	assert.Equal(t, "2", h.Get("X-A"))
	assert.Equal(t, []string{"s=1", "s=2"}, h.Values("Set-Cookie"))
}

func TestParseHeaderLines_ColonFallback(t *testing.T) {
	h := ParseHeaderLines("X-Compact:value\r\nno separator here\r\n: empty\r\n")

	require.Len(t, h, 1)
	assert.Equal(t, "value", h.Get("X-Compact"))
}

func TestParseResponseHead(t *testing.T) {
	line, h := ParseResponseHead("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\nServer: test")

	assert.Equal(t, "HTTP/1.1 404 Not Found", line)
	assert.Equal(t, "0", h.Get("content-length"))
	assert.Equal(t, "test", h.Get("Server"))
}

func TestHeadersFromMap_Sorted(t *testing.T) {
	h := HeadersFromMap(map[string]string{"b": "2", "a": "1", "c": "3"})

	assert.Equal(t, "a: 1\r\nb: 2\r\nc: 3\r\n", h.String())
}
