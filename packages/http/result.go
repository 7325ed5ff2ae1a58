package http

import (
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of one exchange. It is built once by a transport
// and never changes afterwards.
type Result struct {
	transport   string
	status      int
	hasStatus   bool
	statusLine  string
	proto       string
	headers     Headers
	body        []byte
	requestHead string
	rawHead     []string
	diagnostics map[string]any
	err         *ExchangeError
	duration    time.Duration
	finalURL    string
}

func errorResult(transport string, err *ExchangeError) *Result {
	return &Result{
		transport:   transport,
		err:         err,
		diagnostics: map[string]any{},
	}
}

// setStatusLine parses "HTTP/1.1 200 OK". A malformed line leaves the
// status absent and keeps the raw text.
func (r *Result) setStatusLine(line string) {
	r.statusLine = line
	proto, code, ok := parseStatusLine(line)
	r.proto = proto
	if ok {
		r.status = code
		r.hasStatus = true
	}
}

func parseStatusLine(line string) (proto string, code int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(strings.ToUpper(fields[0]), "HTTP/") {
		return "", 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 100 || n > 999 {
		return fields[0], 0, false
	}
	return fields[0], n, true
}

// Status returns the status code. ok is false when the exchange failed or
// the status line could not be parsed.
func (r *Result) Status() (code int, ok bool) {
	return r.status, r.hasStatus
}

// StatusCode returns the status code, or 0 when absent.
func (r *Result) StatusCode() int {
	return r.status
}

func (r *Result) StatusLine() string { return r.statusLine }
func (r *Result) Proto() string { return r.proto }

// Text returns the decoded body as a string.
func (r *Result) Text() string {
	return string(r.body)
}

// Body returns a copy of the decoded body bytes.
func (r *Result) Body() []byte {
	if r.body == nil {
		return nil
	}
	out := make([]byte, len(r.body))
	copy(out, r.body)
	return out
}

// Headers returns the final response headers.
func (r *Result) Headers() Headers {
	return r.headers.Clone()
}

// HeadersString serializes the response headers as a "Name: Value\r\n"
// block.
func (r *Result) HeadersString() string {
	return r.headers.String()
}

func (r *Result) Header(name string) string {
	return r.headers.Get(name)
}

// Cookie returns the first Set-Cookie value.
func (r *Result) Cookie() string {
	return r.CookieAt(0)
}

// Cookies returns every Set-Cookie value in order.
func (r *Result) Cookies() []string {
	return r.headers.Values(headerSetCookie)
}

// CookieAt returns the i-th Set-Cookie value, or "" when out of range.
func (r *Result) CookieAt(i int) string {
	cookies := r.Cookies()
	if i < 0 || i >= len(cookies) {
		return ""
	}
	return cookies[i]
}

// RequestHeadersString returns the request line and headers as sent.
func (r *Result) RequestHeadersString() string {
	return r.requestHead
}

// RequestHeaders parses the sent request head back into a header list.
func (r *Result) RequestHeaders() Headers {
	_, rest, _ := strings.Cut(r.requestHead, "\n")
	return ParseHeaderLines(rest)
}

// RawHead returns every response header block seen, including those of
// redirect hops.
func (r *Result) RawHead() []string {
	out := make([]string, len(r.rawHead))
	copy(out, r.rawHead)
	return out
}

func (r *Result) Diagnostics() map[string]any {
	out := make(map[string]any, len(r.diagnostics))
	for k, v := range r.diagnostics {
		out[k] = v
	}
	return out
}

func (r *Result) Duration() time.Duration { return r.duration }

// Transport names the transport that produced the result.
func (r *Result) Transport() string { return r.transport }

// FinalURL is the URL of the last hop.
func (r *Result) FinalURL() string { return r.finalURL }

// Err returns the exchange error, or nil on success.
func (r *Result) Err() *ExchangeError { return r.err }

// ErrorString returns "code:message", or "" on success.
func (r *Result) ErrorString() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// OK reports whether the exchange completed without error.
func (r *Result) OK() bool {
	return r.err == nil
}

func (r *Result) ContentType() string {
	return r.headers.Get("Content-Type")
}

func (r *Result) IsSuccess() bool {
	return r.hasStatus && r.status >= 200 && r.status < 300
}

func (r *Result) IsRedirect() bool {
	return r.hasStatus && r.status >= 300 && r.status < 400
}

func (r *Result) IsClientError() bool {
	return r.hasStatus && r.status >= 400 && r.status < 500
}

func (r *Result) IsServerError() bool {
	return r.hasStatus && r.status >= 500
}

func (r *Result) DurationMs() int64 {
	return r.duration.Milliseconds()
}
