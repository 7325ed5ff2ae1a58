package http

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Methods lists the request methods a Request accepts.
var Methods = []string{"GET", "POST", "HEAD", "PUT", "DELETE", "PATCH"}

// Request is the definition of one exchange. Setters return the same
// Request so calls can be chained. A Request executes at most once; once
// executed it is read-only.
type Request struct {
	method   string
	url      string
	tls      bool
	params   Params
	body     string
	rawBody  bool
	headers  Headers
	cookie   string
	timeout  time.Duration
	username string
	password string
	aws      *AWSCredentials
	baseDir  string
	opts     Options
	hooks    Hooks
	err      *ExchangeError
	executed bool
}

// NewRequest creates a definition seeded with the default headers and
// options. An invalid method is recorded as a validation error.
func NewRequest(method, rawURL string) *Request {
	r := &Request{
		method:  "GET",
		headers: DefaultHeaders(),
		opts:    DefaultOptions(),
	}
	if method != "" {
		r.SetMethod(method)
	}
	r.SetURL(rawURL)
	return r
}

func (r *Request) frozen() bool {
	return r.executed
}

func (r *Request) recordError(e *ExchangeError) {
	if r.err == nil {
		r.err = e
	}
}

// SetMethod sets the method. Values outside Methods record a validation
// error and keep the current method.
func (r *Request) SetMethod(method string) *Request {
	if r.frozen() {
		return r
	}
	m := strings.ToUpper(strings.TrimSpace(method))
	if !IsValidMethod(m) {
		r.recordError(validationError("Invalid method: %s", m))
		return r
	}
	r.method = m
	return r
}

// SetURL normalizes and stores the URL.
func (r *Request) SetURL(rawURL string) *Request {
	if r.frozen() {
		return r
	}
	r.url, r.tls = NormalizeURL(rawURL)
	return r
}

// SetParams replaces the request data with ordered pairs.
func (r *Request) SetParams(p Params) *Request {
	if r.frozen() {
		return r
	}
	r.params = p.Clone()
	r.body = ""
	r.rawBody = false
	return r
}

// SetParam sets a single data pair.
func (r *Request) SetParam(key string, value any) *Request {
	if r.frozen() {
		return r
	}
	if r.rawBody {
		r.body = ""
		r.rawBody = false
	}
	r.params.Set(key, value)
	return r
}

// SetBody replaces the request data with a raw string.
func (r *Request) SetBody(body string) *Request {
	if r.frozen() {
		return r
	}
	r.body = body
	r.rawBody = true
	r.params = nil
	return r
}

func (r *Request) SetHeader(name, value string) *Request {
	if r.frozen() {
		return r
	}
	r.headers.Set(name, value)
	return r
}

func (r *Request) SetHeaders(h Headers) *Request {
	if r.frozen() {
		return r
	}
	r.headers.Merge(h)
	return r
}

// DelHeader removes a header, including a default one.
func (r *Request) DelHeader(name string) *Request {
	if r.frozen() {
		return r
	}
	r.headers.Del(name)
	return r
}

// SetCookie appends "name=value" text to the cookie string. Existing
// cookies are kept and joined with ';'.
func (r *Request) SetCookie(cookie string) *Request {
	if r.frozen() {
		return r
	}
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return r
	}
	if r.cookie == "" {
		r.cookie = cookie
	} else {
		r.cookie += ";" + cookie
	}
	return r
}

// SetCookieValue appends a single name=value cookie.
func (r *Request) SetCookieValue(name, value string) *Request {
	return r.SetCookie(name + "=" + value)
}

// SetCookies appends every pair as name=value.
func (r *Request) SetCookies(p Params) *Request {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, kv.Key+"="+paramString(kv.Value))
	}
	return r.SetCookie(strings.Join(parts, ";"))
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	if r.frozen() {
		return r
	}
	if d < 0 {
		d = 0
	}
	r.timeout = d
	return r
}

func (r *Request) SetBasicAuth(username, password string) *Request {
	if r.frozen() {
		return r
	}
	r.username = username
	r.password = password
	return r
}

// SetBaseDir sets the directory "@file" attachments are resolved against.
// Attachments may not escape it.
func (r *Request) SetBaseDir(dir string) *Request {
	if r.frozen() {
		return r
	}
	r.baseDir = dir
	return r
}

// SetHooks registers callbacks fired after execution.
func (r *Request) SetHooks(h Hooks) *Request {
	if r.frozen() {
		return r
	}
	r.hooks = h
	return r
}

// SetOption applies one entry of the option bag. Known names go through
// the option table; anything else is kept upper-cased in
// Options.Passthrough.
func (r *Request) SetOption(name string, value any) *Request {
	if r.frozen() {
		return r
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := optionAliases[key]; ok {
		key = alias
	}
	set, ok := optionTable[key]
	if !ok {
		if r.opts.Passthrough == nil {
			r.opts.Passthrough = make(map[string]string)
		}
		r.opts.Passthrough[strings.ToUpper(key)] = paramString(value)
		return r
	}
	if err := set(r, value); err != nil {
		r.recordError(validationError("invalid value for option %s: %v", key, err))
	}
	return r
}

// SetOptions applies a whole option bag in sorted name order.
func (r *Request) SetOptions(opts map[string]any) *Request {
	names := make([]string, 0, len(opts))
	for k := range opts {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		r.SetOption(name, opts[name])
	}
	return r
}

// Execute runs the request through the default Exchanger.
func (r *Request) Execute(ctx context.Context) *Result {
	return defaultExchanger.Execute(ctx, r)
}

func (r *Request) Method() string { return r.method }
func (r *Request) URL() string { return r.url }
func (r *Request) IsTLS() bool { return r.tls }
func (r *Request) Params() Params { return r.params.Clone() }
func (r *Request) Headers() Headers { return r.headers.Clone() }
func (r *Request) Cookie() string { return r.cookie }
func (r *Request) Timeout() time.Duration { return r.timeout }
func (r *Request) Options() Options { return r.opts.clone() }
func (r *Request) Executed() bool { return r.executed }

// Body returns the raw string body, if one was set.
func (r *Request) Body() (string, bool) { return r.body, r.rawBody }

// BasicAuth returns the configured credentials.
func (r *Request) BasicAuth() (username, password string, ok bool) {
	return r.username, r.password, r.username != ""
}

// Err returns the first validation error recorded by a setter.
func (r *Request) Err() *ExchangeError { return r.err }

// QueryString returns the request data in its url-encoded form. A raw
// body is returned as is.
func (r *Request) QueryString() string {
	if r.rawBody {
		return r.body
	}
	return r.params.Encode()
}

// hasData reports whether any request data is present.
func (r *Request) hasData() bool {
	if r.rawBody {
		return r.body != ""
	}
	return len(r.params) > 0
}

// validate checks the definition before any I/O.
func (r *Request) validate() *ExchangeError {
	if r.err != nil {
		return r.err
	}
	if r.method == "" {
		return validationError("method is not set")
	}
	if r.url == "" {
		return validationError("url is not set")
	}
	return nil
}

// IsValidMethod reports whether m (upper case) is a supported method.
func IsValidMethod(m string) bool {
	for _, allowed := range Methods {
		if m == allowed {
			return true
		}
	}
	return false
}

// NormalizeURL trims the URL and forces a scheme: "https:" marks TLS, and
// a URL without an http scheme gets "http://" prepended. Normalizing an
// already normalized URL returns it unchanged.
func NormalizeURL(rawURL string) (string, bool) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", false
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "https:") {
		return u, true
	}
	if !strings.HasPrefix(lower, "http:") {
		u = "http://" + u
	}
	return u, false
}

// appendQuery appends an encoded query to u with '?' or '&'.
func appendQuery(u, query string) string {
	if query == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + query
}

// bodiless reports whether data for method goes on the query string.
func bodiless(method string) bool {
	return method == "GET" || method == "HEAD"
}
