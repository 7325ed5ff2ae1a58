package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TransportLibrary names the resty-backed transport.
const TransportLibrary = "library"

// LibraryTransport executes requests through a resty client built fresh for
// every exchange, with keep-alives disabled.
type LibraryTransport struct {
	logger *slog.Logger
}

func NewLibraryTransport(logger *slog.Logger) *LibraryTransport {
	if logger == nil {
		logger = discardLogger
	}
	return &LibraryTransport{logger: logger}
}

func (t *LibraryTransport) Name() string { return TransportLibrary }

// Available reports whether the request allows the library transport. It
// has no side effects.
func (t *LibraryTransport) Available(req *Request) bool {
	return t != nil && req.opts.UseLibrary
}

func (t *LibraryTransport) Exchange(ctx context.Context, req *Request) *Result {
	start := time.Now()
	fail := func(e *ExchangeError) *Result {
		res := errorResult(TransportLibrary, e)
		res.duration = time.Since(start)
		return res
	}

	opts := req.opts
	rec := &recordingTransport{next: t.newHTTPTransport(opts)}
	client := resty.NewWithClient(&http.Client{Transport: rec}).
		SetRedirectPolicy(redirectPolicy(opts, t.logger)).
		SetLogger(restyLogger{t.logger})
	if req.timeout > 0 {
		client.SetTimeout(req.timeout)
	}
	if b, err := toBool(opts.Passthrough["DEBUG"]); err == nil && b {
		client.SetDebug(true)
	}
	if b, err := toBool(opts.Passthrough["CLOSE_CONNECTION"]); err == nil && b {
		client.SetCloseConnection(true)
	}

	r := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		EnableTrace()
	for _, f := range req.headers {
		r.SetHeader(f.Name, f.Value)
	}
	if req.cookie != "" {
		r.SetHeader("Cookie", req.cookie)
	}
	if req.username != "" {
		r.SetBasicAuth(req.username, req.password)
	}

	target := req.url
	if bodiless(req.method) {
		target = appendQuery(target, req.QueryString())
	} else if err := setRequestBody(r, req); err != nil {
		return fail(validationError("build request: %v", err))
	}

	resp, err := r.Execute(req.method, target)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return fail(classifyError(err, CodeTransport))
	}
	raw := resp.RawBody()
	defer raw.Close()
	payload, err := io.ReadAll(raw)
	if err != nil {
		return fail(classifyError(err, CodeReceive))
	}

	responseHeads := strings.Join(rec.responseHeads, "")
	heads, body := splitHeadChain(append([]byte(responseHeads), payload...), len(rec.responseHeads))
	if len(heads) > 1 {
		t.logger.Debug("followed redirects", "hops", len(heads)-1)
	}

	res := &Result{
		transport: TransportLibrary,
		finalURL:  target,
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		res.finalURL = resp.RawResponse.Request.URL.String()
	}

	var headers Headers
	if len(heads) > 0 {
		statusLine, h := ParseResponseHead(heads[len(heads)-1])
		res.setStatusLine(statusLine)
		headers = h
	} else {
		res.setStatusLine(resp.Proto() + " " + resp.Status())
	}
	res.body = DecodeContent(body, headers.Get("Content-Encoding"), t.logger)
	if opts.ReturnHeaders {
		res.headers = headers
		res.requestHead = strings.Join(rec.requestHeads, "")
		res.rawHead = heads
	}
	res.diagnostics = traceDiagnostics(resp, res, rec, len(payload))
	res.duration = time.Since(start)
	return res
}

func (t *LibraryTransport) newHTTPTransport(opts Options) *http.Transport {
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		DisableKeepAlives:   true,
		DisableCompression:  true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !opts.VerifyTLS,
		},
	}
	if proxy := opts.Passthrough["PROXY"]; proxy != "" {
		proxyURL, err := neturl.Parse(proxy)
		if err == nil {
			tr.Proxy = http.ProxyURL(proxyURL)
		} else {
			t.logger.Debug("ignoring invalid proxy", "proxy", proxy, "error", err)
		}
	}
	return tr
}

func redirectPolicy(opts Options, logger *slog.Logger) resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if !opts.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) > opts.MaxRedirects {
			logger.Debug("redirect limit reached", "max", opts.MaxRedirects)
			return http.ErrUseLastResponse
		}
		logger.Debug("following redirect", "location", req.URL.String())
		return nil
	})
}

// setRequestBody attaches the request data for methods that carry a body.
func setRequestBody(r *resty.Request, req *Request) error {
	if !req.rawBody && req.params.HasAttachments() {
		fields := make(map[string]string)
		for _, kv := range req.params {
			path, ok := attachmentPath(kv.Value)
			if !ok {
				fields[kv.Key] = paramString(kv.Value)
				continue
			}
			filePath, err := resolveAttachment(path, req.baseDir)
			if err != nil {
				return err
			}
			r.SetFile(kv.Key, filePath)
		}
		r.SetMultipartFormData(fields)
		return nil
	}
	if !req.rawBody || !req.headers.Has("Content-Type") {
		r.SetHeader("Content-Type", contentTypeForm)
	}
	r.SetBody(req.QueryString())
	return nil
}

func traceDiagnostics(resp *resty.Response, res *Result, rec *recordingTransport, downloaded int) map[string]any {
	ti := resp.Request.TraceInfo()
	remote := ""
	if ti.RemoteAddr != nil {
		remote = ti.RemoteAddr.String()
	}
	redirects := len(rec.responseHeads) - 1
	if redirects < 0 {
		redirects = 0
	}
	headerSize, requestSize := 0, 0
	for _, h := range rec.responseHeads {
		headerSize += len(h)
	}
	for _, h := range rec.requestHeads {
		requestSize += len(h)
	}
	return map[string]any{
		"namelookup_time":    ti.DNSLookup.Seconds(),
		"connect_time":       ti.TCPConnTime.Seconds(),
		"tls_handshake_time": ti.TLSHandshake.Seconds(),
		"starttransfer_time": (ti.ConnTime + ti.ServerTime).Seconds(),
		"total_time":         ti.TotalTime.Seconds(),
		"redirect_count":     redirects,
		"size_download":      downloaded,
		"header_size":        headerSize,
		"request_size":       requestSize,
		"url":                res.finalURL,
		"content_type":       resp.Header().Get("Content-Type"),
		"http_code":          resp.StatusCode(),
		"remote_addr":        remote,
	}
}

// recordingTransport serializes the head of every request sent and every
// response received, one entry per hop.
type recordingTransport struct {
	next          http.RoundTripper
	requestHeads  []string
	responseHeads []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.requestHeads = append(rt.requestHeads, formatRequestHead(req))
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	rt.responseHeads = append(rt.responseHeads, formatResponseHead(resp))
	return resp, nil
}

func formatRequestHead(req *http.Request) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s\r\n", req.Method, req.URL.RequestURI(), req.Proto)
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	fmt.Fprintf(&buf, "Host: %s\r\n", host)
	if req.ContentLength > 0 {
		buf.WriteString("Content-Length: " + strconv.FormatInt(req.ContentLength, 10) + "\r\n")
	}
	_ = req.Header.Write(&buf)
	buf.WriteString("\r\n")
	return buf.String()
}

func formatResponseHead(resp *http.Response) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\r\n", resp.Proto, resp.Status)
	if len(resp.TransferEncoding) > 0 {
		buf.WriteString("Transfer-Encoding: " + strings.Join(resp.TransferEncoding, ", ") + "\r\n")
	}
	_ = resp.Header.Write(&buf)
	buf.WriteString("\r\n")
	return buf.String()
}

// restyLogger routes resty's debug output into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
