package http

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	crlf            = "\r\n"
	headTerminator  = "\r\n\r\n"
)

var hostPattern = regexp.MustCompile(`(?i)^(https?)://([^:/?#]+)(?::(\d+))?`)

// endpoint is the scheme/host/port triple the socket transport dials.
type endpoint struct {
	host   string
	port   int
	tls    bool
	prefix int
}

func (e endpoint) address() string {
	return e.host + ":" + strconv.Itoa(e.port)
}

func (e endpoint) defaultPort() bool {
	return (e.tls && e.port == 443) || (!e.tls && e.port == 80)
}

// hostHeader is the Host value, carrying the port only when it is not
// the scheme default.
func (e endpoint) hostHeader() string {
	if e.defaultPort() {
		return e.host
	}
	return e.address()
}

func parseEndpoint(rawURL string) (endpoint, error) {
	m := hostPattern.FindStringSubmatchIndex(rawURL)
	if m == nil || m[4] < 0 || m[5] == m[4] {
		return endpoint{}, fmt.Errorf("%w: %s", ErrNoHost, rawURL)
	}
	ep := endpoint{
		host:   rawURL[m[4]:m[5]],
		tls:    strings.EqualFold(rawURL[m[2]:m[3]], "https"),
		prefix: m[1],
	}
	switch {
	case m[6] >= 0:
		port, err := strconv.Atoi(rawURL[m[6]:m[7]])
		if err != nil || port <= 0 || port > 65535 {
			return endpoint{}, fmt.Errorf("%w: invalid port in %s", ErrNoHost, rawURL)
		}
		ep.port = port
	case ep.tls:
		ep.port = 443
	default:
		ep.port = 80
	}
	return ep, nil
}

// requestTarget returns the origin-form target ("/path?query") of a URL
// whose authority ends at prefix.
func requestTarget(rawURL string, prefix int) string {
	target := rawURL[prefix:]
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return target
}

// wireRequest is a request serialized for the socket.
type wireRequest struct {
	head string
	body []byte
}

func (w wireRequest) bytes() []byte {
	out := make([]byte, 0, len(w.head)+len(w.body))
	out = append(out, w.head...)
	return append(out, w.body...)
}

// composeRequest builds the request line, headers and body sent by the
// socket transport.
func composeRequest(r *Request, ep endpoint) (wireRequest, error) {
	target := requestTarget(r.url, ep.prefix)
	headers := r.headers.Clone()

	var body []byte
	if bodiless(r.method) {
		target = appendQuery(target, r.QueryString())
	} else {
		contentType := contentTypeForm
		switch {
		case !r.rawBody && r.params.HasAttachments():
			buf, ct, err := BuildMultipartBody(r.params, r.baseDir)
			if err != nil {
				return wireRequest{}, err
			}
			body = buf.Bytes()
			contentType = ct
		case r.rawBody:
			body = []byte(r.body)
			if ct := headers.Get("Content-Type"); ct != "" {
				contentType = ct
			}
		default:
			body = []byte(r.params.Encode())
		}
		headers.Set("Content-Type", contentType)
		headers.Set("Content-Length", strconv.Itoa(len(body)))
	}

	if r.username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(r.username + ":" + r.password))
		headers.Set("Authorization", "Basic "+token)
	}
	if r.cookie != "" {
		headers.Set("Cookie", r.cookie)
	}

	var sb strings.Builder
	sb.WriteString(r.method + " " + target + " HTTP/" + r.opts.HTTPVersion + crlf)
	if !headers.Has("Host") {
		sb.WriteString("Host: " + ep.hostHeader() + crlf)
	}
	sb.WriteString(headers.String())
	sb.WriteString(crlf)
	return wireRequest{head: sb.String(), body: body}, nil
}

// splitResponse cuts a raw response at the first blank line. Without one
// the whole buffer is the head.
func splitResponse(raw []byte) (head string, body []byte, complete bool) {
	i := bytes.Index(raw, []byte(headTerminator))
	if i < 0 {
		return string(raw), nil, false
	}
	return string(raw[:i]), raw[i+len(headTerminator):], true
}

// splitHeadChain consumes up to hops consecutive response head blocks from
// the front of stream. It returns every block seen, the last of which
// belongs to the final response, and the remaining body.
func splitHeadChain(stream []byte, hops int) (heads []string, body []byte) {
	rest := stream
	for i := 0; i < hops && bytes.HasPrefix(rest, []byte("HTTP/")); i++ {
		idx := bytes.Index(rest, []byte(headTerminator))
		if idx < 0 {
			break
		}
		heads = append(heads, string(rest[:idx]))
		rest = rest[idx+len(headTerminator):]
	}
	return heads, rest
}

// responseComplete reports whether data already holds the whole response,
// judged from Content-Length or the terminating chunk. Responses without
// framing are read until the peer closes.
func responseComplete(data []byte, headOnly bool) bool {
	head, body, ok := splitResponse(data)
	if !ok {
		return false
	}
	statusLine, headers := ParseResponseHead(head)
	if headOnly {
		return true
	}
	if _, code, ok := parseStatusLine(statusLine); ok && (code < 200 || code == 204 || code == 304) {
		return true
	}
	if cl := headers.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		return err == nil && len(body) >= n
	}
	if strings.Contains(strings.ToLower(headers.Get("Transfer-Encoding")), "chunked") {
		return bytes.HasSuffix(body, []byte("0\r\n\r\n"))
	}
	return false
}

// ValidatePathWithinBase reports an error when path resolves outside
// baseDir. An empty baseDir allows any path.
func ValidatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

// resolveAttachment turns an "@file" value into a path, relative to
// baseDir when one is set.
func resolveAttachment(path, baseDir string) (string, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	if err := ValidatePathWithinBase(path, baseDir); err != nil {
		return "", err
	}
	return path, nil
}

// BuildMultipartBody creates a multipart form data body from params. Values
// prefixed with '@' are attached as files.
func BuildMultipartBody(params Params, baseDir string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range params {
		path, isFile := attachmentPath(field.Value)
		if !isFile {
			if err := writer.WriteField(field.Key, paramString(field.Value)); err != nil {
				return nil, "", err
			}
			continue
		}

		filePath, err := resolveAttachment(path, baseDir)
		if err != nil {
			return nil, "", err
		}

		file, err := os.Open(filePath)
		if err != nil {
			return nil, "", err
		}

		part, err := writer.CreateFormFile(field.Key, filepath.Base(filePath))
		if err != nil {
			file.Close()
			return nil, "", err
		}

		_, err = io.Copy(part, file)
		file.Close()
		if err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
