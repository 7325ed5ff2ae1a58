package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"
)

const (
	// TransportSocket names the manual socket transport.
	TransportSocket = "socket"

	readBufferSize = 32 * 1024
)

// SocketTransport writes a hand-built HTTP/1.x request to a raw TCP (or
// TLS) connection and parses the response bytes itself. It is always
// available.
type SocketTransport struct {
	logger *slog.Logger
}

func NewSocketTransport(logger *slog.Logger) *SocketTransport {
	if logger == nil {
		logger = discardLogger
	}
	return &SocketTransport{logger: logger}
}

func (t *SocketTransport) Name() string { return TransportSocket }

func (t *SocketTransport) Available(*Request) bool { return true }

// Exchange performs one request on a connection scoped to the call. The
// connection is closed on every return path.
func (t *SocketTransport) Exchange(ctx context.Context, req *Request) *Result {
	start := time.Now()
	fail := func(e *ExchangeError) *Result {
		res := errorResult(TransportSocket, e)
		res.duration = time.Since(start)
		return res
	}

	ep, err := parseEndpoint(req.url)
	if err != nil {
		return fail(validationError("%v", err))
	}
	wire, err := composeRequest(req, ep)
	if err != nil {
		return fail(validationError("build request: %v", err))
	}

	opts := req.opts
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	t.logger.Debug("dialing", "address", ep.address(), "tls", ep.tls)
	conn, err := dialer.DialContext(ctx, "tcp", ep.address())
	if err != nil {
		return fail(classifyError(err, CodeConnect))
	}
	defer conn.Close()

	if ep.tls {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         ep.host,
			InsecureSkipVerify: !opts.VerifyTLS,
		})
		hctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		err := tlsConn.HandshakeContext(hctx)
		cancel()
		if err != nil {
			return fail(classifyError(err, CodeTLS))
		}
		t.logger.Debug("tls handshake complete", "server_name", ep.host)
		conn = tlsConn
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if req.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(req.timeout))
	}

	if _, err := conn.Write(wire.bytes()); err != nil {
		return fail(t.ioError(ctx, err, CodeSend))
	}

	raw, readErr := readResponse(conn, req.method == "HEAD")
	head, body, complete := splitResponse(raw)
	if readErr != nil {
		if !complete {
			return fail(t.ioError(ctx, readErr, CodeReceive))
		}
		t.logger.Debug("read failed after response head, keeping partial body",
			"error", readErr, "bytes", len(raw))
	}
	if len(raw) == 0 {
		return fail(&ExchangeError{Code: CodeEmptyReply, Message: "empty reply from server"})
	}

	res := &Result{
		transport:   TransportSocket,
		diagnostics: map[string]any{},
		finalURL:    req.url,
	}
	statusLine, headers := ParseResponseHead(head)
	res.setStatusLine(statusLine)
	if !res.hasStatus {
		t.logger.Debug("malformed status line", "line", statusLine)
	}

	if opts.HTTPVersion == "1.1" && !headers.Has("Content-Length") {
		body = Unchunk(body)
	}
	res.body = DecodeContent(body, headers.Get("Content-Encoding"), t.logger)

	if opts.ReturnHeaders {
		res.headers = headers
		res.requestHead = wire.head
		res.rawHead = []string{head}
	}
	res.duration = time.Since(start)
	return res
}

// ioError reports a cancelled context ahead of the error caused by the
// connection being closed under it.
func (t *SocketTransport) ioError(ctx context.Context, err error, fallback int) *ExchangeError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &ExchangeError{Code: CodeTimeout, Message: ctxErr.Error()}
		}
		return &ExchangeError{Code: CodeAborted, Message: ctxErr.Error()}
	}
	return classifyError(err, fallback)
}

// readResponse reads until the peer closes the connection or the response
// is complete. The bytes read so far are returned with any read error.
func readResponse(conn net.Conn, headOnly bool) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(chunk)
		buf.Write(chunk[:n])
		if n > 0 && responseComplete(buf.Bytes(), headOnly) {
			return buf.Bytes(), nil
		}
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), err
		}
	}
}
