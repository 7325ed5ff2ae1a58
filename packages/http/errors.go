package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Error codes for failures that carry no errno. The transport numbers
// follow curl so results from both transports read the same.
const (
	CodeValidation  = -1
	CodeTransport   = 1
	CodeResolveHost = 6
	CodeConnect     = 7
	CodeTimeout     = 28
	CodeTLS         = 35
	CodeAborted     = 42
	CodeEmptyReply  = 52
	CodeSend        = 55
	CodeReceive     = 56
)

var (
	// ErrNoHost is returned when a host cannot be extracted from the URL.
	ErrNoHost = errors.New("host set error")
	// ErrNotJSON is returned by Result.JSON for bodies that do not start
	// with '{' or '['.
	ErrNotJSON = errors.New("response body is not JSON")
)

// ExchangeError is the {code, message} pair recorded on a failed Result.
type ExchangeError struct {
	Code    int
	Message string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%d:%s", e.Code, e.Message)
}

// IsValidation reports whether the error was raised before any I/O.
func (e *ExchangeError) IsValidation() bool {
	return e.Code == CodeValidation
}

func validationError(format string, args ...any) *ExchangeError {
	return &ExchangeError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// classifyError maps a transport failure onto an ExchangeError. The errno
// wins when the failure carries one; fallback is the given code.
func classifyError(err error, fallback int) *ExchangeError {
	if err == nil {
		return nil
	}
	msg := err.Error()

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return &ExchangeError{Code: int(errno), Message: msg}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ExchangeError{Code: CodeResolveHost, Message: msg}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &ExchangeError{Code: CodeTimeout, Message: msg}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ExchangeError{Code: CodeTimeout, Message: msg}
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return &ExchangeError{Code: CodeTLS, Message: msg}
	}

	return &ExchangeError{Code: fallback, Message: msg}
}
