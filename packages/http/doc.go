// Package http implements the request/response engine behind httpdebug.
//
// A Request is built with fluent setters, executed once, and produces an
// immutable Result. Execution goes through one of two transports:
//   - LibraryTransport: go-resty over net/http (TLS, redirects, uploads)
//   - SocketTransport: a hand-written HTTP/1.x exchange over a raw socket,
//     including chunked transfer decoding
//
// Both transports normalize into the same Result, so callers never need to
// know which one ran. Failures are recorded on the Result as data.
package http
