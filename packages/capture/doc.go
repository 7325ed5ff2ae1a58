// Package capture extracts values from exchange results.
//
// Expressions read the status, a header, a Set-Cookie value, the body or a
// gjson path inside it, the duration, or a transport diagnostic. Captured
// values can be fed back into the resolver so that a later request can
// reference them as {{name}}.
package capture
