// Package builtin provides the functions available as {{name(args)}} in
// request templates.
//
// Available functions:
//   - now(), timestamp(), timestampMs(), date(layout)
//   - uuid(): random UUID v4
//   - random(min, max), randomString(length), randomEmail()
//   - base64(value), base64Decode(value), basicAuth(user, password)
//   - md5(value), sha256(value)
//   - urlEncode(value), urlDecode(value)
//   - env(name[, fallback])
package builtin
