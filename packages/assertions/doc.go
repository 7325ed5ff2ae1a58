// Package assertions checks exchange results against expectations.
//
// Supported checks:
//   - status sets (200, 2xx, 200,201)
//   - header and body comparisons (header.Content-Type contains json)
//   - gjson paths into JSON bodies (body.data.id == 42)
//   - JSON Schema validation of the body (xeipuuv/gojsonschema)
//   - length, type, regex and numeric comparisons
//
// Subjects use the capture expression syntax from package capture.
package assertions
