// Package output renders exchange results.
//
// Supported output formats:
//   - Console: colored terminal output with pretty-printed JSON bodies
//   - JSON: one machine-readable document per flush
//
// Each formatter implements Formatter. The JSON formatter buffers and also
// implements Flushable.
package output
