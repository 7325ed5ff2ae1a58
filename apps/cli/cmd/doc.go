// Package cmd implements the httpdebug CLI commands using Cobra.
//
// Available commands:
//   - send: Send one request and print the response
//   - download: Save a URL to a file
//   - repeat: Send a request repeatedly and report latency
//   - import curl: Convert curl command lines into request files
//   - init: Create a config file and an example request
//   - version: Show version information
//
// Requests come from positional arguments, YAML request files (-f) or curl
// command lines (--curl), with {{variable}} interpolation from .env files,
// the environment and --var.
package cmd
