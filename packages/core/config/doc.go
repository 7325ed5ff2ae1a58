// Package config handles configuration loading and management for httpdebug.
//
// It provides functionality for:
//   - Loading configuration from .httpdebug.yaml or .httpdebug.json files
//   - Default configuration values
//   - Converting the configuration into request options
package config
