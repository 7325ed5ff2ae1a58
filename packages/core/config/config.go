package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selections.
const (
	TransportAuto    = "auto"
	TransportLibrary = "library"
	TransportSocket  = "socket"
)

// Config represents the httpdebug configuration
type Config struct {
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`               // milliseconds
	ConnectTimeout  int               `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int               `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	VerifyTLS       *bool             `json:"verifyTLS,omitempty" yaml:"verifyTLS,omitempty"`
	ReturnHeaders   *bool             `json:"returnHeaders,omitempty" yaml:"returnHeaders,omitempty"`
	Transport       string            `json:"transport,omitempty" yaml:"transport,omitempty"`
	HTTPVersion     string            `json:"httpVersion,omitempty" yaml:"httpVersion,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Cookie          string            `json:"cookie,omitempty" yaml:"cookie,omitempty"`
	Variables       map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	EnvFile         string            `json:"envFile,omitempty" yaml:"envFile,omitempty"`
	Output          string            `json:"output,omitempty" yaml:"output,omitempty"` // console or json
	LogLevel        string            `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetVerifyTLS returns the TLS verification setting, defaulting to true
func (c *Config) GetVerifyTLS() bool {
	return getBool(c.VerifyTLS, true)
}

func (c *Config) GetReturnHeaders() bool {
	return getBool(c.ReturnHeaders, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".httpdebug.yaml",
	".httpdebug.yml",
	"httpdebug.yaml",
	".httpdebug.json",
	"httpdebug.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// loadConfigFromFile loads configuration from a specific file. JSON is
// chosen by extension; everything else is read as YAML.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()
	if isJSON(path) {
		err = json.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Transport {
	case "", TransportAuto, TransportLibrary, TransportSocket:
	default:
		return fmt.Errorf("unknown transport %q (want auto, library or socket)", c.Transport)
	}
	switch c.Output {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown output %q (want console or json)", c.Output)
	}
	switch strings.TrimPrefix(strings.ToUpper(c.HTTPVersion), "HTTP/") {
	case "", "1.0", "1.1":
	default:
		return fmt.Errorf("unsupported http version %q", c.HTTPVersion)
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 || c.MaxRedirects < 0 {
		return fmt.Errorf("timeouts and maxRedirects must not be negative")
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Transport != "" {
		result.Transport = other.Transport
	}
	if other.HTTPVersion != "" {
		result.HTTPVersion = other.HTTPVersion
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.Cookie != "" {
		result.Cookie = other.Cookie
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Output != "" {
		result.Output = other.Output
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.VerifyTLS != nil {
		result.VerifyTLS = other.VerifyTLS
	}
	if other.ReturnHeaders != nil {
		result.ReturnHeaders = other.ReturnHeaders
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Variables = mergeMaps(c.Variables, other.Variables)

	return &result
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// RequestOptions converts the config into the option bag accepted by
// http.Request.SetOptions.
func (c *Config) RequestOptions() map[string]any {
	opts := map[string]any{
		"follow_redirects": c.GetFollowRedirects(),
		"verify_tls":       c.GetVerifyTLS(),
		"return_headers":   c.GetReturnHeaders(),
		"use_library":      c.Transport != TransportSocket,
	}
	if c.Timeout > 0 {
		opts["timeout"] = time.Duration(c.Timeout) * time.Millisecond
	}
	if c.ConnectTimeout > 0 {
		opts["connect_timeout"] = time.Duration(c.ConnectTimeout) * time.Millisecond
	}
	if c.MaxRedirects > 0 {
		opts["max_redirects"] = c.MaxRedirects
	}
	if c.HTTPVersion != "" {
		opts["http_version"] = c.HTTPVersion
	}
	if c.Proxy != "" {
		opts["proxy"] = c.Proxy
	}
	if len(c.Headers) > 0 {
		opts["header"] = c.Headers
	}
	if c.Cookie != "" {
		opts["cookie"] = c.Cookie
	}
	return opts
}

// SaveConfig saves the configuration to a file, as JSON or YAML by
// extension
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
