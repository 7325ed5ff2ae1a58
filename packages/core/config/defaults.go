package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		ConnectTimeout:  30000,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		VerifyTLS:       BoolPtr(true),
		ReturnHeaders:   BoolPtr(true),
		Transport:       TransportAuto,
		HTTPVersion:     "1.1",
		Output:          "console",
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.ConnectTimeout == defaults.ConnectTimeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetVerifyTLS() == defaults.GetVerifyTLS() &&
		c.GetReturnHeaders() == defaults.GetReturnHeaders() &&
		c.Transport == defaults.Transport &&
		c.HTTPVersion == defaults.HTTPVersion &&
		c.Proxy == defaults.Proxy &&
		c.Cookie == defaults.Cookie &&
		len(c.Headers) == 0 &&
		len(c.Variables) == 0 &&
		c.Output == defaults.Output &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
