// Package curl converts curl command lines into request files.
package curl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/core/reqfile"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
)

// Converter converts curl commands to request files.
type Converter struct {
	generateAssertions bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithAssertions configures whether to add a default status expectation.
func WithAssertions(generate bool) Option {
	return func(c *Converter) {
		c.generateAssertions = generate
	}
}

func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		generateAssertions: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl represents a parsed curl command.
type ParsedCurl struct {
	Method          string
	URL             string
	Headers         http.Headers
	Data            []string
	Form            []string
	BasicAuth       string
	Cookies         []string
	Insecure        bool
	FollowRedirects bool
	MaxRedirects    int
	MaxTime         string
	ConnectTimeout  string
	HTTP10          bool
	GetQuery        bool
	Name            string

	explicitMethod bool
}

// Named is a converted command together with its generated name.
type Named struct {
	Name string
	File *reqfile.File
}

// ConvertCommand converts a single curl command.
func (c *Converter) ConvertCommand(curlCmd string) (*reqfile.File, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return nil, err
	}
	return c.ToFile(parsed), nil
}

// ConvertFile converts every command in a file.
func (c *Converter) ConvertFile(path string) ([]Named, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return c.ConvertReader(file)
}

// ConvertReader converts every command read from r. Blank lines and #
// comments are skipped; a trailing backslash continues a command.
func (c *Converter) ConvertReader(r io.Reader) ([]Named, error) {
	commands, err := SplitCommands(r)
	if err != nil {
		return nil, err
	}

	out := make([]Named, 0, len(commands))
	for i, cmd := range commands {
		parsed, err := c.Parse(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to convert command %d: %w", i+1, err)
		}
		out = append(out, Named{Name: sanitizeName(parsed.Name), File: c.ToFile(parsed)})
	}
	return out, nil
}

// SplitCommands splits text into complete commands.
func SplitCommands(r io.Reader) ([]string, error) {
	var commands []string
	var currentCmd strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(line, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(line)
		commands = append(commands, currentCmd.String())
		currentCmd.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	if currentCmd.Len() > 0 {
		commands = append(commands, strings.TrimSpace(currentCmd.String()))
	}
	return commands, nil
}

// flagsWithValue lists the options whose argument must be skipped when the
// option itself is not understood.
var flagsWithValue = map[string]bool{
	"-o": true, "--output": true, "-w": true, "--write-out": true,
	"-x": true, "--proxy": true, "--resolve": true, "--cacert": true,
	"--cert": true, "--key": true, "-c": true, "--cookie-jar": true,
	"-m": true, "--retry": true, "--limit-rate": true,
}

// Parse parses a curl command string into a ParsedCurl struct.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{
		Method:       "GET",
		MaxRedirects: -1,
	}

	tokens := tokenize(strings.TrimSpace(curlCmd))
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no URL specified")
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		var inline string
		hasInline := false
		if strings.HasPrefix(token, "--") {
			if name, value, ok := strings.Cut(token, "="); ok {
				token, inline, hasInline = name, value, true
			}
		}

		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("missing value for %s", token)
			}
			i++
			return tokens[i], nil
		}

		switch token {
		case "-X", "--request":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			parsed.explicitMethod = true

		case "-H", "--header":
			v, err := value()
			if err != nil {
				return nil, err
			}
			if name, val, ok := strings.Cut(v, ":"); ok {
				parsed.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(val))
			}

		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii", "--data-urlencode":
			v, err := value()
			if err != nil {
				return nil, err
			}
			if token == "--data-urlencode" {
				v = urlEncodeData(v)
			}
			parsed.Data = append(parsed.Data, v)

		case "-F", "--form":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.Form = append(parsed.Form, v)

		case "-u", "--user":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.BasicAuth = v

		case "-b", "--cookie":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.Cookies = append(parsed.Cookies, v)

		case "-A", "--user-agent":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.Headers.Set("User-Agent", v)

		case "-e", "--referer":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.Headers.Set("Referer", v)

		case "--max-time":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.MaxTime = v

		case "--connect-timeout":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.ConnectTimeout = v

		case "--max-redirs":
			v, err := value()
			if err != nil {
				return nil, err
			}
			var n int
			if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
				return nil, fmt.Errorf("invalid value for %s: %q", token, v)
			}
			parsed.MaxRedirects = n

		case "--url":
			v, err := value()
			if err != nil {
				return nil, err
			}
			parsed.URL = v

		case "-k", "--insecure":
			parsed.Insecure = true

		case "-L", "--location":
			parsed.FollowRedirects = true

		case "-I", "--head":
			parsed.Method = "HEAD"
			parsed.explicitMethod = true

		case "-G", "--get":
			parsed.GetQuery = true

		case "-0", "--http1.0":
			parsed.HTTP10 = true

		default:
			switch {
			case strings.HasPrefix(token, "-") && len(token) > 1:
				if flagsWithValue[token] && !hasInline && i+1 < len(tokens) {
					i++
				}
			case parsed.URL == "":
				parsed.URL = token
			}
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	switch {
	case parsed.GetQuery:
		if !parsed.explicitMethod {
			parsed.Method = "GET"
		}
	case (len(parsed.Data) > 0 || len(parsed.Form) > 0) && !parsed.explicitMethod:
		parsed.Method = "POST"
	}

	parsed.Name = generateName(parsed.URL, parsed.Method)
	return parsed, nil
}

// ToFile converts a ParsedCurl to a request file.
func (c *Converter) ToFile(parsed *ParsedCurl) *reqfile.File {
	f := &reqfile.File{
		Method:  parsed.Method,
		URL:     parsed.URL,
		Headers: parsed.Headers.Clone(),
		Options: map[string]any{},
	}

	data := strings.Join(parsed.Data, "&")
	switch {
	case parsed.GetQuery && data != "":
		sep := "?"
		if strings.Contains(f.URL, "?") {
			sep = "&"
		}
		f.URL += sep + data
	case len(parsed.Form) > 0:
		for _, field := range parsed.Form {
			name, value, _ := strings.Cut(field, "=")
			f.Data = append(f.Data, http.Param{Key: name, Value: value})
		}
	case data != "":
		f.Body = data
	}

	if parsed.BasicAuth != "" {
		user, pass, _ := strings.Cut(parsed.BasicAuth, ":")
		f.Auth = &reqfile.Auth{Username: user, Password: pass}
	}
	if len(parsed.Cookies) > 0 {
		f.Cookie = strings.Join(parsed.Cookies, ";")
	}
	if parsed.MaxTime != "" {
		f.Timeout = parsed.MaxTime
	}

	// curl does not follow redirects unless asked to.
	f.Options["follow_redirects"] = parsed.FollowRedirects
	if parsed.FollowRedirects && parsed.MaxRedirects >= 0 {
		f.Options["max_redirects"] = parsed.MaxRedirects
	}
	if parsed.Insecure {
		f.Options["verify_tls"] = false
	}
	if parsed.HTTP10 {
		f.Options["http_version"] = "1.0"
	}
	if parsed.ConnectTimeout != "" {
		f.Options["connect_timeout"] = parsed.ConnectTimeout
	}

	if c.generateAssertions {
		f.Expect = []string{"status in 2xx,3xx"}
	}
	return f
}

// ToRequest converts a ParsedCurl directly into a request.
func (c *Converter) ToRequest(parsed *ParsedCurl) *http.Request {
	return c.ToFile(parsed).Build(nil)
}

// urlEncodeData applies curl's --data-urlencode rules: "name=content"
// encodes only the content, a bare string is encoded whole.
func urlEncodeData(v string) string {
	if name, content, ok := strings.Cut(v, "="); ok {
		p := http.Params{{Key: name, Value: content}}
		if name == "" {
			return p.Encode()[1:]
		}
		return p.Encode()
	}
	p := http.Params{{Key: "", Value: v}}
	return p.Encode()[1:]
}

// tokenize splits a command line into words using shell quoting rules.
// Backslashes are literal inside single quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	started := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
				started = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t', '\n', '\r':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}

	if started {
		tokens = append(tokens, current.String())
	}

	return tokens
}

var namePathPattern = regexp.MustCompile(`^(?:https?://)?[^/]+(/[^?#]*)?`)

// generateName derives a file name from the URL path and method.
func generateName(url, method string) string {
	matches := namePathPattern.FindStringSubmatch(url)

	path := "/"
	if len(matches) > 1 && matches[1] != "" {
		path = matches[1]
	}

	path = strings.Trim(path, "/")
	if path == "" {
		path = "root"
	}

	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "-", "_")

	return strings.ToLower(method) + "_" + path
}

var nonIdentPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// sanitizeName sanitizes a name for use as an identifier.
func sanitizeName(name string) string {
	result := nonIdentPattern.ReplaceAllString(name, "_")
	return strings.Trim(result, "_")
}
