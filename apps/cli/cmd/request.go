package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/httpdebug/packages/core/config"
	"github.com/abdul-hamid-achik/httpdebug/packages/core/env"
	"github.com/abdul-hamid-achik/httpdebug/packages/core/reqfile"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/abdul-hamid-achik/httpdebug/packages/import/curl"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// requestFlags are shared by every command that sends a request.
type requestFlags struct {
	method       string
	data         string
	form         []string
	headers      []string
	cookies      []string
	user         string
	timeout      string
	insecure     bool
	transport    string
	httpVersion  string
	noFollow     bool
	maxRedirects int

	vars     []string
	envFiles []string
	file     string
	curl     string
	oauth2   string
	awsSigV4 string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.method, "request", "X", "", "HTTP method (GET, POST, HEAD, PUT, DELETE, PATCH)")
	fs.StringVarP(&f.data, "data", "d", "", "Raw request body (@file reads it from a file)")
	fs.StringArrayVarP(&f.form, "form", "F", nil, "Form field name=value, repeatable (value @file attaches a file)")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, "Request header \"Name: value\", repeatable")
	fs.StringArrayVarP(&f.cookies, "cookie", "b", nil, "Cookie name=value, repeatable")
	fs.StringVarP(&f.user, "user", "u", "", "Basic auth user[:password]; prompts for the password when omitted")
	fs.StringVar(&f.timeout, "timeout", getEnvString("HTTPDEBUG_TIMEOUT", ""), "Request timeout (e.g., 30s, 2.5) (env: HTTPDEBUG_TIMEOUT)")
	fs.BoolVarP(&f.insecure, "insecure", "k", getEnvBool("HTTPDEBUG_INSECURE", false), "Skip TLS certificate verification (env: HTTPDEBUG_INSECURE)")
	fs.StringVar(&f.transport, "transport", getEnvString("HTTPDEBUG_TRANSPORT", ""), "Transport: auto, library, socket (env: HTTPDEBUG_TRANSPORT)")
	fs.StringVar(&f.httpVersion, "http-version", "", "HTTP version: 1.0 or 1.1")
	fs.BoolVar(&f.noFollow, "no-follow", false, "Do not follow redirects")
	fs.IntVar(&f.maxRedirects, "max-redirects", getEnvInt("HTTPDEBUG_MAX_REDIRECTS", -1), "Maximum redirects to follow (env: HTTPDEBUG_MAX_REDIRECTS)")

	fs.StringArrayVar(&f.vars, "var", nil, "Variable name=value for {{name}} interpolation, repeatable")
	fs.StringArrayVar(&f.envFiles, "env-file", nil, "Load variables from a .env file, repeatable")
	fs.StringVarP(&f.file, "file", "f", "", "Load the request from a YAML request file")
	fs.StringVar(&f.curl, "curl", "", "Load the request from a curl command line")
	fs.StringVar(&f.oauth2, "oauth2", getEnvString("HTTPDEBUG_OAUTH2", ""), "Fetch a bearer token first: \"client_credentials <tokenUrl> <clientId> <clientSecret> [scopes]\" (env: HTTPDEBUG_OAUTH2)")
	fs.StringVar(&f.awsSigV4, "aws-sigv4", getEnvString("HTTPDEBUG_AWS_SIGV4", ""), "Sign with AWS SigV4: \"accessKey:secretKey:region:service[:sessionToken]\" (env: HTTPDEBUG_AWS_SIGV4)")
}

// base returns the request file the flags start from: a YAML file, a curl
// command, or an empty file filled from the positional arguments.
func (f *requestFlags) base(args []string) (*reqfile.File, error) {
	if f.file != "" && f.curl != "" {
		return nil, withExit(ExitUsageError, fmt.Errorf("--file and --curl cannot be combined"))
	}

	var (
		file *reqfile.File
		err  error
	)
	switch {
	case f.file != "":
		file, err = reqfile.Load(f.file)
		if err != nil {
			return nil, withExit(ExitConfigError, err)
		}
	case f.curl != "":
		file, err = curl.NewConverter(curl.WithAssertions(false)).ConvertCommand(f.curl)
		if err != nil {
			return nil, withExit(ExitUsageError, err)
		}
	default:
		file = &reqfile.File{}
	}

	switch len(args) {
	case 0:
	case 1:
		file.URL = args[0]
	case 2:
		file.Method = strings.ToUpper(args[0])
		file.URL = args[1]
	default:
		return nil, withExit(ExitUsageError, fmt.Errorf("expected [METHOD] <url>, got %d arguments", len(args)))
	}
	if file.URL == "" {
		return nil, withExit(ExitUsageError, reqfile.ErrNoURL)
	}
	return file, nil
}

// apply layers the config file defaults under, and the flags over, file.
func (f *requestFlags) apply(file *reqfile.File, cfg *config.Config, prompt passwordPrompt) error {
	if f.method != "" {
		file.Method = strings.ToUpper(f.method)
	}

	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return withExit(ExitUsageError, fmt.Errorf("invalid header %q (want \"Name: value\")", h))
		}
		file.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	names := make([]string, 0, len(cfg.Headers))
	for name := range cfg.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !file.Headers.Has(name) {
			file.Headers.Add(name, cfg.Headers[name])
		}
	}

	if f.data != "" && len(f.form) > 0 {
		return withExit(ExitUsageError, fmt.Errorf("--data and --form cannot be combined"))
	}
	if f.data != "" {
		body, err := readData(f.data)
		if err != nil {
			return withExit(ExitUsageError, err)
		}
		file.Body = body
		file.Data = nil
		if f.method == "" && file.Method == "" {
			file.Method = "POST"
		}
	}
	if len(f.form) > 0 {
		file.Body = ""
		for _, field := range f.form {
			name, value, ok := strings.Cut(field, "=")
			if !ok || name == "" {
				return withExit(ExitUsageError, fmt.Errorf("invalid form field %q (want name=value)", field))
			}
			file.Data.Set(name, value)
		}
		if f.method == "" && file.Method == "" {
			file.Method = "POST"
		}
	}

	if len(f.cookies) > 0 {
		cookies := f.cookies
		if file.Cookie != "" {
			cookies = append([]string{file.Cookie}, cookies...)
		}
		file.Cookie = strings.Join(cookies, ";")
	} else if file.Cookie == "" {
		file.Cookie = cfg.Cookie
	}

	if f.user != "" {
		user, pass, ok := strings.Cut(f.user, ":")
		if !ok && prompt != nil {
			p, err := prompt(user)
			if err != nil {
				return withExit(ExitUsageError, err)
			}
			pass = p
		}
		file.Auth = &reqfile.Auth{Username: user, Password: pass}
	}
	if f.timeout != "" {
		file.Timeout = f.timeout
	}

	opts := cfg.RequestOptions()
	delete(opts, "header")
	delete(opts, "cookie")
	for k, v := range file.Options {
		opts[k] = v
	}
	if file.Timeout == "" {
		if t, ok := opts["timeout"]; ok {
			file.Timeout = fmt.Sprint(t)
		}
	}
	delete(opts, "timeout")

	if f.insecure {
		opts["verify_tls"] = false
	}
	switch f.transport {
	case "":
	case config.TransportAuto, config.TransportLibrary:
		opts["use_library"] = true
	case config.TransportSocket:
		opts["use_library"] = false
	default:
		return withExit(ExitUsageError, fmt.Errorf("unknown transport %q (want auto, library or socket)", f.transport))
	}
	if f.httpVersion != "" {
		opts["http_version"] = f.httpVersion
	}
	if f.noFollow {
		opts["follow_redirects"] = false
	}
	if f.maxRedirects >= 0 {
		opts["max_redirects"] = f.maxRedirects
	}
	if f.awsSigV4 != "" {
		opts["aws_sigv4"] = f.awsSigV4
	}
	file.Options = opts
	return nil
}

// resolver collects variables from the config, env files, the environment,
// the request file and --var, later sources winning.
func (f *requestFlags) resolver(cfg *config.Config, file *reqfile.File) (*env.Resolver, error) {
	paths := f.envFiles
	if cfg.EnvFile != "" {
		paths = append([]string{cfg.EnvFile}, paths...)
	}
	dotenv, err := env.LoadDotEnvFiles(false, paths...)
	if err != nil {
		return nil, withExit(ExitConfigError, err)
	}

	configVars := make(map[string]any, len(cfg.Variables))
	for k, v := range cfg.Variables {
		configVars[k] = v
	}

	r := env.NewResolver()
	r.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	r.SetVariables(env.MergeVariables(
		configVars,
		dotenv,
		env.LoadSystemEnv(env.SystemPrefix),
		file.Variables,
		env.ParseAssignments(f.vars),
	))
	return r, nil
}

// build prepares the request file and its resolver in one step.
func (f *requestFlags) build(args []string) (*reqfile.File, *env.Resolver, error) {
	file, err := f.base(args)
	if err != nil {
		return nil, nil, err
	}
	if err := f.apply(file, cfg, terminalPrompt(os.Stdin, os.Stderr)); err != nil {
		return nil, nil, err
	}
	r, err := f.resolver(cfg, file)
	if err != nil {
		return nil, nil, err
	}
	return file, r, nil
}

// tokenProvider returns the OAuth2 provider described by --oauth2, or nil
// when the flag is unset.
func (f *requestFlags) tokenProvider(resolver *env.Resolver) (*oauth2.Provider, error) {
	if f.oauth2 == "" {
		return nil, nil
	}
	c, err := oauth2.ParseArgs(resolver.Resolve(f.oauth2))
	if err != nil {
		return nil, withExit(ExitUsageError, err)
	}
	return oauth2.NewProvider(c, oauth2.WithExchanger(http.NewExchanger(http.WithLogger(logger)))), nil
}

// authorize sets the Authorization header of file from p. A nil provider
// leaves file unchanged.
func authorize(ctx context.Context, p *oauth2.Provider, file *reqfile.File) error {
	if p == nil {
		return nil
	}
	token, err := p.Token(ctx)
	if err != nil {
		return withExit(ExitNetworkError, fmt.Errorf("oauth2: %w", err))
	}
	file.Headers.Set("Authorization", token.Header())
	return nil
}

// passwordPrompt asks for the password of user.
type passwordPrompt func(user string) (string, error)

// terminalPrompt reads a password without echo when in is a terminal.
// Otherwise it returns nil and the password stays empty.
func terminalPrompt(in *os.File, out io.Writer) passwordPrompt {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(user string) (string, error) {
		fmt.Fprintf(out, "Enter host password for user '%s': ", user)
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pass), nil
	}
}

// readData returns s, or the contents of the file it names with a leading @.
func readData(s string) (string, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read data: %w", err)
	}
	return string(b), nil
}

// exitCodeFor maps a failed exchange onto an exit code.
func exitCodeFor(err *http.ExchangeError) int {
	if err.IsValidation() {
		return ExitRequestError
	}
	return ExitNetworkError
}
