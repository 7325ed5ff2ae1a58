package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/assertions"
	"github.com/abdul-hamid-achik/httpdebug/packages/capture"
	"github.com/abdul-hamid-achik/httpdebug/packages/core/env"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/abdul-hamid-achik/httpdebug/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	sendFlags requestFlags

	sendOutputFlag       string
	sendIncludeFlag      bool
	sendVerboseFlag      bool
	sendRawFlag          bool
	sendBodyOnlyFlag     bool
	sendExtractFlags     []string
	sendExpectFlags      []string
	sendExpectStatusFlag string
	sendSchemaFlag       string
	sendWatchFlag        bool
)

var sendCmd = &cobra.Command{
	Use:   "send [METHOD] <url>",
	Short: "Send one request and print the response",
	Long: `Send one HTTP request and print the status line, headers and body of
the response.

Examples:
  httpdebug send example.com
  httpdebug send POST https://api.example.com/users -d '{"name":"ada"}' -H 'Content-Type: application/json'
  httpdebug send https://api.example.com/search -F q=shoes -F page=2
  httpdebug send https://example.com --transport socket -v
  httpdebug send -f login.request.yaml --var password=secret --extract token=body.token
  httpdebug send https://api.example.com/health --expect-status 2xx --expect 'body.ok == true'
  httpdebug send --curl "curl -X POST https://example.com -d a=1"
  httpdebug send -f users.request.yaml --watch`,
	Args: cobra.MaximumNArgs(2),
	RunE: sendCommand,
}

func init() {
	sendFlags.register(sendCmd.Flags())

	sendCmd.Flags().StringVarP(&sendOutputFlag, "output", "o", getEnvString("HTTPDEBUG_OUTPUT", ""), "Output format: console, json (env: HTTPDEBUG_OUTPUT)")
	sendCmd.Flags().BoolVarP(&sendIncludeFlag, "include", "i", false, "Include response headers in the output")
	sendCmd.Flags().BoolVarP(&sendVerboseFlag, "verbose", "v", getEnvBool("HTTPDEBUG_VERBOSE", false), "Show the request head and transport diagnostics (env: HTTPDEBUG_VERBOSE)")
	sendCmd.Flags().BoolVar(&sendRawFlag, "raw", false, "Print the body bytes without formatting")
	sendCmd.Flags().BoolVar(&sendBodyOnlyFlag, "body-only", false, "Print only the response body")
	sendCmd.Flags().StringArrayVar(&sendExtractFlags, "extract", nil, "Extract a value, e.g. token=body.token or header.ETag, repeatable")
	sendCmd.Flags().StringArrayVar(&sendExpectFlags, "expect", nil, "Check the response, e.g. 'body.id exists', repeatable")
	sendCmd.Flags().StringVar(&sendExpectStatusFlag, "expect-status", "", "Expected status, e.g. 200, 2xx or 200,201")
	sendCmd.Flags().StringVar(&sendSchemaFlag, "schema", "", "Validate the JSON body against a JSON schema file")
	sendCmd.Flags().BoolVarP(&sendWatchFlag, "watch", "w", false, "Re-send whenever the request file changes (requires --file)")
}

func sendCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sendWatchFlag && sendFlags.file == "" {
		return withExit(ExitUsageError, fmt.Errorf("--watch requires --file"))
	}

	err := sendOnce(ctx, cmd.OutOrStdout(), args)
	if !sendWatchFlag {
		return err
	}
	if err != nil {
		reportWatchError(cmd.ErrOrStderr(), err)
	}
	return watchFile(ctx, cmd.OutOrStdout(), sendFlags.file, func() {
		if err := sendOnce(ctx, cmd.OutOrStdout(), args); err != nil {
			reportWatchError(cmd.ErrOrStderr(), err)
		}
	})
}

func reportWatchError(w io.Writer, err error) {
	var ee *exitError
	if errors.As(err, &ee) && ee.err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func newFormatter(w io.Writer) (output.Formatter, error) {
	format := sendOutputFlag
	if format == "" {
		format = cfg.Output
	}
	return output.New(format,
		output.WithWriter(w),
		output.WithVerbose(sendVerboseFlag || cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
		output.WithIncludeHeaders(sendIncludeFlag),
		output.WithRaw(sendRawFlag),
		output.WithBodyOnly(sendBodyOnlyFlag),
	)
}

// sendOnce builds, sends and reports one request.
func sendOnce(ctx context.Context, w io.Writer, args []string) error {
	file, resolver, err := sendFlags.build(args)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(w)
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	captures, err := capture.ParseAll(append(append([]string{}, file.Extract...), sendExtractFlags...))
	if err != nil {
		return withExit(ExitUsageError, err)
	}
	fileChecks, err := parseAssertions(file.Expect)
	if err != nil {
		return withExit(ExitConfigError, err)
	}
	flagChecks, err := parseAssertions(sendExpectFlags)
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	provider, err := sendFlags.tokenProvider(resolver)
	if err != nil {
		return err
	}
	if err := authorize(ctx, provider, file); err != nil {
		return err
	}

	req := file.Build(resolver.Resolve)
	if sendVerboseFlag {
		formatter.FormatHeader(version)
	}
	logger.Debug("sending request", "method", req.Method(), "url", req.URL(),
		"library", req.Options().UseLibrary)

	exchanger := http.NewExchanger(http.WithLogger(logger))
	res := exchanger.Execute(ctx, req)

	ex := &output.Exchange{Request: req, Result: res}
	if res.OK() {
		ex.Captures = extractCaptures(res, captures, resolver)
		ex.Assertions = append(ex.Assertions, assertions.EvaluateAll(res, fileChecks, assertions.WithBaseDir(file.Dir()))...)
		ex.Assertions = append(ex.Assertions, assertions.EvaluateAll(res, flagChecks)...)
		if sendExpectStatusFlag != "" {
			ex.Assertions = append(ex.Assertions, assertions.ExpectStatus(res, sendExpectStatusFlag))
		}
		if sendSchemaFlag != "" {
			ex.Assertions = append(ex.Assertions, assertions.ExpectSchema(res, sendSchemaFlag))
		}
	}

	formatter.FormatExchange(ex)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	if err := res.Err(); err != nil {
		logger.Debug("exchange failed", "code", err.Code, "message", err.Message)
		return withExit(exitCodeFor(err), nil)
	}
	if !ex.Passed() {
		return withExit(ExitExpectationFailed, nil)
	}
	return nil
}

func parseAssertions(exprs []string) ([]*assertions.Assertion, error) {
	out := make([]*assertions.Assertion, 0, len(exprs))
	for _, expr := range exprs {
		a, err := assertions.Parse(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// extractCaptures evaluates captures in order and records each one on the
// resolver so later requests can reference it.
func extractCaptures(res *http.Result, captures []*capture.Capture, resolver *env.Resolver) []output.Capture {
	if len(captures) == 0 {
		return nil
	}
	extractor := capture.NewExtractor(res)
	out := make([]output.Capture, 0, len(captures))
	for _, c := range captures {
		v, ok := extractor.Extract(c)
		if !ok {
			logger.Warn("capture not found", "name", c.Name, "source", c.Source.String())
			continue
		}
		out = append(out, output.Capture{Name: c.Name, Value: v})
		resolver.SetCapture("", c.Name, v)
	}
	return out
}

// watchFile calls fn after every write to path until ctx is done.
func watchFile(ctx context.Context, w io.Writer, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(w, "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(w, "\nFile changed: %s\nRe-sending...\n\n", path)
				fn()
				fmt.Fprintf(w, "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
