package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/capture"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/abdul-hamid-achik/httpdebug/packages/repeat"
	"github.com/spf13/cobra"
)

var (
	repeatFlags requestFlags

	repeatCountFlag       int
	repeatDurationFlag    string
	repeatRateFlag        float64
	repeatStopOnErrorFlag bool
	repeatThresholdFlag   string
	repeatNoProgressFlag  bool
	repeatJSONFlag        bool
	repeatVerboseFlag     bool
	repeatExtractFlags    []string
)

var repeatCmd = &cobra.Command{
	Use:   "repeat [METHOD] <url>",
	Short: "Send the same request repeatedly and summarize latency",
	Long: `Send the same request over and over, one at a time, and print a latency
report with the status code distribution.

Each iteration builds a fresh request, so {{uuid()}} and {{iteration}}
change between requests and --extract values feed into the next one.

Examples:
  httpdebug repeat https://api.example.com/health -n 100
  httpdebug repeat https://api.example.com/health --duration 30s --rate 5
  httpdebug repeat -f order.request.yaml -n 50 --threshold "p95<200ms,errors<1%"
  httpdebug repeat https://api.example.com/flaky -n 20 --stop-on-error`,
	Args: cobra.MaximumNArgs(2),
	RunE: repeatCommand,
}

func init() {
	repeatFlags.register(repeatCmd.Flags())

	repeatCmd.Flags().IntVarP(&repeatCountFlag, "count", "n", 10, "Number of requests (0 runs until --duration)")
	repeatCmd.Flags().StringVar(&repeatDurationFlag, "duration", "", "Stop after this long (e.g., 30s, 5m)")
	repeatCmd.Flags().Float64Var(&repeatRateFlag, "rate", 0, "Requests per second (0 sends back to back)")
	repeatCmd.Flags().BoolVar(&repeatStopOnErrorFlag, "stop-on-error", false, "Stop at the first failed exchange or 4xx/5xx status")
	repeatCmd.Flags().StringVar(&repeatThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<0.1%\")")
	repeatCmd.Flags().BoolVar(&repeatNoProgressFlag, "no-progress", false, "Disable the live progress line")
	repeatCmd.Flags().BoolVar(&repeatJSONFlag, "json", false, "Print the summary as JSON")
	repeatCmd.Flags().BoolVarP(&repeatVerboseFlag, "verbose", "v", false, "Print one line per request")
	repeatCmd.Flags().StringArrayVar(&repeatExtractFlags, "extract", nil, "Extract a value after each request for use in the next, repeatable")
}

func repeatCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repeatCfg := &repeat.Config{
		Count:       repeatCountFlag,
		Rate:        repeatRateFlag,
		StopOnError: repeatStopOnErrorFlag,
	}
	if repeatDurationFlag != "" {
		d, err := time.ParseDuration(repeatDurationFlag)
		if err != nil {
			return withExit(ExitUsageError, fmt.Errorf("invalid duration %q: %w", repeatDurationFlag, err))
		}
		repeatCfg.Duration = d
	}
	if repeatThresholdFlag != "" {
		t, err := repeat.ParseThresholds(repeatThresholdFlag)
		if err != nil {
			return withExit(ExitUsageError, err)
		}
		repeatCfg.Thresholds = t
	}
	if err := repeatCfg.Validate(); err != nil {
		return withExit(ExitUsageError, err)
	}

	file, resolver, err := repeatFlags.build(args)
	if err != nil {
		return err
	}
	captures, err := capture.ParseAll(append(append([]string{}, file.Extract...), repeatExtractFlags...))
	if err != nil {
		return withExit(ExitUsageError, err)
	}
	provider, err := repeatFlags.tokenProvider(resolver)
	if err != nil {
		return err
	}
	if err := authorize(ctx, provider, file); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	runnerOpts := []repeat.RunnerOption{
		repeat.WithExchanger(http.NewExchanger(http.WithLogger(logger))),
		repeat.WithLogger(logger),
		repeat.WithObserver(func(i int, req *http.Request, res *http.Result) {
			if res.OK() {
				extractCaptures(res, captures, resolver)
			}
		}),
	}
	// the JSON summary is printed on its own after the run
	if !repeatJSONFlag {
		runnerOpts = append(runnerOpts, repeat.WithReporter(repeat.NewReporter(
			repeat.WithWriter(w),
			repeat.WithNoColor(cfg.GetNoColor()),
			repeat.WithNoProgress(repeatNoProgressFlag),
			repeat.WithVerbose(repeatVerboseFlag),
		)))
	}
	runner := repeat.NewRunner(repeatCfg, runnerOpts...)

	target := resolver.Resolve(file.URL)
	result, err := runner.Run(ctx, target, func(i int) *http.Request {
		resolver.SetVariable("iteration", i)
		// tokens may expire during long runs
		if err := authorize(ctx, provider, file); err != nil {
			logger.Warn("token refresh failed", "error", err)
		}
		return file.Build(resolver.Resolve)
	})
	if err != nil {
		return withExit(ExitUsageError, err)
	}

	if repeatJSONFlag {
		jsonReporter := repeat.NewReporter(repeat.WithWriter(w))
		if err := jsonReporter.JSONSummary(result.Summary, result.Thresholds); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	s := result.Summary
	switch {
	case result.HasThresholdFailures():
		return withExit(ExitExpectationFailed, nil)
	case s.TotalRequests > 0 && s.FailureCount == s.TotalRequests:
		return withExit(ExitNetworkError, nil)
	}
	return nil
}
