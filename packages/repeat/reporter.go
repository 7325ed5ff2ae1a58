package repeat

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/fatih/color"
)

// Reporter prints repeat progress and summaries.
type Reporter struct {
	writer     io.Writer
	noColor    bool
	noProgress bool
	verbose    bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
	bold   *color.Color
	dim    *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

// WithWriter sets the output writer
func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithNoColor disables colored output
func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithNoProgress disables the live progress line
func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = noProgress
	}
}

// WithVerbose prints one line per exchange instead of a progress line.
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.noColor {
		color.NoColor = true
	}
	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)
	r.dim = color.New(color.Faint)

	return r
}

// Header prints the run target and settings.
func (r *Reporter) Header(target string, config *Config) {
	fmt.Fprintln(r.writer)
	r.cyan.Fprintf(r.writer, "Repeating: %s\n", target)

	var details []string
	if config.Count > 0 {
		details = append(details, fmt.Sprintf("Count: %d", config.Count))
	}
	if config.Duration > 0 {
		details = append(details, fmt.Sprintf("Duration: %s", formatDuration(config.Duration)))
	}
	if config.Rate > 0 {
		details = append(details, fmt.Sprintf("Rate: %.1f req/s", config.Rate))
	}
	if config.StopOnError {
		details = append(details, "Stop on error")
	}
	fmt.Fprintf(r.writer, "%s\n\n", strings.Join(details, " | "))
}

// Progress prints the state after one exchange.
func (r *Reporter) Progress(done int64, count int, res *http.Result) {
	if r.verbose {
		r.exchangeLine(done, res)
		return
	}
	if r.noProgress {
		return
	}

	fmt.Fprint(r.writer, "\r\033[K")
	if count > 0 {
		fmt.Fprintf(r.writer, "Progress %s/%s", formatNumber(done), formatNumber(int64(count)))
	} else {
		fmt.Fprintf(r.writer, "Progress %s", formatNumber(done))
	}
	r.dim.Fprintf(r.writer, "  last: %s", describe(res))
}

func (r *Reporter) exchangeLine(n int64, res *http.Result) {
	fmt.Fprintf(r.writer, "#%-5d ", n)
	switch {
	case !res.OK():
		r.red.Fprintf(r.writer, "%s", res.ErrorString())
	case res.StatusCode() >= 400:
		r.yellow.Fprintf(r.writer, "%d", res.StatusCode())
	default:
		r.green.Fprintf(r.writer, "%d", res.StatusCode())
	}
	fmt.Fprintf(r.writer, " %s\n", formatLatency(res.Duration()))
}

func describe(res *http.Result) string {
	if !res.OK() {
		return res.ErrorString()
	}
	return fmt.Sprintf("%d in %s", res.StatusCode(), formatLatency(res.Duration()))
}

// ClearProgress clears the progress line
func (r *Reporter) ClearProgress() {
	if r.noProgress || r.verbose {
		return
	}
	fmt.Fprint(r.writer, "\r\033[K")
}

// Summary prints the final summary
func (r *Reporter) Summary(summary *Summary, thresholdResults []ThresholdResult) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%s", formatNumber(summary.TotalRequests))
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", summary.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.green.Fprintf(r.writer, "%s", formatNumber(summary.SuccessCount))
	fmt.Fprintf(r.writer, " (%.1f%%)\n", summary.SuccessRate*100)

	errCount := summary.HTTPErrorCount + summary.FailureCount
	fmt.Fprintf(r.writer, "Failed:     ")
	if errCount > 0 {
		r.red.Fprintf(r.writer, "%s", formatNumber(errCount))
	} else {
		fmt.Fprintf(r.writer, "%s", formatNumber(errCount))
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", summary.ErrorRate*100)

	if summary.TimeoutCount > 0 {
		fmt.Fprintf(r.writer, "Timeouts:   ")
		r.yellow.Fprintf(r.writer, "%s\n", formatNumber(summary.TimeoutCount))
	}

	if len(summary.Statuses) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "STATUS CODES")
		for _, sc := range summary.Statuses {
			c := r.green
			if sc.Code >= 400 {
				c = r.red
			} else if sc.Code >= 300 {
				c = r.yellow
			}
			fmt.Fprint(r.writer, "  ")
			c.Fprintf(r.writer, "%d", sc.Code)
			fmt.Fprintf(r.writer, ": %s\n", formatNumber(sc.Count))
		}
	}

	if len(summary.ErrorCodes) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "ERRORS")
		for _, ec := range summary.ErrorCodes {
			fmt.Fprint(r.writer, "  ")
			r.red.Fprintf(r.writer, "code %d", ec.Code)
			fmt.Fprintf(r.writer, ": %s\n", formatNumber(ec.Count))
		}
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p95: %-6s | p99: %-6s | max: %s\n",
		formatLatencyMs(summary.P50),
		formatLatencyMs(summary.P95),
		formatLatencyMs(summary.P99),
		formatLatencyMs(summary.Max))
	fmt.Fprintf(r.writer, "  min: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(summary.Min),
		formatLatencyMs(summary.Mean),
		formatLatencyMs(summary.StdDev))

	if len(thresholdResults) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		allPassed := true
		for _, tr := range thresholdResults {
			if tr.Passed {
				r.green.Fprintf(r.writer, "  ✓ ")
			} else {
				r.red.Fprintf(r.writer, "  ✗ ")
				allPassed = false
			}
			fmt.Fprintf(r.writer, "%s %s    (actual: %s)\n", tr.Name, tr.Expected, tr.Actual)
		}

		fmt.Fprintln(r.writer)
		if allPassed {
			r.green.Fprintln(r.writer, "All thresholds passed!")
		} else {
			r.red.Fprintln(r.writer, "Some thresholds failed!")
		}
	}

	fmt.Fprintln(r.writer)
}

// JSONSummary outputs the summary as JSON
func (r *Reporter) JSONSummary(summary *Summary, thresholdResults []ThresholdResult) error {
	statuses := make(map[string]int64, len(summary.Statuses))
	for _, sc := range summary.Statuses {
		statuses[fmt.Sprint(sc.Code)] = sc.Count
	}
	errorCodes := make(map[string]int64, len(summary.ErrorCodes))
	for _, ec := range summary.ErrorCodes {
		errorCodes[fmt.Sprint(ec.Code)] = ec.Count
	}

	output := map[string]any{
		"duration": summary.Duration.String(),
		"requests": map[string]any{
			"total":      summary.TotalRequests,
			"success":    summary.SuccessCount,
			"httpErrors": summary.HTTPErrorCount,
			"failed":     summary.FailureCount,
			"timeouts":   summary.TimeoutCount,
		},
		"rates": map[string]any{
			"rps":         summary.RPS,
			"successRate": summary.SuccessRate,
			"errorRate":   summary.ErrorRate,
		},
		"latency": map[string]any{
			"p50":    summary.P50.Milliseconds(),
			"p95":    summary.P95.Milliseconds(),
			"p99":    summary.P99.Milliseconds(),
			"min":    summary.Min.Milliseconds(),
			"max":    summary.Max.Milliseconds(),
			"mean":   summary.Mean.Milliseconds(),
			"stddev": summary.StdDev.Milliseconds(),
		},
		"statuses":   statuses,
		"errorCodes": errorCodes,
	}

	if len(thresholdResults) > 0 {
		thresholds := make([]map[string]any, len(thresholdResults))
		for i, tr := range thresholdResults {
			thresholds[i] = map[string]any{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// Error prints an error message
func (r *Reporter) Error(format string, args ...any) {
	r.red.Fprintf(r.writer, "Error: "+format+"\n", args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dμs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// formatLatencyMs formats latency in milliseconds
func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	if ms < 1 {
		return fmt.Sprintf("%.2f", ms)
	}
	if ms < 10 {
		return fmt.Sprintf("%.1f", ms)
	}
	return fmt.Sprintf("%.0f", ms)
}

// formatNumber formats a number with commas
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}

	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	start := len(s) % 3
	if start == 0 {
		start = 3
	}

	result = append(result, s[:start]...)
	for i := start; i < len(s); i += 3 {
		result = append(result, ',')
		result = append(result, s[i:i+3]...)
	}

	return string(result)
}
