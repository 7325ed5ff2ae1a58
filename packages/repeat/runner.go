package repeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"golang.org/x/time/rate"
)

// Factory builds the request for one iteration. Requests are single use,
// so each iteration needs a fresh one.
type Factory func(iteration int) *http.Request

// Observer is called after every exchange, in order.
type Observer func(iteration int, req *http.Request, res *http.Result)

// Runner executes the same request repeatedly, one exchange at a time.
type Runner struct {
	config    *Config
	exchanger *http.Exchanger
	reporter  *Reporter
	observer  Observer
	metrics   *Metrics
	logger    *slog.Logger
}

// RunnerOption configures the runner
type RunnerOption func(*Runner)

func WithExchanger(ex *http.Exchanger) RunnerOption {
	return func(r *Runner) {
		r.exchanger = ex
	}
}

// WithReporter prints a header, progress and a summary through rep.
func WithReporter(rep *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = rep
	}
}

func WithObserver(fn Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = fn
	}
}

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner. A nil config falls back to DefaultConfig.
func NewRunner(config *Config, opts ...RunnerOption) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	r := &Runner{
		config:  config,
		metrics: NewMetrics(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.exchanger == nil {
		r.exchanger = http.NewExchanger(http.WithLogger(r.logger))
	}
	return r
}

// Result holds the final result of a run.
type Result struct {
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
	// Stopped is set when StopOnError ended the run early.
	Stopped bool
}

// HasThresholdFailures returns true if any thresholds failed
func (r *Result) HasThresholdFailures() bool {
	for _, tr := range r.Thresholds {
		if !tr.Passed {
			return true
		}
	}
	return false
}

// Run executes iterations until Count is reached, Duration elapses or ctx
// is cancelled. Cancellation is not an error; the summary covers whatever
// ran.
func (r *Runner) Run(ctx context.Context, target string, factory Factory) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if factory == nil {
		return nil, errors.New("request factory is required")
	}

	var limiter *rate.Limiter
	if r.config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.Rate), 1)
	}

	if r.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Duration)
		defer cancel()
	}

	if r.reporter != nil {
		r.reporter.Header(target, r.config)
	}
	r.logger.Debug("repeat starting", "url", target, "count", r.config.Count,
		"duration", r.config.Duration, "rate", r.config.Rate)

	r.metrics.Start()
	stopped := false
	for i := 0; r.config.Count == 0 || i < r.config.Count; i++ {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		req := factory(i)
		res := r.exchanger.Execute(ctx, req)
		if ctx.Err() != nil && !res.OK() {
			// deadline hit mid-exchange; not part of the sample
			break
		}
		r.metrics.Record(res)
		if r.observer != nil {
			r.observer(i, req, res)
		}
		if r.reporter != nil {
			r.reporter.Progress(r.metrics.Count(), r.config.Count, res)
		}

		if r.config.StopOnError && failed(res) {
			r.logger.Debug("repeat stopping on error", "iteration", i, "error", res.ErrorString(),
				"status", res.StatusCode())
			stopped = true
			break
		}
	}
	r.metrics.Stop()

	summary := r.metrics.GetSummary()
	var thresholdResults []ThresholdResult
	if r.config.Thresholds.HasThresholds() {
		thresholdResults = EvaluateThresholds(summary, r.config.Thresholds)
	}

	if r.reporter != nil {
		r.reporter.ClearProgress()
		r.reporter.Summary(summary, thresholdResults)
	}

	result := &Result{
		Summary:    summary,
		Thresholds: thresholdResults,
		Stopped:    stopped,
	}
	result.Passed = !result.HasThresholdFailures()
	return result, nil
}

// Metrics exposes the live metrics of the runner.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

func failed(res *http.Result) bool {
	if !res.OK() {
		return true
	}
	code, ok := res.Status()
	return !ok || code >= 400
}
