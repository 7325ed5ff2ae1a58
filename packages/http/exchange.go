package http

import (
	"context"
	"log/slog"
	"time"
)

var discardLogger = slog.New(slog.DiscardHandler)

// Transport executes a validated Request and always returns a Result.
type Transport interface {
	Name() string
	// Available reports whether the transport can serve req. It must not
	// have side effects.
	Available(req *Request) bool
	Exchange(ctx context.Context, req *Request) *Result
}

// Hooks receives the outcome of an execution.
type Hooks interface {
	OnSuccess(res *Result)
	OnFailure(err *ExchangeError)
}

// HookFuncs adapts a pair of closures to Hooks. Nil fields are skipped.
type HookFuncs struct {
	Success func(res *Result)
	Failure func(err *ExchangeError)
}

func (h HookFuncs) OnSuccess(res *Result) {
	if h.Success != nil {
		h.Success(res)
	}
}

func (h HookFuncs) OnFailure(err *ExchangeError) {
	if h.Failure != nil {
		h.Failure(err)
	}
}

// Exchanger picks one transport per request, preferring them in order.
type Exchanger struct {
	transports []Transport
	logger     *slog.Logger
}

type ExchangerOption func(*Exchanger)

// WithLogger sets the logger shared by the default transports.
func WithLogger(logger *slog.Logger) ExchangerOption {
	return func(e *Exchanger) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTransports replaces the transports, in order of preference.
func WithTransports(transports ...Transport) ExchangerOption {
	return func(e *Exchanger) {
		e.transports = transports
	}
}

// NewExchanger returns an Exchanger that prefers the library transport and
// falls back to the socket transport.
func NewExchanger(opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{logger: discardLogger}
	for _, opt := range opts {
		opt(e)
	}
	if e.transports == nil {
		e.transports = []Transport{
			NewLibraryTransport(e.logger),
			NewSocketTransport(e.logger),
		}
	}
	return e
}

var defaultExchanger = NewExchanger()

// Execute validates req, runs it on exactly one transport and fires its
// hooks. Failures are recorded on the Result; Execute never panics on a
// transport error.
func (e *Exchanger) Execute(ctx context.Context, req *Request) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return errorResult("", validationError("request is nil"))
	}
	if req.executed {
		return errorResult("", validationError("request already executed"))
	}
	req.executed = true

	if xerr := req.validate(); xerr != nil {
		return e.finish(req, errorResult("", xerr))
	}
	if req.aws != nil {
		if err := req.signAWS(time.Now()); err != nil {
			return e.finish(req, errorResult("", validationError("%s", err.Error())))
		}
	}

	var chosen Transport
	for _, t := range e.transports {
		if t.Available(req) {
			chosen = t
			break
		}
	}
	if chosen == nil {
		return e.finish(req, errorResult("", validationError("no transport available")))
	}

	e.logger.Debug("executing request",
		"transport", chosen.Name(), "method", req.method, "url", req.url)
	start := time.Now()
	res := chosen.Exchange(ctx, req)
	if res == nil {
		res = errorResult(chosen.Name(), &ExchangeError{Code: CodeTransport, Message: "transport returned no result"})
	}
	res.transport = chosen.Name()
	if res.duration == 0 {
		res.duration = time.Since(start)
	}
	if res.err != nil {
		e.logger.Debug("request failed", "code", res.err.Code, "error", res.err.Message)
	} else {
		e.logger.Debug("request complete", "status", res.status, "bytes", len(res.body), "duration", res.duration)
	}
	return e.finish(req, res)
}

func (e *Exchanger) finish(req *Request, res *Result) *Result {
	if req.hooks == nil {
		return res
	}
	if res.err == nil {
		req.hooks.OnSuccess(res)
	} else {
		req.hooks.OnFailure(res.err)
	}
	return res
}

// Execute runs req on the default Exchanger.
func Execute(ctx context.Context, req *Request) *Result {
	return defaultExchanger.Execute(ctx, req)
}

// Do builds and executes a request in one call. data is applied through
// the "data" option and options through SetOptions.
func Do(ctx context.Context, method, url string, data any, options map[string]any) *Result {
	req := NewRequest(method, url)
	if data != nil {
		req.SetOption("data", data)
	}
	req.SetOptions(options)
	return req.Execute(ctx)
}

func Get(ctx context.Context, url string, data any, options map[string]any) *Result {
	return Do(ctx, "GET", url, data, options)
}

func Post(ctx context.Context, url string, data any, options map[string]any) *Result {
	return Do(ctx, "POST", url, data, options)
}
