package cmd

import "strconv"

// Exit codes for the httpdebug CLI
const (
	// ExitSuccess indicates the request completed and every check passed
	ExitSuccess = 0

	// ExitRequestError indicates the request could not be built or sent
	ExitRequestError = 1

	// ExitExpectationFailed indicates an --expect check failed
	ExitExpectationFailed = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code up to Execute. A nil err exits quietly.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExit(code int, err error) error {
	return &exitError{code: code, err: err}
}
