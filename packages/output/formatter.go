package output

import (
	"fmt"

	"github.com/abdul-hamid-achik/httpdebug/packages/assertions"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
)

// Capture is a named value extracted from a result.
type Capture struct {
	Name  string
	Value any
}

// Exchange bundles one request with its outcome and the checks run on it.
type Exchange struct {
	Request    *http.Request
	Result     *http.Result
	Captures   []Capture
	Assertions []*assertions.Result
}

// Passed reports whether every assertion passed.
func (e *Exchange) Passed() bool {
	for _, a := range e.Assertions {
		if !a.Passed {
			return false
		}
	}
	return true
}

// Formatter renders exchanges.
type Formatter interface {
	FormatExchange(ex *Exchange)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that buffer output.
type Flushable interface {
	Flush() error
}

// New returns the formatter registered under format.
func New(format string, opts ...ConsoleOption) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(opts...), nil
	case "json":
		c := NewConsoleFormatter(opts...)
		return NewJSONFormatter(JSONWithWriter(c.writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console or json)", format)
	}
}

// formatValue formats a value for display, summarizing large values.
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
