package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/tidwall/gjson"
)

// JSONOutput is the document written by Flush.
type JSONOutput struct {
	Summary   JSONSummary    `json:"summary"`
	Exchanges []JSONExchange `json:"exchanges"`
	Time      string         `json:"time"`
}

type JSONSummary struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
	Errors int `json:"errors"`
}

type JSONExchange struct {
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Error      *JSONError      `json:"error,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Passed     bool            `json:"passed"`
}

type JSONHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type JSONRequest struct {
	Method  string       `json:"method"`
	URL     string       `json:"url"`
	Headers []JSONHeader `json:"headers,omitempty"`
	Cookie  string       `json:"cookie,omitempty"`
	Body    string       `json:"body,omitempty"`
}

type JSONResponse struct {
	StatusCode  int             `json:"statusCode,omitempty"`
	StatusLine  string          `json:"statusLine"`
	Headers     []JSONHeader    `json:"headers,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	BodyText    string          `json:"bodyText,omitempty"`
	Duration    float64         `json:"duration"`
	Transport   string          `json:"transport"`
	FinalURL    string          `json:"finalUrl,omitempty"`
	Diagnostics map[string]any  `json:"diagnostics,omitempty"`
}

type JSONError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter buffers exchanges and writes them as one document on Flush.
type JSONFormatter struct {
	writer    io.Writer
	exchanges []JSONExchange
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:    os.Stdout,
		exchanges: make([]JSONExchange, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func jsonHeaders(h http.Headers) []JSONHeader {
	if len(h) == 0 {
		return nil
	}
	out := make([]JSONHeader, len(h))
	for i, field := range h {
		out[i] = JSONHeader{Name: field.Name, Value: field.Value}
	}
	return out
}

func (f *JSONFormatter) FormatExchange(ex *Exchange) {
	out := JSONExchange{Passed: ex.Passed()}

	if req := ex.Request; req != nil {
		body, raw := req.Body()
		if !raw && req.Method() != "GET" && req.Method() != "HEAD" {
			body = req.QueryString()
		}
		out.Request = &JSONRequest{
			Method:  req.Method(),
			URL:     req.URL(),
			Headers: jsonHeaders(req.Headers()),
			Cookie:  req.Cookie(),
			Body:    body,
		}
	}

	res := ex.Result
	if err := res.Err(); err != nil {
		out.Error = &JSONError{Code: err.Code, Message: err.Message}
		out.Passed = false
	} else {
		resp := &JSONResponse{
			StatusCode:  res.StatusCode(),
			StatusLine:  res.StatusLine(),
			Headers:     jsonHeaders(res.Headers()),
			Duration:    float64(res.DurationMs()),
			Transport:   res.Transport(),
			FinalURL:    res.FinalURL(),
			Diagnostics: res.Diagnostics(),
		}
		if body := res.Body(); gjson.ValidBytes(body) {
			resp.Body = json.RawMessage(body)
		} else {
			resp.BodyText = res.TextView()
		}
		if len(resp.Diagnostics) == 0 {
			resp.Diagnostics = nil
		}
		out.Response = resp
	}

	if len(ex.Captures) > 0 {
		out.Captures = make(map[string]any, len(ex.Captures))
		for _, c := range ex.Captures {
			out.Captures[c.Name] = c.Value
		}
	}

	for _, a := range ex.Assertions {
		out.Assertions = append(out.Assertions, JSONAssertion{
			Subject:  a.Subject,
			Operator: a.Operator,
			Expected: a.Expected,
			Actual:   a.Actual,
			Passed:   a.Passed,
			Message:  a.Message,
		})
	}

	f.exchanges = append(f.exchanges, out)
}

func (f *JSONFormatter) FormatError(err error) {
	f.exchanges = append(f.exchanges, JSONExchange{
		Error: &JSONError{Code: http.CodeValidation, Message: err.Error()},
	})
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the buffered exchanges and resets the buffer.
func (f *JSONFormatter) Flush() error {
	var failed, errored int
	for _, ex := range f.exchanges {
		if ex.Error != nil {
			errored++
		} else if !ex.Passed {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:  len(f.exchanges),
			Failed: failed,
			Errors: errored,
		},
		Exchanges: f.exchanges,
		Time:      time.Now().Format(time.RFC3339),
	}
	f.exchanges = make([]JSONExchange, 0)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
