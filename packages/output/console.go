package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/capture"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type ConsoleFormatter struct {
	writer   io.Writer
	verbose  bool
	noColor  bool
	include  bool
	raw      bool
	bodyOnly bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose adds the request head and transport diagnostics.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// WithIncludeHeaders prints the response headers before the body.
func WithIncludeHeaders(include bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.include = include
	}
}

// WithRaw prints the body exactly as decoded, without pretty-printing.
func WithRaw(raw bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.raw = raw
	}
}

// WithBodyOnly suppresses everything but the body.
func WithBodyOnly(b bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.bodyOnly = b
	}
}

func (f *ConsoleFormatter) FormatExchange(ex *Exchange) {
	res := ex.Result
	if f.bodyOnly {
		if res.OK() {
			f.writeBody(res)
		} else {
			f.FormatError(res.Err())
		}
		return
	}

	if f.verbose && ex.Request != nil {
		f.writeRequest(ex.Request, res)
	}

	if !res.OK() {
		f.FormatError(res.Err())
	} else {
		f.writeStatus(res)
		if f.include || f.verbose {
			f.writeHeaders(res)
		}
		fmt.Fprintln(f.writer)
		f.writeBody(res)
	}

	if f.verbose {
		f.writeDiagnostics(res)
	}
	f.writeCaptures(ex.Captures)
	f.writeAssertions(ex)
}

func (f *ConsoleFormatter) writeRequest(req *http.Request, res *http.Result) {
	dim := color.New(color.Faint).SprintFunc()

	head := strings.TrimRight(res.RequestHeadersString(), "\r\n")
	if head == "" {
		head = req.Method() + " " + req.URL()
	}
	for _, line := range strings.Split(head, "\n") {
		fmt.Fprintf(f.writer, "%s %s\n", dim(">"), strings.TrimRight(line, "\r"))
	}
	if body, _ := req.Body(); body != "" {
		fmt.Fprintf(f.writer, "%s\n%s\n", dim(">"), formatValue(body, 2000))
	} else if qs := req.QueryString(); qs != "" && req.Method() != "GET" && req.Method() != "HEAD" {
		fmt.Fprintf(f.writer, "%s\n%s\n", dim(">"), formatValue(qs, 2000))
	}
	fmt.Fprintln(f.writer)
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	case code >= 300:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func (f *ConsoleFormatter) writeStatus(res *http.Result) {
	faint := color.New(color.Faint).SprintFunc()

	line := res.StatusLine()
	code, ok := res.Status()
	if !ok {
		fmt.Fprintf(f.writer, "%s %s\n", color.YellowString("unparsed status line:"), line)
		return
	}
	fmt.Fprintf(f.writer, "%s %s\n", statusColor(code).Sprint(line),
		faint(fmt.Sprintf("(%dms via %s)", res.DurationMs(), res.Transport())))
}

func (f *ConsoleFormatter) writeHeaders(res *http.Result) {
	cyan := color.New(color.FgCyan).SprintFunc()
	for _, h := range res.Headers() {
		fmt.Fprintf(f.writer, "%s: %s\n", cyan(h.Name), h.Value)
	}
}

func (f *ConsoleFormatter) writeBody(res *http.Result) {
	body := res.Body()
	if len(body) == 0 {
		return
	}
	if f.raw {
		_, _ = f.writer.Write(body)
		if body[len(body)-1] != '\n' {
			fmt.Fprintln(f.writer)
		}
		return
	}
	if out, ok := PrettyJSON(body, !color.NoColor); ok {
		_, _ = f.writer.Write(out)
		return
	}
	text := res.TextView()
	fmt.Fprint(f.writer, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(f.writer)
	}
}

// PrettyJSON indents a JSON document, coloring it when colored is set.
// ok is false when body is not valid JSON.
func PrettyJSON(body []byte, colored bool) (out []byte, ok bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	out = pretty.Pretty(body)
	if colored {
		out = pretty.Color(out, nil)
	}
	return out, true
}

func (f *ConsoleFormatter) writeDiagnostics(res *http.Result) {
	diag := res.Diagnostics()
	if len(diag) == 0 {
		return
	}
	faint := color.New(color.Faint).SprintFunc()
	keys := make([]string, 0, len(diag))
	for k := range diag {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(f.writer, "\n%s\n", faint("Diagnostics:"))
	for _, k := range keys {
		fmt.Fprintf(f.writer, "  %-20s %v\n", k, diag[k])
	}
}

func (f *ConsoleFormatter) writeCaptures(captures []Capture) {
	if len(captures) == 0 {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "\n%s\n", bold("Captures:"))
	for _, c := range captures {
		fmt.Fprintf(f.writer, "  %s = %s\n", c.Name, formatValue(capture.Stringify(c.Value), 200))
	}
}

func (f *ConsoleFormatter) writeAssertions(ex *Exchange) {
	if len(ex.Assertions) == 0 {
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(f.writer)
	for _, a := range ex.Assertions {
		if a.Passed {
			fmt.Fprintf(f.writer, "  %s %s %s %s\n", green("✓"), a.Subject, a.Operator, formatValue(a.Expected, 100))
			continue
		}
		fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), a.Subject, a.Operator)
		fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(a.Expected, 100))
		fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(a.Actual, 100))
		if a.Message != "" {
			fmt.Fprintf(f.writer, "      %s\n", a.Message)
		}
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("httpdebug"), version)
}
