package capture

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/tidwall/gjson"
)

// Source names the part of a result a capture reads.
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
	SourceDuration
	SourceCookie
	SourceDiagnostic
)

func (s Source) String() string {
	switch s {
	case SourceBody:
		return "body"
	case SourceHeader:
		return "header"
	case SourceStatus:
		return "status"
	case SourceDuration:
		return "duration"
	case SourceCookie:
		return "cookie"
	case SourceDiagnostic:
		return "diag"
	default:
		return "unknown"
	}
}

var namedPattern = regexp.MustCompile(`^([A-Za-z_][\w-]*)\s*=\s*(.*)$`)

// Capture is a parsed extraction expression.
type Capture struct {
	Name   string
	Source Source
	Path   string
	Index  int
}

// Parse reads "[name=]expr" where expr is one of status, duration, body,
// body.<gjson path>, header.<Name>, cookie, cookie[<i>] or diag.<key>.
// Without a name the expression itself is used.
func Parse(s string) (*Capture, error) {
	s = strings.TrimSpace(s)
	name, expr := s, s
	if m := namedPattern.FindStringSubmatch(s); m != nil {
		name, expr = m[1], strings.TrimSpace(m[2])
	}
	if expr == "" {
		return nil, fmt.Errorf("empty capture expression in %q", s)
	}

	c := &Capture{Name: name}
	head, rest, _ := strings.Cut(expr, ".")
	switch {
	case expr == "status":
		c.Source = SourceStatus
	case expr == "duration":
		c.Source = SourceDuration
	case head == "body":
		c.Source = SourceBody
		c.Path = rest
	case head == "header" && rest != "":
		c.Source = SourceHeader
		c.Path = rest
	case head == "diag" && rest != "":
		c.Source = SourceDiagnostic
		c.Path = rest
	case expr == "cookie":
		c.Source = SourceCookie
	case strings.HasPrefix(expr, "cookie[") && strings.HasSuffix(expr, "]"):
		n, err := strconv.Atoi(expr[len("cookie[") : len(expr)-1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid cookie index in %q", expr)
		}
		c.Source = SourceCookie
		c.Index = n
	default:
		return nil, fmt.Errorf("unknown capture expression %q", expr)
	}
	return c, nil
}

// ParseAll parses every expression, stopping at the first error.
func ParseAll(exprs []string) ([]*Capture, error) {
	out := make([]*Capture, 0, len(exprs))
	for _, e := range exprs {
		c, err := Parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type Extractor struct {
	result   *http.Result
	bodyJSON gjson.Result
	isJSON   bool
}

func NewExtractor(res *http.Result) *Extractor {
	e := &Extractor{result: res}
	if parsed, err := res.JSONPath("@this"); err == nil {
		e.bodyJSON = parsed
		e.isJSON = true
	}
	return e
}

// Extract evaluates c. ok is false when the value is absent.
func (e *Extractor) Extract(c *Capture) (any, bool) {
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		if !e.result.Headers().Has(c.Path) {
			return nil, false
		}
		return e.result.Header(c.Path), true
	case SourceStatus:
		return e.result.Status()
	case SourceDuration:
		return e.result.DurationMs(), true
	case SourceCookie:
		cookies := e.result.Cookies()
		if c.Index >= len(cookies) {
			return nil, false
		}
		return cookies[c.Index], true
	case SourceDiagnostic:
		v, ok := e.result.Diagnostics()[c.Path]
		return v, ok
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if path == "" {
		if e.isJSON {
			return e.bodyJSON.Value(), true
		}
		return e.result.Text(), true
	}
	if !e.isJSON {
		return nil, false
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// ExtractAll evaluates every capture and returns the values found, keyed by
// capture name.
func ExtractAll(res *http.Result, captures []*Capture) map[string]any {
	extractor := NewExtractor(res)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}

// Stringify renders a captured value for display or interpolation. Objects
// and arrays become compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
