package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/httpdebug/packages/capture"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/xeipuuv/gojsonschema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	result    *http.Result
	extractor *capture.Extractor
	baseDir   string // schema paths are resolved against it
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative schema paths against dir and refuses paths
// that leave it.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(res *http.Result, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		result:    res,
		extractor: capture.NewExtractor(res),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(a *Assertion) *Result {
	result := &Result{
		Subject:  a.Subject,
		Operator: a.Operator.String(),
		Expected: a.Expected,
	}

	actual, found, err := e.actual(a.Subject)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	switch {
	case a.Operator == OpExists:
		result.Passed = found
		if !found {
			result.Message = fmt.Sprintf("expected %s to exist", a.Subject)
		}
		return result
	case a.Operator == OpNotExists:
		result.Passed = !found
		if found {
			result.Message = fmt.Sprintf("expected %s to be absent, got %v", a.Subject, actual)
		}
		return result
	case !found:
		result.Message = fmt.Sprintf("%s not found in response", a.Subject)
		return result
	}

	result.Passed, result.Message = e.compare(actual, a.Operator, a.Expected)
	if a.Operator == OpLength {
		result.Actual = computeLength(actual)
	}
	return result
}

func (e *Evaluator) actual(subject string) (any, bool, error) {
	c, err := capture.Parse(subject)
	if err != nil {
		return nil, false, err
	}
	v, ok := e.extractor.Extract(c)
	return v, ok, nil
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return e.equals(actual, expected)
	case OpNotEquals:
		if passed, _ := e.equals(actual, expected); passed {
			return false, fmt.Sprintf("expected value to differ from %v", expected)
		}
		return true, ""
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return e.compareNumeric(actual, expected, op.String())
	case OpContains:
		return e.contains(actual, expected)
	case OpNotContains:
		if passed, _ := e.contains(actual, expected); passed {
			return false, fmt.Sprintf("expected '%v' not to contain '%v'", actual, expected)
		}
		return true, ""
	case OpStartsWith:
		return e.startsWith(actual, expected)
	case OpEndsWith:
		return e.endsWith(actual, expected)
	case OpMatches:
		return e.matches(actual, expected)
	case OpLength:
		return e.length(actual, expected)
	case OpType:
		return e.typeCheck(actual, expected)
	case OpStatus:
		return e.status(actual, expected)
	case OpSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unsupported operator %s", op)
	}
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if capture.Stringify(actual) == capture.Stringify(expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func (e *Evaluator) compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func (e *Evaluator) contains(actual, expected any) (bool, string) {
	if arr, ok := actual.([]any); ok {
		for _, item := range arr {
			if passed, _ := e.equals(item, expected); passed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("expected array to include %v", expected)
	}

	actualStr := capture.Stringify(actual)
	expectedStr := capture.Stringify(expected)
	if strings.Contains(actualStr, expectedStr) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func (e *Evaluator) startsWith(actual, expected any) (bool, string) {
	if strings.HasPrefix(capture.Stringify(actual), capture.Stringify(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
}

func (e *Evaluator) endsWith(actual, expected any) (bool, string) {
	if strings.HasSuffix(capture.Stringify(actual), capture.Stringify(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
}

func (e *Evaluator) matches(actual, expected any) (bool, string) {
	pattern := fmt.Sprintf("%v", expected)
	pattern = strings.TrimPrefix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(capture.Stringify(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns the length of a value, or -1 if it has none.
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		rv := reflect.ValueOf(actual)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		default:
			return -1
		}
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprintf("%v", expected)
	var actualType string

	switch actual.(type) {
	case nil:
		actualType = "null"
	case bool:
		actualType = "boolean"
	case float64, float32, int, int64, int32:
		actualType = "number"
	case string:
		actualType = "string"
	case []any:
		actualType = "array"
	case map[string]any:
		actualType = "object"
	default:
		actualType = reflect.TypeOf(actual).String()
	}

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

func (e *Evaluator) status(actual, expected any) (bool, string) {
	set, err := ParseStatusSet(capture.Stringify(expected))
	if err != nil {
		return false, err.Error()
	}
	code, ok := toInt(actual)
	if !ok {
		return false, fmt.Sprintf("status %v is not a number", actual)
	}
	if set.Match(code) {
		return true, ""
	}
	return false, fmt.Sprintf("expected status %s, got %d", set, code)
}

func (e *Evaluator) schema(actual, expected any) (bool, string) {
	schemaPath := fmt.Sprintf("%v", expected)
	if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
		schemaPath = filepath.Join(e.baseDir, schemaPath)
	}
	if err := http.ValidatePathWithinBase(schemaPath, e.baseDir); err != nil {
		return false, err.Error()
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return false, fmt.Sprintf("failed to read schema file: %v", err)
	}

	var document []byte
	if s, ok := actual.(string); ok && json.Valid([]byte(s)) {
		document = []byte(s)
	} else if document, err = json.Marshal(actual); err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(problems, "; "))
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

// EvaluateAll runs every assertion against res.
func EvaluateAll(res *http.Result, assertions []*Assertion, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(res, opts...)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}

// ExpectStatus checks the status against a set such as "2xx" or "200,204".
func ExpectStatus(res *http.Result, want string) *Result {
	return NewEvaluator(res).Evaluate(&Assertion{Subject: "status", Operator: OpStatus, Expected: want})
}

// ExpectSchema validates the body against a JSON schema file.
func ExpectSchema(res *http.Result, schemaPath string, opts ...EvaluatorOption) *Result {
	return NewEvaluator(res, opts...).Evaluate(&Assertion{Subject: "body", Operator: OpSchema, Expected: schemaPath})
}

func BodyContains(res *http.Result, needle string) *Result {
	return NewEvaluator(res).Evaluate(&Assertion{Subject: "body", Operator: OpContains, Expected: needle})
}

func HeaderEquals(res *http.Result, name, value string) *Result {
	return NewEvaluator(res).Evaluate(&Assertion{Subject: "header." + name, Operator: OpEquals, Expected: value})
}

// Failed returns the results that did not pass.
func Failed(results []*Result) []*Result {
	var out []*Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
