package output

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdul-hamid-achik/httpdebug/packages/assertions"
	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T, contentType, body string) *Exchange {
	t.Helper()
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Served-By", "test")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	req := http.NewRequest("GET", srv.URL+"/items")
	res := req.Execute(context.Background())
	require.True(t, res.OK(), res.ErrorString())
	return &Exchange{Request: req, Result: res}
}

func TestConsoleFormatter_JSONBody(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithIncludeHeaders(true))

	f.FormatExchange(exchange(t, "application/json", `{"id":1,"tags":["a"]}`))

	out := buf.String()
	assert.Contains(t, out, "HTTP/1.1 200 OK")
	assert.Contains(t, out, "via library")
	assert.Contains(t, out, "X-Served-By: test")
	assert.Contains(t, out, `"id": 1`)
	assert.Contains(t, out, `"tags":`)
}

func TestPrettyJSON(t *testing.T) {
	out, ok := PrettyJSON([]byte(`{"a":[1,2],"b":{"c":null}}`), false)
	require.True(t, ok)
	assert.Contains(t, string(out), "\n    \"c\": null\n")
	assert.True(t, json.Valid(out))

	_, ok = PrettyJSON([]byte("<html></html>"), false)
	assert.False(t, ok)
}

func TestConsoleFormatter_Raw(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithBodyOnly(true), WithRaw(true))

	f.FormatExchange(exchange(t, "application/json", `{"id":1}`))

	assert.Equal(t, "{\"id\":1}\n", buf.String())
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	f.FormatExchange(exchange(t, "text/plain", "hello"))

	out := buf.String()
	assert.Contains(t, out, "> GET /items HTTP/1.1")
	assert.Contains(t, out, "Content-Type: text/plain")
	assert.Contains(t, out, "hello\n")
	assert.Contains(t, out, "Diagnostics:")
	assert.Contains(t, out, "total_time")
}

func TestConsoleFormatter_AssertionsAndCaptures(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	ex := exchange(t, "application/json", `{"id":7}`)
	ex.Captures = []Capture{{Name: "id", Value: float64(7)}}
	ex.Assertions = []*assertions.Result{
		{Passed: true, Subject: "status", Operator: "in", Expected: "2xx", Actual: 200},
		{Passed: false, Subject: "body.id", Operator: "==", Expected: float64(8), Actual: float64(7), Message: "expected 8, got 7"},
	}

	f.FormatExchange(ex)

	out := buf.String()
	assert.Contains(t, out, "id = 7")
	assert.Contains(t, out, "✓ status in 2xx")
	assert.Contains(t, out, "✗ body.id ==")
	assert.Contains(t, out, "expected 8, got 7")
	assert.False(t, ex.Passed())
}

func TestConsoleFormatter_Error(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	req := http.NewRequest("GET", "")

	f.FormatExchange(&Exchange{Request: req, Result: req.Execute(context.Background())})

	assert.Contains(t, buf.String(), "Error: -1:")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	ok := exchange(t, "application/json", `{"id":1}`)
	ok.Captures = []Capture{{Name: "id", Value: float64(1)}}
	f.FormatExchange(ok)
	f.FormatExchange(exchange(t, "text/plain", "plain"))
	failed := http.NewRequest("GET", "")
	f.FormatExchange(&Exchange{Request: failed, Result: failed.Execute(context.Background())})

	require.NoError(t, f.Flush())

	var doc JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, JSONSummary{Total: 3, Failed: 0, Errors: 1}, doc.Summary)
	require.Len(t, doc.Exchanges, 3)

	first := doc.Exchanges[0]
	assert.Equal(t, "GET", first.Request.Method)
	assert.Equal(t, 200, first.Response.StatusCode)
	assert.JSONEq(t, `{"id":1}`, string(first.Response.Body))
	assert.Equal(t, float64(1), first.Captures["id"])
	assert.Equal(t, "library", first.Response.Transport)

	assert.Equal(t, "plain", doc.Exchanges[1].Response.BodyText)
	assert.Equal(t, http.CodeValidation, doc.Exchanges[2].Error.Code)

	buf.Reset()
	require.NoError(t, f.Flush())
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 0, doc.Summary.Total, "flush resets the buffer")
}

func TestNew(t *testing.T) {
	f, err := New("json")
	require.NoError(t, err)
	_, isFlushable := f.(Flushable)
	assert.True(t, isFlushable)

	f, err = New("")
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	_, err = New("junit")
	assert.Error(t, err)
}
