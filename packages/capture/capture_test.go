package capture

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetch(t *testing.T, contentType, body string) *http.Result {
	t.Helper()
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Request-Id", "req-7")
		w.Header().Add("Set-Cookie", "session=abc; Path=/")
		w.Header().Add("Set-Cookie", "theme=dark")
		w.WriteHeader(nethttp.StatusCreated)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	res := http.Get(context.Background(), srv.URL, nil, nil)
	require.True(t, res.OK(), res.ErrorString())
	return res
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Capture
	}{
		{"status", Capture{Name: "status", Source: SourceStatus}},
		{"id=body.data.id", Capture{Name: "id", Source: SourceBody, Path: "data.id"}},
		{"body", Capture{Name: "body", Source: SourceBody}},
		{"loc = header.Location", Capture{Name: "loc", Source: SourceHeader, Path: "Location"}},
		{"cookie[2]", Capture{Name: "cookie[2]", Source: SourceCookie, Index: 2}},
		{"dns=diag.namelookup_time", Capture{Name: "dns", Source: SourceDiagnostic, Path: "namelookup_time"}},
		{"body.items.#(id==3).name", Capture{Name: "body.items.#(id==3).name", Source: SourceBody, Path: "items.#(id==3).name"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "header", "cookie[x]", "cookie[-1]", "latency", "x="} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestExtractAll_JSON(t *testing.T) {
	res := fetch(t, "application/json", `{"data":{"id":42,"tags":["a","b"]}}`)
	captures, err := ParseAll([]string{
		"id=body.data.id",
		"tags=body.data.tags",
		"missing=body.nope",
		"status",
		"rid=header.X-Request-Id",
		"absent=header.X-Absent",
		"cookie",
		"second=cookie[1]",
		"third=cookie[2]",
		"duration",
	})
	require.NoError(t, err)

	got := ExtractAll(res, captures)

	assert.Equal(t, float64(42), got["id"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
	assert.Equal(t, 201, got["status"])
	assert.Equal(t, "req-7", got["rid"])
	assert.Equal(t, "session=abc; Path=/", got["cookie"])
	assert.Equal(t, "theme=dark", got["second"])
	assert.Contains(t, got, "duration")
	assert.NotContains(t, got, "missing")
	assert.NotContains(t, got, "absent")
	assert.NotContains(t, got, "third")
}

func TestExtract_TextBody(t *testing.T) {
	res := fetch(t, "text/plain", "plain text")
	e := NewExtractor(res)

	v, ok := e.Extract(&Capture{Source: SourceBody})
	assert.True(t, ok)
	assert.Equal(t, "plain text", v)

	_, ok = e.Extract(&Capture{Source: SourceBody, Path: "id"})
	assert.False(t, ok)
}

func TestExtract_Diagnostics(t *testing.T) {
	res := fetch(t, "text/plain", "ok")

	v, ok := NewExtractor(res).Extract(&Capture{Source: SourceDiagnostic, Path: "http_code"})
	assert.True(t, ok)
	assert.EqualValues(t, 201, v)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "x", Stringify("x"))
	assert.Equal(t, "42", Stringify(float64(42)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, `{"a":[1,true]}`, Stringify(map[string]any{"a": []any{float64(1), true}}))
	assert.Equal(t, "201", Stringify(201))
}
