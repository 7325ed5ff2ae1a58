package repeat

import (
	"bytes"
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler gohttp.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func getFactory(url string) Factory {
	return func(int) *http.Request {
		return http.NewRequest("GET", url)
	}
}

func TestRunner_Count(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		n := hits.Add(1)
		if n%2 == 0 {
			w.WriteHeader(gohttp.StatusNotFound)
			return
		}
		w.WriteHeader(gohttp.StatusOK)
	})

	runner := NewRunner(&Config{Count: 4})
	result, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, int32(4), hits.Load())
	s := result.Summary
	assert.Equal(t, int64(4), s.TotalRequests)
	assert.Equal(t, int64(2), s.SuccessCount)
	assert.Equal(t, int64(2), s.HTTPErrorCount)
	assert.Equal(t, []StatusCount{{Code: 200, Count: 2}, {Code: 404, Count: 2}}, s.Statuses)
	assert.InDelta(t, 0.5, s.ErrorRate, 0.0001)
	assert.True(t, result.Passed)
	assert.False(t, result.Stopped)
}

func TestRunner_FreshRequestPerIteration(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.RawQuery)
	})

	var seen []int
	runner := NewRunner(&Config{Count: 3}, WithObserver(func(i int, req *http.Request, res *http.Result) {
		seen = append(seen, i)
		assert.True(t, res.OK())
	}))
	_, err := runner.Run(context.Background(), srv.URL, func(i int) *http.Request {
		return http.NewRequest("GET", srv.URL).SetParams(http.Params{{Key: "i", Value: i}})
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, seen)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"i=0", "i=1", "i=2"}, paths)
}

func TestRunner_StopOnError(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if hits.Add(1) == 2 {
			w.WriteHeader(gohttp.StatusInternalServerError)
		}
	})

	runner := NewRunner(&Config{Count: 10, StopOnError: true})
	result, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	assert.True(t, result.Stopped)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int64(2), result.Summary.TotalRequests)
}

func TestRunner_TransportErrors(t *testing.T) {
	srv := httptest.NewServer(gohttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	runner := NewRunner(&Config{Count: 2})
	result, err := runner.Run(context.Background(), url, getFactory(url))
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, int64(2), s.FailureCount)
	assert.Empty(t, s.Statuses)
	require.Len(t, s.ErrorCodes, 1)
	assert.Equal(t, int64(2), s.ErrorCodes[0].Count)
	assert.Equal(t, 1.0, s.ErrorRate)
}

func TestRunner_DurationAndRate(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		hits.Add(1)
	})

	runner := NewRunner(&Config{Duration: 300 * time.Millisecond, Rate: 20})
	start := time.Now()
	result, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(hits.Load()), result.Summary.TotalRequests)
	// 20 req/s with a burst of one allows about seven in 300ms
	assert.GreaterOrEqual(t, result.Summary.TotalRequests, int64(2))
	assert.LessOrEqual(t, result.Summary.TotalRequests, int64(8))
}

func TestRunner_ContextCancelled(t *testing.T) {
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(&Config{Count: 5})
	result, err := runner.Run(ctx, srv.URL, getFactory(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Summary.TotalRequests)
}

func TestRunner_Thresholds(t *testing.T) {
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusServiceUnavailable)
	})

	runner := NewRunner(&Config{Count: 2, Thresholds: Thresholds{ErrorRate: 0.1}})
	result, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	require.Len(t, result.Thresholds, 1)
	assert.False(t, result.Thresholds[0].Passed)
	assert.Equal(t, "100%", result.Thresholds[0].Actual)
	assert.True(t, result.HasThresholdFailures())
	assert.False(t, result.Passed)
}

func TestRunner_InvalidConfig(t *testing.T) {
	runner := NewRunner(&Config{})
	_, err := runner.Run(context.Background(), "example.com", getFactory("example.com"))
	assert.Error(t, err)

	_, err = NewRunner(nil).Run(context.Background(), "example.com", nil)
	assert.Error(t, err)
}

func TestReporter_Summary(t *testing.T) {
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusCreated)
	})

	var buf bytes.Buffer
	rep := NewReporter(WithWriter(&buf), WithNoColor(true), WithNoProgress(true))
	runner := NewRunner(&Config{Count: 3, Thresholds: Thresholds{P99: time.Minute}}, WithReporter(rep))
	_, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Repeating: "+srv.URL)
	assert.Contains(t, out, "Count: 3")
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "STATUS CODES")
	assert.Contains(t, out, "201: 3")
	assert.Contains(t, out, "LATENCY (ms)")
	assert.Contains(t, out, "All thresholds passed!")
	assert.NotContains(t, out, "\033[K")
}

func TestReporter_Verbose(t *testing.T) {
	srv := newServer(t, func(w gohttp.ResponseWriter, r *gohttp.Request) {})

	var buf bytes.Buffer
	rep := NewReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	runner := NewRunner(&Config{Count: 2}, WithReporter(rep))
	_, err := runner.Run(context.Background(), srv.URL, getFactory(srv.URL))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "#1     200")
	assert.Contains(t, buf.String(), "#2     200")
}

func TestReporter_JSONSummary(t *testing.T) {
	summary := &Summary{
		Duration:      time.Second,
		TotalRequests: 3,
		SuccessCount:  2,
		FailureCount:  1,
		Statuses:      []StatusCount{{Code: 200, Count: 2}},
		ErrorCodes:    []StatusCount{{Code: http.CodeConnect, Count: 1}},
		P95:           120 * time.Millisecond,
	}

	var buf bytes.Buffer
	rep := NewReporter(WithWriter(&buf))
	require.NoError(t, rep.JSONSummary(summary, []ThresholdResult{{Name: "p95", Passed: true}}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "1s", doc["duration"])
	assert.Equal(t, map[string]any{"200": float64(2)}, doc["statuses"])
	assert.Equal(t, map[string]any{"7": float64(1)}, doc["errorCodes"])
	assert.Equal(t, float64(120), doc["latency"].(map[string]any)["p95"])
	assert.Len(t, doc["thresholds"], 1)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
